/*
笔记朗读工具
把 Markdown 笔记中的文字交给云端语音合成服务，播放或保存为音频文件

构建时注入版本：
  go build -ldflags "-X main.version=v1.0.0 -X main.buildTime=$(date +%FT%T) -X main.gitCommit=$(git rev-parse --short HEAD)"

Copyright © 2025 TTS App Contributors
*/
package main

import (
	"github.com/difyz9/notetts/cmd"
)

// 未注入时显示为开发版本，notetts --version 会打印这三项
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, buildTime, gitCommit)
	cmd.Execute()
}
