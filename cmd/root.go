/*
笔记朗读工具 - 根命令定义

Copyright © 2025 TTS App Contributors
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// 版本信息
var (
	appVersion   = "dev"
	appBuildTime = "unknown"
	appGitCommit = "unknown"
)

// configFile 全局配置文件路径
var configFile string

// errReported 错误已经向用户展示过，只需要以非零状态退出
var errReported = errors.New("already reported")

// SetVersionInfo 设置版本信息
func SetVersionInfo(version, buildTime, gitCommit string) {
	appVersion = version
	appBuildTime = buildTime
	appGitCommit = gitCommit

	// 更新rootCmd的版本信息
	rootCmd.Version = getVersionString()
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "notetts",
	Short: "🎵 笔记朗读 - 把笔记中选中或光标前后的文字转换成语音",
	Long: `🎵 笔记朗读

从 Markdown 笔记中取出选中的文字，或光标之前/之后的内容，
交给云端语音合成服务，直接播放或保存成音频文件。

✨ 核心特色：
  🎯 多引擎支持    - Azure、Edge TTS、腾讯云、OpenAI、Yandex
  🔁 单一请求      - 新的朗读请求会立即停止上一次朗读
  🧹 文本过滤      - 去除 Markdown 语法，支持 /pattern/ 过滤规则
  ⚙️  设置管理      - settings 命令查看和修改所有设置

🚀 快速开始：
  # 初始化配置（新用户）
  notetts init

  # 朗读光标之前的内容
  notetts speak -f note.md --cursor end --scope before

  # 保存选中的文字
  notetts save -f note.md --select 2:0-4:10 --name note1

  # 查看语音选项
  notetts voices --list zh`,
	Version:       getVersionString(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// getVersionString 获取版本字符串
func getVersionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", appVersion, appGitCommit, appBuildTime)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "❌ 错误: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	// 设置版本模板
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)

	// 全局标志
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "配置文件路径")
	rootCmd.PersistentFlags().BoolP("help", "h", false, "显示帮助信息")
	rootCmd.PersistentFlags().BoolP("version", "v", false, "显示版本信息")

	// 设置帮助标志不显示在使用说明中
	rootCmd.PersistentFlags().MarkHidden("help")
}
