package service

import (
	"fmt"
	"io"
	"os"

	"github.com/difyz9/notetts/model"
)

// ConfigInitializer 配置初始化器
type ConfigInitializer struct {
	out io.Writer
}

// NewConfigInitializer 创建配置初始化器，提示信息写到 out
func NewConfigInitializer(out io.Writer) *ConfigInitializer {
	return &ConfigInitializer{out: out}
}

// DefaultConfig 默认配置
func DefaultConfig() *model.Config {
	config := &model.Config{
		Settings: model.Settings{
			Provider:      ProviderAzure,
			Key:           "",
			Region:        "eastus",
			RegionCode:    "zh-CN",
			Voice:         "zh-CN-XiaoxiaoNeural (Female)",
			AudioFormat:   azureDefaultFormat,
			Speed:         1.0,
			ReadScope:     model.ReadScopeOff,
			KeyHide:       true,
			StripMarkdown: true,
			FilePath:      "output",
			Language:      "zh",
			NoticeSeconds: 5,
		},
		Log: model.LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: model.TelemetryConfig{
			ServiceName: "notetts",
		},
		Notice: model.NoticeConfig{
			Subject: "notetts.notice",
		},
		Store: model.StoreConfig{
			Path: ".notetts/state.db",
		},
		OpenAI: model.OpenAIConfig{
			Model: "tts-1",
		},
		Tencent: model.TencentConfig{
			Endpoint:       tencentDefaultEndpoint,
			PollIntervalMS: 2000,
			MaxWaitMS:      60000,
		},
		Yandex: model.YandexConfig{
			Endpoint: yandexDefaultEndpoint,
			Model:    yandexDefaultModel,
		},
	}
	config.Settings.Normalize()
	return config
}

// InitializeConfigWithForce 初始化配置文件（支持强制覆盖）
func (ci *ConfigInitializer) InitializeConfigWithForce(configPath string, force bool) error {
	// 检查配置文件是否已存在
	if _, err := os.Stat(configPath); err == nil && !force {
		fmt.Fprintf(ci.out, "配置文件 %s 已存在，跳过初始化\n", configPath)
		return nil
	}

	fmt.Fprintf(ci.out, "正在初始化配置文件: %s\n", configPath)
	if err := writeConfig(configPath, DefaultConfig()); err != nil {
		return err
	}

	fmt.Fprintf(ci.out, "✅ 配置文件初始化完成: %s\n", configPath)
	fmt.Fprintln(ci.out)
	fmt.Fprintln(ci.out, "📝 请编辑配置文件或使用 settings 命令，设置以下内容：")
	fmt.Fprintln(ci.out, "   1. Azure: 填入 key 和 region")
	fmt.Fprintln(ci.out, "   2. Edge TTS: 把 provider 改为 edge，无需密钥")
	fmt.Fprintln(ci.out, "   3. 也可以通过 NOTETTS_KEY 等环境变量或 .env 文件提供密钥")
	fmt.Fprintln(ci.out)
	return nil
}

// CreateSampleNoteWithForce 创建示例笔记（支持强制覆盖）
func (ci *ConfigInitializer) CreateSampleNoteWithForce(notePath string, force bool) error {
	if _, err := os.Stat(notePath); err == nil && !force {
		fmt.Fprintf(ci.out, "示例笔记 %s 已存在，跳过创建\n", notePath)
		return nil
	}

	sampleContent := `---
title: 示例笔记
---

# 欢迎使用 notetts

这是一篇示例笔记。选中一段文字，或者把光标放在某处，
再用 **speak** 命令朗读光标之前或之后的内容。

- 支持 [[wiki 链接|双链]] 和 ==高亮== 语法
- 代码块不会被朗读

` + "```go\nfmt.Println(\"skip me\")\n```" + `

%%这是一条不会被朗读的注释%%
最后一行。
`

	if err := os.WriteFile(notePath, []byte(sampleContent), 0o644); err != nil {
		return fmt.Errorf("创建示例笔记失败: %w", err)
	}
	fmt.Fprintf(ci.out, "✅ 示例笔记创建完成: %s\n", notePath)
	return nil
}

// ShowQuickStart 显示快速开始指南
func (ci *ConfigInitializer) ShowQuickStart(notePath string) {
	fmt.Fprintln(ci.out)
	fmt.Fprintln(ci.out, "🚀 快速开始指南:")
	fmt.Fprintln(ci.out)
	fmt.Fprintln(ci.out, "朗读整篇笔记（光标之前）：")
	fmt.Fprintf(ci.out, "   notetts speak -f %s --cursor end --scope before\n", notePath)
	fmt.Fprintln(ci.out)
	fmt.Fprintln(ci.out, "保存为音频文件：")
	fmt.Fprintf(ci.out, "   notetts save -f %s --select 6:0-7:20 --name note1\n", notePath)
	fmt.Fprintln(ci.out)
	fmt.Fprintln(ci.out, "查看和修改设置：")
	fmt.Fprintln(ci.out, "   notetts settings show")
	fmt.Fprintln(ci.out, "   notetts settings set speed 1.2")
	fmt.Fprintln(ci.out)
}
