/*
Copyright © 2025 TTS App Contributors
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/difyz9/notetts/service"
	"github.com/spf13/cobra"
)

var initNoteFile string
var force bool

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "初始化配置文件和示例笔记",
	Long: `初始化朗读工具所需的配置文件和示例笔记。

该命令会创建：
1. config.yaml - 主配置文件（可用全局 --config 指定）
2. note.md - 示例笔记

如果文件已存在，默认会跳过。使用 --force 强制覆盖。

示例:
  notetts init                           # 使用默认文件名初始化
  notetts init --config custom.yaml      # 指定配置文件名
  notetts init --note my_note.md         # 指定示例笔记文件名
  notetts init --force                   # 强制覆盖已存在的文件`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit()
	},
}

func runInit() error {
	fmt.Println("🎵 笔记朗读初始化")
	fmt.Println("================")
	fmt.Println()

	initializer := service.NewConfigInitializer(os.Stdout)

	if force {
		fmt.Println("⚠️  强制模式：将覆盖已存在的文件")
	}

	// 初始化配置文件
	fmt.Printf("📝 初始化配置文件: %s\n", configFile)
	if err := initializer.InitializeConfigWithForce(configFile, force); err != nil {
		return fmt.Errorf("初始化配置文件失败: %w", err)
	}

	// 创建示例笔记
	fmt.Printf("📄 创建示例笔记: %s\n", initNoteFile)
	if err := initializer.CreateSampleNoteWithForce(initNoteFile, force); err != nil {
		return fmt.Errorf("创建示例笔记失败: %w", err)
	}

	// 显示快速开始指南
	initializer.ShowQuickStart(initNoteFile)

	fmt.Println("🎉 初始化完成！")
	fmt.Println()
	fmt.Println("下一步:")
	fmt.Printf("1. 编辑 %s 或运行 notetts settings set key <密钥> 设置API密钥\n", configFile)
	fmt.Println("2. 不想配置密钥可以运行 notetts settings set provider edge")
	return nil
}

func init() {
	rootCmd.AddCommand(initCmd)

	// 添加示例笔记标志
	initCmd.Flags().StringVarP(&initNoteFile, "note", "n", "note.md", "示例笔记路径")

	// 添加强制覆盖标志
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "强制覆盖已存在的文件")
}
