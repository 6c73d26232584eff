/*
笔记朗读工具 - 设置命令

Copyright © 2025 TTS App Contributors
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/difyz9/notetts/service"
	"github.com/spf13/cobra"
)

// settingsCmd represents the settings command
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "查看和修改设置",
	Long: `查看和修改朗读设置，修改后立即写回配置文件。

示例:
  notetts settings show
  notetts settings set voice "en-US-JennyNeural (Female)"
  notetts settings set speed 1.3
  notetts settings set filter_rule "/\[\d+\]/g"
  notetts settings toggle-key`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "显示当前设置",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		binder, err := newBinder()
		if err != nil {
			return err
		}
		return binder.Render(os.Stdout)
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "修改一项设置",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		binder, err := newBinder()
		if err != nil {
			return err
		}
		if err := binder.Set(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("✅ 已更新 %s\n", args[0])
		return nil
	},
}

var settingsToggleKeyCmd = &cobra.Command{
	Use:   "toggle-key",
	Short: "切换是否隐藏密钥",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		binder, err := newBinder()
		if err != nil {
			return err
		}
		hidden, err := binder.ToggleKeyHide(cmd.Context())
		if err != nil {
			return err
		}
		if hidden {
			fmt.Println("🙈 密钥已隐藏")
		} else {
			fmt.Println("👁  密钥已显示")
		}
		return nil
	},
}

func newBinder() (*service.SettingsBinder, error) {
	store, err := service.LoadSettingsStore(configFile)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	logger := service.NewLogger(store.Config().Log, os.Stderr)
	return service.NewSettingsBinder(store, logger), nil
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsToggleKeyCmd)
}
