/*
笔记朗读工具 - 语音列表命令

Copyright © 2025 TTS App Contributors
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var voicesLanguage string

// voicesCmd represents the voices command
var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "列出当前合成服务可用的语音",
	Long: `列出当前合成服务可用的语音，Azure 和 Edge TTS 支持该命令。

示例:
  notetts voices             # 列出全部语音
  notetts voices --list zh   # 只列出中文语音
  notetts voices --list en-US`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVoices(cmd.Context())
	},
}

func runVoices(ctx context.Context) error {
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	voices, err := a.speech.ListVoices(ctx, voicesLanguage)
	if err != nil {
		return err
	}
	if len(voices) == 0 {
		fmt.Println("没有找到匹配的语音")
		return nil
	}

	fmt.Printf("🎙️  共 %d 个语音\n\n", len(voices))
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "语音\t语言\t显示名称")
	for _, v := range voices {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", v.ShortName, v.Locale, v.DisplayName())
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(voicesCmd)
	voicesCmd.Flags().StringVarP(&voicesLanguage, "list", "l", "", "按语言前缀过滤，如 zh、en-US")
}
