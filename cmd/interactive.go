/*
笔记朗读工具 - 交互模式

Copyright © 2025 TTS App Contributors
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/difyz9/notetts/model"
	"github.com/difyz9/notetts/service"
	"github.com/spf13/cobra"
)

var interactiveNoPlay bool

// interactiveCmd represents the interactive command
var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "逐行朗读输入的文字，新输入会打断正在进行的朗读",
	Long: `交互模式：每输入一行文字就开始朗读。

如果上一行还在合成或播放，会先停止它再开始新的朗读。
输入空行停止当前朗读，输入 :q 或按 Ctrl+D 退出。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd.Context())
	},
}

func runInteractive(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	a, err := newApp(ctx, !interactiveNoPlay)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	fmt.Println("🎤 交互模式，输入文字后回车开始朗读（:q 退出）")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	var current *service.Session
	defer func() { a.speech.Stop(current) }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == ":q" {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				a.speech.Stop(current)
				current = nil
				continue
			}
			current = a.speech.Speak(ctx, current, service.SpeakOptions{
				Mode: model.ModePlay,
				Text: line,
			}, nil)
		}
	}
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
	interactiveCmd.Flags().BoolVar(&interactiveNoPlay, "no-play", false, "只合成不播放")
}
