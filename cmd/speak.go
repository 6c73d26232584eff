/*
笔记朗读工具 - 朗读和保存命令

Copyright © 2025 TTS App Contributors
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/difyz9/notetts/model"
	"github.com/difyz9/notetts/service"
	"github.com/spf13/cobra"
)

// speakFlags speak 和 save 共用的参数
type speakFlags struct {
	noteFile  string
	text      string
	cursor    string
	selection string
	scope     string
	name      string
	dir       string
	noPlay    bool
}

var speakOpts, saveOpts speakFlags

// speakCmd represents the speak command
var speakCmd = &cobra.Command{
	Use:   "speak",
	Short: "朗读选中的文字或光标前后的内容",
	Long: `朗读笔记中的文字并在默认输出设备上播放。

文字来源的优先级：--text 指定的文字 > --select 选区 > 按朗读范围取光标前后的内容。
位置格式为 "行:列"，行列从 0 开始，"end" 表示文档末尾。

示例:
  notetts speak --text "你好，世界"
  notetts speak -f note.md --select 3:0-5:12
  notetts speak -f note.md --cursor 10:0 --scope after
  cat note.md | notetts speak -f - --cursor end --scope before`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSpeak(cmd.Context(), model.ModePlay, speakOpts)
	},
}

// saveCmd represents the save command
var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "把选中的文字或光标前后的内容保存为音频文件",
	Long: `把笔记中的文字合成为音频并保存到 {目录}/{文件名}.{mp3|wav}。

不指定文件名时使用当前时间 YYYYMMDDHHMMSS；不指定目录时依次使用
设置中的 file_path、上一次保存的目录、当前目录。

示例:
  notetts save -f note.md --select 3:0-5:12 --name note1 --dir /out
  notetts save --text "Hello" --name greeting`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSpeak(cmd.Context(), model.ModeSave, saveOpts)
	},
}

func runSpeak(ctx context.Context, mode model.OutputMode, flags speakFlags) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	opts, err := flags.options(mode)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, mode == model.ModePlay && !flags.noPlay)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if flags.scope != "" {
		scope := model.ReadScope(flags.scope)
		if !scope.Valid() {
			return fmt.Errorf("无效的朗读范围 %q，可选 before/after/off", flags.scope)
		}
		// 只影响本次请求，不写回配置文件
		a.settings.Update(func(s *model.Settings) { s.ReadScope = scope })
	}

	session := a.speech.Speak(ctx, nil, opts, nil)
	outcome, err := session.Wait(ctx)
	if err != nil {
		session.Close()
		return err
	}
	<-session.Done()

	switch outcome.Status {
	case model.StatusEmpty:
		fmt.Println("⚠️  没有需要朗读的文字")
		return nil
	case model.StatusFailed:
		// 失败已经通过通知展示过
		return errReported
	case model.StatusCanceled:
		fmt.Println("⏹️  已取消")
		return nil
	}
	return nil
}

// options 把命令行参数转换成请求参数
func (f speakFlags) options(mode model.OutputMode) (service.SpeakOptions, error) {
	opts := service.SpeakOptions{
		Mode:     mode,
		Text:     f.text,
		Filename: f.name,
		FilePath: f.dir,
	}
	if f.noteFile == "" {
		return opts, nil
	}

	content, err := readNote(f.noteFile)
	if err != nil {
		return opts, err
	}
	doc := service.NewDocument(content)

	if f.cursor != "" {
		pos, err := service.ParsePosition(f.cursor, doc)
		if err != nil {
			return opts, err
		}
		doc.SetCursor(pos)
	}
	if f.selection != "" {
		from, to, ok := strings.Cut(f.selection, "-")
		if !ok {
			return opts, fmt.Errorf("无效的选区 %q，格式为 行:列-行:列", f.selection)
		}
		anchor, err := service.ParsePosition(from, doc)
		if err != nil {
			return opts, err
		}
		head, err := service.ParsePosition(to, doc)
		if err != nil {
			return opts, err
		}
		doc.Select(anchor, head)
	}
	opts.Editor = doc
	return opts, nil
}

func readNote(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("读取笔记失败: %w", err)
	}
	return string(data), nil
}

func bindSpeakFlags(cmd *cobra.Command, f *speakFlags) {
	cmd.Flags().StringVarP(&f.noteFile, "file", "f", "", "笔记文件路径，- 表示标准输入")
	cmd.Flags().StringVarP(&f.text, "text", "t", "", "直接指定要朗读的文字")
	cmd.Flags().StringVar(&f.cursor, "cursor", "", "光标位置，如 3:5 或 end")
	cmd.Flags().StringVar(&f.selection, "select", "", "选区，如 3:0-5:12")
	cmd.Flags().StringVar(&f.scope, "scope", "", "本次使用的朗读范围 before/after/off")
}

func init() {
	rootCmd.AddCommand(speakCmd)
	rootCmd.AddCommand(saveCmd)

	bindSpeakFlags(speakCmd, &speakOpts)
	speakCmd.Flags().BoolVar(&speakOpts.noPlay, "no-play", false, "只合成不播放")

	bindSpeakFlags(saveCmd, &saveOpts)
	saveCmd.Flags().StringVarP(&saveOpts.name, "name", "n", "", "文件名（不含扩展名），默认为当前时间")
	saveCmd.Flags().StringVarP(&saveOpts.dir, "dir", "o", "", "保存目录")
}
