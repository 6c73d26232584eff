package service

import (
	"embed"
	"fmt"
	"path"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// 中文是默认语言，翻译文件里缺少的消息也回退到这里
var (
	msgPlayCompleted   = &i18n.Message{ID: "play_completed", Other: "语音合成完成"}
	msgSaveCompleted   = &i18n.Message{ID: "save_completed", Other: "音频已保存到 {{.Detail}}"}
	msgSynthesisFailed = &i18n.Message{ID: "synthesis_failed", Other: "语音合成失败，请检查密钥、区域和语音设置"}
	msgSynthesisError  = &i18n.Message{ID: "synthesis_error", Other: "语音合成出错: {{.Detail}}"}
	msgSetupFailed     = &i18n.Message{ID: "setup_failed", Other: "无法创建合成请求: {{.Detail}}"}
	msgPlaybackFailed  = &i18n.Message{ID: "playback_failed", Other: "播放失败: {{.Detail}}"}
)

var noticeBundle = newNoticeBundle()

func newNoticeBundle() *i18n.Bundle {
	bundle := i18n.NewBundle(language.Chinese)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	files, err := localeFS.ReadDir("locales")
	if err != nil {
		panic(err)
	}
	for _, f := range files {
		data, err := localeFS.ReadFile(path.Join("locales", f.Name()))
		if err != nil {
			panic(err)
		}
		bundle.MustParseMessageFileBytes(data, f.Name())
	}
	return bundle
}

// localize 按语言生成通知文本；未知语言或缺少翻译时使用中文
func localize(lang string, msg *i18n.Message, detail ...any) string {
	var data map[string]any
	if len(detail) > 0 {
		data = map[string]any{"Detail": fmt.Sprint(detail[0])}
	}

	out, err := i18n.NewLocalizer(noticeBundle, lang).Localize(&i18n.LocalizeConfig{
		DefaultMessage: msg,
		TemplateData:   data,
	})
	if out == "" && err != nil {
		return msg.ID
	}
	return out
}
