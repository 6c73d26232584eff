package service

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/difyz9/notetts/model"
)

const (
	MinSpeed  = 0.5
	MaxSpeed  = 2.0
	SpeedStep = 0.1
)

// SpeakOptions 调用方对单次请求的覆盖参数
type SpeakOptions struct {
	Mode     model.OutputMode
	Text     string // 显式文本，非空时忽略编辑器
	Editor   Editor
	Filename string
	FilePath string
}

// RequestBuilder 根据设置和覆盖参数组装合成请求
type RequestBuilder struct {
	markdown *MarkdownProcessor
	store    KeyValue
	clock    func() time.Time
}

// NewRequestBuilder 创建请求构建器，store 可以为 nil
func NewRequestBuilder(store KeyValue) *RequestBuilder {
	return &RequestBuilder{
		markdown: NewMarkdownProcessor(),
		store:    store,
		clock:    time.Now,
	}
}

// Build 组装合成请求；文本为空时返回的请求 Text 为空，由调用方决定是否跳过
func (rb *RequestBuilder) Build(ctx context.Context, settings model.Settings, opts SpeakOptions) (*model.SynthesisRequest, error) {
	mode := opts.Mode
	if mode == "" {
		mode = model.ModePlay
	}
	if mode != model.ModePlay && mode != model.ModeSave {
		return nil, fmt.Errorf("%w: 未知的输出方式 %q", ErrInvalidSetting, mode)
	}

	speed := settings.Speed
	if speed == 0 {
		speed = 1.0
	}
	if speed < MinSpeed || speed > MaxSpeed {
		return nil, fmt.Errorf("%w: 语速 %.2f 超出范围 [%.1f, %.1f]", ErrInvalidSetting, speed, MinSpeed, MaxSpeed)
	}

	text, err := rb.prepareText(settings, opts)
	if err != nil {
		return nil, err
	}

	voice := strings.TrimSpace(model.VoiceDisplayName(settings.Voice))
	locale := settings.RegionCode
	if locale == "" {
		locale = model.LocaleOfVoice(voice)
	}

	req := &model.SynthesisRequest{
		Text:          text,
		Voice:         voice,
		Locale:        locale,
		Speed:         speed,
		Mode:          mode,
		AudioFormat:   settings.AudioFormat,
		ContainerType: model.ContainerTypeOf(settings.AudioFormat),
	}
	if text != "" {
		req.SSML = BuildSSML(locale, voice, speed, text)
	}

	if mode == model.ModeSave {
		req.Filename = opts.Filename
		if req.Filename == "" {
			req.Filename = model.FileTimestamp(rb.clock())
		}
		req.FilePath = rb.resolveFilePath(ctx, settings, opts)
	}

	return req, nil
}

// prepareText 取文本、去掉Markdown、应用过滤规则
func (rb *RequestBuilder) prepareText(settings model.Settings, opts SpeakOptions) (string, error) {
	text := opts.Text
	if strings.TrimSpace(text) == "" {
		text = ExtractText(settings.ReadScope, opts.Editor)
	}
	if text != "" && settings.StripMarkdown {
		text = rb.markdown.ExtractTextForTTS(text)
	}

	text, err := FilterText(settings.FilterRule, text)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (rb *RequestBuilder) resolveFilePath(ctx context.Context, settings model.Settings, opts SpeakOptions) string {
	if opts.FilePath != "" {
		return opts.FilePath
	}
	if settings.FilePath != "" {
		return settings.FilePath
	}
	if rb.store != nil {
		if dir, ok, err := rb.store.Get(ctx, KeyLastOutputDir); err == nil && ok && dir != "" {
			return dir
		}
	}
	return "."
}

// BuildSSML 生成带语速控制的SSML，文本中的XML保留字符会被转义
func BuildSSML(locale, voice string, speed float64, text string) string {
	var b bytes.Buffer
	b.WriteString(`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="`)
	xml.EscapeText(&b, []byte(locale))
	b.WriteString(`"><voice name="`)
	xml.EscapeText(&b, []byte(voice))
	b.WriteString(`"><prosody rate="`)
	b.WriteString(strconv.FormatFloat(speed, 'f', -1, 64))
	b.WriteString(`">`)
	xml.EscapeText(&b, []byte(text))
	b.WriteString(`</prosody></voice></speak>`)
	return b.String()
}
