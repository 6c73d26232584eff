package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/difyz9/notetts/model"
)

// Field 可由用户修改的设置项
type Field string

const (
	FieldProvider      Field = "provider"
	FieldKey           Field = "key"
	FieldSecretID      Field = "secret_id"
	FieldFolderID      Field = "folder_id"
	FieldRegion        Field = "region"
	FieldRegionCode    Field = "region_code"
	FieldVoice         Field = "voice"
	FieldAudioFormat   Field = "audio_format"
	FieldSpeed         Field = "speed"
	FieldReadScope     Field = "read_scope"
	FieldKeyHide       Field = "key_hide"
	FieldFilterRule    Field = "filter_rule"
	FieldStripMarkdown Field = "strip_markdown"
	FieldFilePath      Field = "file_path"
	FieldLanguage      Field = "language"
)

// Kind 设置控件类型
type Kind string

const (
	KindText     Kind = "text"
	KindTextArea Kind = "textArea"
	KindSelect   Kind = "select"
	KindToggle   Kind = "toggle"
	KindSlider   Kind = "slider"
)

// AudioFormats 可选的输出格式
var AudioFormats = []string{
	"audio-16khz-32kbitrate-mono-mp3",
	"audio-24khz-48kbitrate-mono-mp3",
	"audio-48khz-96kbitrate-mono-mp3",
	"riff-16khz-16bit-mono-pcm",
	"riff-24khz-16bit-mono-pcm",
	"riff-48khz-16bit-mono-pcm",
	"raw-16khz-16bit-mono-pcm",
	"raw-24khz-16bit-mono-pcm",
}

// Descriptor 一个设置项的展示和修改方式
type Descriptor struct {
	Field    Field
	Kind     Kind
	Name     string
	Desc     string
	Password bool
	Options  []string // select
	Min      float64  // slider
	Max      float64
	Step     float64

	// OnChange 在值写入之后、保存之前调用
	OnChange func(s *model.Settings)
}

// DefaultDescriptors 所有设置项
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		{Field: FieldProvider, Kind: KindSelect, Name: "合成服务", Desc: "使用的语音合成服务", Options: Providers},
		{Field: FieldKey, Kind: KindText, Name: "密钥", Desc: "Azure/OpenAI/Yandex 的密钥，腾讯云的 SecretKey", Password: true},
		{Field: FieldSecretID, Kind: KindText, Name: "SecretId", Desc: "腾讯云 SecretId", Password: true},
		{Field: FieldFolderID, Kind: KindText, Name: "Folder ID", Desc: "Yandex Cloud 目录"},
		{Field: FieldRegion, Kind: KindText, Name: "区域", Desc: "服务区域，如 eastus"},
		{Field: FieldRegionCode, Kind: KindText, Name: "语言代码", Desc: "SSML 的 xml:lang，如 zh-CN"},
		{Field: FieldVoice, Kind: KindText, Name: "语音", Desc: "语音名称，括号内的说明会被忽略",
			OnChange: func(s *model.Settings) {
				if locale := model.LocaleOfVoice(strings.TrimSpace(model.VoiceDisplayName(s.Voice))); locale != "" {
					s.RegionCode = locale
				}
			}},
		{Field: FieldAudioFormat, Kind: KindSelect, Name: "音频格式", Desc: "输出音频格式", Options: AudioFormats,
			OnChange: func(s *model.Settings) {
				s.AudioFormatType = model.ContainerTypeOf(s.AudioFormat)
			}},
		{Field: FieldSpeed, Kind: KindSlider, Name: "语速", Desc: "语速倍数", Min: MinSpeed, Max: MaxSpeed, Step: SpeedStep},
		{Field: FieldReadScope, Kind: KindSelect, Name: "朗读范围", Desc: "没有选区时朗读光标之前或之后的内容",
			Options: []string{string(model.ReadScopeBefore), string(model.ReadScopeAfter), string(model.ReadScopeOff)}},
		{Field: FieldKeyHide, Kind: KindToggle, Name: "隐藏密钥", Desc: "显示设置时隐藏密钥"},
		{Field: FieldFilterRule, Kind: KindTextArea, Name: "过滤规则", Desc: "形如 /pattern/flags，匹配的内容替换为空格"},
		{Field: FieldStripMarkdown, Kind: KindToggle, Name: "去除Markdown", Desc: "朗读前去掉 Markdown 语法"},
		{Field: FieldFilePath, Kind: KindText, Name: "保存目录", Desc: "保存音频的默认目录"},
		{Field: FieldLanguage, Kind: KindSelect, Name: "通知语言", Desc: "通知消息的语言", Options: []string{"zh", "en"}},
	}
}

// SettingsBinder 把设置项描述绑定到设置存储
type SettingsBinder struct {
	store       *SettingsStore
	descriptors []Descriptor
	logger      *slog.Logger
}

// NewSettingsBinder 创建设置绑定
func NewSettingsBinder(store *SettingsStore, logger *slog.Logger) *SettingsBinder {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsBinder{
		store:       store,
		descriptors: DefaultDescriptors(),
		logger:      logger.With(slog.String("component", "settings")),
	}
}

// Descriptors 所有设置项描述
func (b *SettingsBinder) Descriptors() []Descriptor {
	return b.descriptors
}

// Lookup 按键名查找设置项
func (b *SettingsBinder) Lookup(key string) (Descriptor, bool) {
	for _, d := range b.descriptors {
		if string(d.Field) == key {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Render 以表格输出当前设置；隐藏密钥时密码项显示为掩码
func (b *SettingsBinder) Render(w io.Writer) error {
	settings := b.store.Settings()

	icon := "👁"
	if settings.KeyHide {
		icon = "🙈"
	}
	fmt.Fprintf(w, "⚙️  设置 (%s)  %s\n\n", b.store.Path(), icon)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "键\t名称\t类型\t值\t说明")
	for _, d := range b.descriptors {
		value := FieldValue(&settings, d.Field)
		if d.Password && settings.KeyHide && value != "" {
			value = strings.Repeat("*", 8)
		}
		if d.Kind == KindSlider {
			value = fmt.Sprintf("%s [%.1f-%.1f]", value, d.Min, d.Max)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Field, d.Name, d.Kind, value, d.Desc)
	}
	return tw.Flush()
}

// Set 解析并校验新值，写入后调用回调并保存
func (b *SettingsBinder) Set(ctx context.Context, key, raw string) error {
	d, ok := b.Lookup(key)
	if !ok {
		return fmt.Errorf("%w: 未知的设置项 %q", ErrInvalidSetting, key)
	}

	value, err := parseValue(d, raw)
	if err != nil {
		return err
	}

	b.store.Update(func(s *model.Settings) {
		applyValue(s, d.Field, value)
		if d.OnChange != nil {
			d.OnChange(s)
		}
	})
	if err := b.store.Save(); err != nil {
		return err
	}

	logged := fmt.Sprint(value)
	if d.Password {
		logged = "***"
	}
	b.logger.InfoContext(ctx, "setting changed", slog.String("field", string(d.Field)), slog.String("value", logged))
	return nil
}

// ToggleKeyHide 切换密钥隐藏并保存，返回新状态
func (b *SettingsBinder) ToggleKeyHide(ctx context.Context) (bool, error) {
	settings := b.store.Update(func(s *model.Settings) {
		s.KeyHide = !s.KeyHide
	})
	if err := b.store.Save(); err != nil {
		return settings.KeyHide, err
	}
	b.logger.InfoContext(ctx, "key visibility toggled", slog.Bool("hidden", settings.KeyHide))
	return settings.KeyHide, nil
}

// parseValue 按控件类型解析输入
func parseValue(d Descriptor, raw string) (any, error) {
	switch d.Kind {
	case KindText:
		return strings.TrimSpace(raw), nil
	case KindTextArea:
		if d.Field == FieldFilterRule {
			if err := ValidateFilterRule(raw); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidSetting, err)
			}
		}
		return raw, nil
	case KindSelect:
		v := strings.TrimSpace(raw)
		if !slices.Contains(d.Options, v) {
			return nil, fmt.Errorf("%w: %s 只能是 %s", ErrInvalidSetting, d.Field, strings.Join(d.Options, ", "))
		}
		return v, nil
	case KindToggle:
		v, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %s 需要 true 或 false", ErrInvalidSetting, d.Field)
		}
		return v, nil
	case KindSlider:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s 需要数字", ErrInvalidSetting, d.Field)
		}
		if v < d.Min || v > d.Max {
			return nil, fmt.Errorf("%w: %s 超出范围 [%.1f, %.1f]", ErrInvalidSetting, d.Field, d.Min, d.Max)
		}
		return snapToStep(v, d.Min, d.Step), nil
	default:
		return nil, fmt.Errorf("%w: 未知的控件类型 %s", ErrInvalidSetting, d.Kind)
	}
}

// snapToStep 对齐到最近的刻度
func snapToStep(v, lo, step float64) float64 {
	if step <= 0 {
		return v
	}
	snapped := lo + math.Round((v-lo)/step)*step
	return math.Round(snapped*1000) / 1000
}

// FieldValue 读取设置项的展示值
func FieldValue(s *model.Settings, f Field) string {
	switch f {
	case FieldProvider:
		return s.Provider
	case FieldKey:
		return s.Key
	case FieldSecretID:
		return s.SecretID
	case FieldFolderID:
		return s.FolderID
	case FieldRegion:
		return s.Region
	case FieldRegionCode:
		return s.RegionCode
	case FieldVoice:
		return s.Voice
	case FieldAudioFormat:
		return s.AudioFormat
	case FieldSpeed:
		return strconv.FormatFloat(s.Speed, 'f', 1, 64)
	case FieldReadScope:
		return string(s.ReadScope)
	case FieldKeyHide:
		return strconv.FormatBool(s.KeyHide)
	case FieldFilterRule:
		return s.FilterRule
	case FieldStripMarkdown:
		return strconv.FormatBool(s.StripMarkdown)
	case FieldFilePath:
		return s.FilePath
	case FieldLanguage:
		return s.Language
	}
	return ""
}

func applyValue(s *model.Settings, f Field, v any) {
	switch f {
	case FieldProvider:
		s.Provider = v.(string)
	case FieldKey:
		s.Key = v.(string)
	case FieldSecretID:
		s.SecretID = v.(string)
	case FieldFolderID:
		s.FolderID = v.(string)
	case FieldRegion:
		s.Region = v.(string)
	case FieldRegionCode:
		s.RegionCode = v.(string)
	case FieldVoice:
		s.Voice = v.(string)
	case FieldAudioFormat:
		s.AudioFormat = v.(string)
	case FieldSpeed:
		s.Speed = v.(float64)
	case FieldReadScope:
		s.ReadScope = model.ReadScope(v.(string))
	case FieldKeyHide:
		s.KeyHide = v.(bool)
	case FieldFilterRule:
		s.FilterRule = v.(string)
	case FieldStripMarkdown:
		s.StripMarkdown = v.(bool)
	case FieldFilePath:
		s.FilePath = v.(string)
	case FieldLanguage:
		s.Language = v.(string)
	}
}
