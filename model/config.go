package model

// Config 总配置结构
type Config struct {
	Settings  Settings        `yaml:"settings"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Notice    NoticeConfig    `yaml:"notice"`
	Store     StoreConfig     `yaml:"store"`
	Azure     AzureConfig     `yaml:"azure"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Tencent   TencentConfig   `yaml:"tencent"`
	Yandex    YandexConfig    `yaml:"yandex"`
}

// Settings 用户可见的插件设置，由 settings 命令读写
type Settings struct {
	Provider        string        `yaml:"provider"`
	Key             string        `yaml:"key"`
	SecretID        string        `yaml:"secret_id,omitempty"`
	FolderID        string        `yaml:"folder_id,omitempty"`
	Region          string        `yaml:"region"`
	RegionCode      string        `yaml:"region_code"`
	Voice           string        `yaml:"voice"`
	AudioFormat     string        `yaml:"audio_format"`
	AudioFormatType ContainerType `yaml:"audio_format_type"`
	Speed           float64       `yaml:"speed"`
	ReadScope       ReadScope     `yaml:"read_scope"`
	KeyHide         bool          `yaml:"key_hide"`
	FilterRule      string        `yaml:"filter_rule"`
	StripMarkdown   bool          `yaml:"strip_markdown"`
	FilePath        string        `yaml:"file_path"`
	Language        string        `yaml:"language"`
	NoticeSeconds   int           `yaml:"notice_seconds"`
}

// Normalize 重新计算派生字段
func (s *Settings) Normalize() {
	s.AudioFormatType = ContainerTypeOf(s.AudioFormat)
	if s.ReadScope == "" {
		s.ReadScope = ReadScopeOff
	}
	if s.Speed == 0 {
		s.Speed = 1.0
	}
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// TelemetryConfig 链路追踪配置
type TelemetryConfig struct {
	Trace       bool   `yaml:"trace"`
	ServiceName string `yaml:"service_name"`
}

// NoticeConfig 通知配置，nats_url 为空时只输出到终端
type NoticeConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// StoreConfig 本地键值存储配置，path 为空时使用内存存储
type StoreConfig struct {
	Path string `yaml:"path"`
}

// AzureConfig Azure语音服务配置
type AzureConfig struct {
	Endpoint string `yaml:"endpoint"` // 为空时根据 region 拼接
}

// OpenAIConfig OpenAI语音配置
type OpenAIConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// TencentConfig 腾讯云TTS配置
type TencentConfig struct {
	Endpoint       string `yaml:"endpoint"`
	PollIntervalMS int    `yaml:"poll_interval_ms"`
	MaxWaitMS      int    `yaml:"max_wait_ms"`
}

// YandexConfig Yandex SpeechKit配置
type YandexConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
}
