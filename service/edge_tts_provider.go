package service

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/difyz9/edge-tts-go/pkg/communicate"
	"github.com/difyz9/edge-tts-go/pkg/voices"
	"github.com/difyz9/notetts/model"
)

const edgeDefaultVoice = "zh-CN-XiaoyiNeural"

// EdgeTTSProvider Edge TTS提供商，免费且无需密钥，只输出MP3
type EdgeTTSProvider struct {
	connectTimeout int
	receiveTimeout int
}

// NewEdgeTTSProvider 创建Edge TTS提供商
func NewEdgeTTSProvider() *EdgeTTSProvider {
	return &EdgeTTSProvider{
		connectTimeout: 10,
		receiveTimeout: 60,
	}
}

// Name 获取提供商名称
func (etp *EdgeTTSProvider) Name() string {
	return "EdgeTTS"
}

// ValidateRequest Edge TTS 只能输出MP3
func (etp *EdgeTTSProvider) ValidateRequest(req *model.SynthesisRequest) error {
	if req.ContainerType != model.ContainerMP3 {
		return fmt.Errorf("%w: Edge TTS 只支持MP3输出，当前为 %s", ErrUnsupportedFormat, req.ContainerType)
	}
	return nil
}

// Synthesize 生成音频并写入 out
func (etp *EdgeTTSProvider) Synthesize(ctx context.Context, req *model.SynthesisRequest, out io.Writer) (model.SynthesisResult, error) {
	voice := req.Voice
	if voice == "" {
		voice = edgeDefaultVoice
	}

	comm, err := communicate.NewCommunicate(
		req.Text,
		voice,
		EdgeRate(req.Speed), // rate - 语速
		"+0%",               // volume - 音量
		"+0Hz",              // pitch - 音调
		"",                  // proxy
		etp.connectTimeout,
		etp.receiveTimeout,
	)
	if err != nil {
		return model.SynthesisResult{}, fmt.Errorf("创建Edge TTS通信失败: %w", err)
	}

	counter := &countingWriter{w: out}
	if err := comm.StreamToWriter(ctx, counter); err != nil {
		return model.SynthesisResult{}, fmt.Errorf("Edge TTS合成失败: %w", err)
	}
	if counter.n == 0 {
		return model.SynthesisResult{Reason: model.ReasonCanceled, Detail: "Edge TTS 没有返回音频数据"}, nil
	}
	return model.SynthesisResult{Reason: model.ReasonSynthesizingAudioCompleted}, nil
}

// ListVoices 列出可用的 Edge TTS 语音
func (etp *EdgeTTSProvider) ListVoices(ctx context.Context, languageFilter string) ([]model.Voice, error) {
	voiceList, err := voices.ListVoices(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("获取语音列表失败: %w", err)
	}

	filter := strings.ToLower(languageFilter)
	result := make([]model.Voice, 0, len(voiceList))
	for _, v := range voiceList {
		if filter != "" && !strings.HasPrefix(strings.ToLower(v.Locale), filter) {
			continue
		}
		result = append(result, model.Voice{ShortName: v.ShortName, Locale: v.Locale})
	}
	return result, nil
}

// Close Edge TTS 每次请求独立建连，连接在流结束时关闭
func (etp *EdgeTTSProvider) Close() error {
	return nil
}

// EdgeRate 把语速倍数转换成 Edge TTS 的百分比格式，如 1.2 -> "+20%"
func EdgeRate(speed float64) string {
	if speed == 0 {
		speed = 1
	}
	pct := int(math.Round((speed - 1) * 100))
	return fmt.Sprintf("%+d%%", pct)
}

// countingWriter 记录写入的字节数
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
