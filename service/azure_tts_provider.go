package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/difyz9/notetts/model"
)

const (
	azureDefaultFormat = "audio-16khz-32kbitrate-mono-mp3"
	azureDefaultVoice  = "zh-CN-XiaoxiaoNeural"
)

// AzureTTSProvider Azure语音服务（REST接口）
type AzureTTSProvider struct {
	key      string
	region   string
	endpoint string
	client   *http.Client
}

// NewAzureTTSProvider 创建Azure语音服务句柄，endpoint 为空时按 region 拼接
func NewAzureTTSProvider(key, region, endpoint string) *AzureTTSProvider {
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.tts.speech.microsoft.com", region)
	}
	return &AzureTTSProvider{
		key:      key,
		region:   region,
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

// Name 获取提供商名称
func (a *AzureTTSProvider) Name() string {
	return "Azure"
}

// Synthesize 发送SSML并把返回的音频写入 out
func (a *AzureTTSProvider) Synthesize(ctx context.Context, req *model.SynthesisRequest, out io.Writer) (model.SynthesisResult, error) {
	voice := req.Voice
	if voice == "" {
		voice = azureDefaultVoice
	}
	ssml := req.SSML
	if ssml == "" {
		ssml = BuildSSML(req.Locale, voice, req.Speed, req.Text)
	}
	format := req.AudioFormat
	if format == "" {
		format = azureDefaultFormat
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"/cognitiveservices/v1", strings.NewReader(ssml))
	if err != nil {
		return model.SynthesisResult{}, fmt.Errorf("创建请求失败: %w", err)
	}
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", a.key)
	httpReq.Header.Set("Content-Type", "application/ssml+xml")
	httpReq.Header.Set("X-Microsoft-OutputFormat", format)
	httpReq.Header.Set("User-Agent", "notetts")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return model.SynthesisResult{}, fmt.Errorf("调用Azure语音服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return model.SynthesisResult{
			Reason: model.ReasonCanceled,
			Detail: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}, nil
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		return model.SynthesisResult{}, fmt.Errorf("读取音频数据失败: %w", err)
	}
	return model.SynthesisResult{Reason: model.ReasonSynthesizingAudioCompleted}, nil
}

type azureVoice struct {
	ShortName string `json:"ShortName"`
	Locale    string `json:"Locale"`
	Gender    string `json:"Gender"`
}

// ListVoices 查询当前区域可用的语音
func (a *AzureTTSProvider) ListVoices(ctx context.Context, languageFilter string) ([]model.Voice, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint+"/cognitiveservices/voices/list", nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", a.key)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("获取语音列表失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("获取语音列表失败，HTTP状态码: %d", resp.StatusCode)
	}

	var list []azureVoice
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("解析语音列表失败: %w", err)
	}

	filter := strings.ToLower(languageFilter)
	voices := make([]model.Voice, 0, len(list))
	for _, v := range list {
		if filter != "" && !strings.HasPrefix(strings.ToLower(v.Locale), filter) {
			continue
		}
		voices = append(voices, model.Voice{ShortName: v.ShortName, Locale: v.Locale, Gender: v.Gender})
	}
	return voices, nil
}

// Close 释放空闲连接
func (a *AzureTTSProvider) Close() error {
	a.client.CloseIdleConnections()
	return nil
}
