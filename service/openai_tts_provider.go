package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/difyz9/notetts/model"
	"github.com/sashabaranov/go-openai"
)

const openAIDefaultVoice = "alloy"

// OpenAITTSProvider OpenAI语音合成
type OpenAITTSProvider struct {
	client *openai.Client
	model  openai.SpeechModel
}

// NewOpenAITTSProvider 创建OpenAI语音合成句柄
func NewOpenAITTSProvider(apiKey string, cfg model.OpenAIConfig) *OpenAITTSProvider {
	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	speechModel := openai.TTSModel1
	if cfg.Model != "" {
		speechModel = openai.SpeechModel(cfg.Model)
	}
	return &OpenAITTSProvider{
		client: openai.NewClientWithConfig(clientConfig),
		model:  speechModel,
	}
}

// Name 获取提供商名称
func (o *OpenAITTSProvider) Name() string {
	return "OpenAI"
}

// Synthesize 调用 /audio/speech 并把音频写入 out
func (o *OpenAITTSProvider) Synthesize(ctx context.Context, req *model.SynthesisRequest, out io.Writer) (model.SynthesisResult, error) {
	voice := req.Voice
	if voice == "" {
		voice = openAIDefaultVoice
	}
	format := openai.SpeechResponseFormatMp3
	if req.ContainerType == model.ContainerWAV {
		format = openai.SpeechResponseFormatWav
	}

	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          o.model,
		Input:          req.Text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: format,
		Speed:          req.Speed,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return model.SynthesisResult{
				Reason: model.ReasonCanceled,
				Detail: fmt.Sprintf("HTTP %d: %s", apiErr.HTTPStatusCode, apiErr.Message),
			}, nil
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return model.SynthesisResult{
				Reason: model.ReasonCanceled,
				Detail: fmt.Sprintf("HTTP %d: %v", reqErr.HTTPStatusCode, reqErr.Err),
			}, nil
		}
		return model.SynthesisResult{}, fmt.Errorf("调用OpenAI语音合成失败: %w", err)
	}
	defer resp.Close()

	if _, err := io.Copy(out, resp); err != nil {
		return model.SynthesisResult{}, fmt.Errorf("读取音频数据失败: %w", err)
	}
	return model.SynthesisResult{Reason: model.ReasonSynthesizingAudioCompleted}, nil
}

// Close OpenAI 客户端没有需要释放的资源
func (o *OpenAITTSProvider) Close() error {
	return nil
}
