package service

import (
	"context"
	"io"

	"github.com/difyz9/notetts/model"
)

// Synthesizer 一次请求期间持有的语音合成句柄
//
// Synthesize 把音频写入 out。服务端明确返回的失败（鉴权、参数等）放在
// SynthesisResult.Reason 中，网络或回调层面的错误通过 error 返回。
type Synthesizer interface {
	// Name 合成服务名称
	Name() string

	// Synthesize 合成语音并写入 out
	Synthesize(ctx context.Context, req *model.SynthesisRequest, out io.Writer) (model.SynthesisResult, error)

	// Close 释放句柄持有的资源
	Close() error
}

// RequestValidator 由需要在调用前检查请求的合成服务实现
type RequestValidator interface {
	ValidateRequest(req *model.SynthesisRequest) error
}

// VoiceLister 由支持查询语音列表的合成服务实现
type VoiceLister interface {
	ListVoices(ctx context.Context, languageFilter string) ([]model.Voice, error)
}

// ProviderFactory 按当前设置创建合成句柄
type ProviderFactory interface {
	CreateProvider(ctx context.Context, settings model.Settings) (Synthesizer, error)
}
