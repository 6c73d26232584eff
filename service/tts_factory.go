package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/difyz9/notetts/model"
)

// 支持的合成服务
const (
	ProviderAzure   = "azure"
	ProviderEdge    = "edge"
	ProviderTencent = "tencent"
	ProviderOpenAI  = "openai"
	ProviderYandex  = "yandex"
)

// Providers 所有支持的合成服务名称
var Providers = []string{ProviderAzure, ProviderEdge, ProviderTencent, ProviderOpenAI, ProviderYandex}

// TTSProviderFactory 根据设置创建相应的合成服务
type TTSProviderFactory struct {
	config *model.Config
}

// NewTTSProviderFactory 创建工厂，config 提供各服务的地址等非用户设置
func NewTTSProviderFactory(config *model.Config) *TTSProviderFactory {
	return &TTSProviderFactory{config: config}
}

// CreateProvider 根据设置创建合成句柄；凭据不在这里校验，由服务端返回失败原因
func (factory *TTSProviderFactory) CreateProvider(ctx context.Context, settings model.Settings) (Synthesizer, error) {
	switch normalizeProvider(settings.Provider) {
	case ProviderAzure:
		return NewAzureTTSProvider(settings.Key, settings.Region, factory.config.Azure.Endpoint), nil
	case ProviderEdge:
		return NewEdgeTTSProvider(), nil
	case ProviderTencent:
		return NewTencentTTSProvider(settings.SecretID, settings.Key, settings.Region, factory.config.Tencent)
	case ProviderOpenAI:
		return NewOpenAITTSProvider(settings.Key, factory.config.OpenAI), nil
	case ProviderYandex:
		return NewYandexTTSProvider(ctx, settings.Key, settings.FolderID, factory.config.Yandex)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, settings.Provider)
	}
}

// RecommendedRateLimit 各服务建议的每秒请求数
func RecommendedRateLimit(provider string) int {
	switch normalizeProvider(provider) {
	case ProviderTencent:
		return 5
	case ProviderOpenAI:
		return 3
	case ProviderEdge, ProviderYandex:
		return 10
	default:
		return 20
	}
}

func normalizeProvider(provider string) string {
	switch p := strings.ToLower(strings.TrimSpace(provider)); p {
	case "", "microsoft":
		return ProviderAzure
	case "edgetts":
		return ProviderEdge
	case "tencentcloud":
		return ProviderTencent
	default:
		return p
	}
}
