package service

import "errors"

var (
	// ErrInvalidSetting 设置值不合法
	ErrInvalidSetting = errors.New("invalid setting")
	// ErrUnknownProvider 不支持的合成服务
	ErrUnknownProvider = errors.New("unknown tts provider")
	// ErrUnsupportedFormat 合成服务不支持请求的音频格式
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrNothingToSynthesize 提取和过滤后没有可朗读的文本
	ErrNothingToSynthesize = errors.New("nothing to synthesize")
)
