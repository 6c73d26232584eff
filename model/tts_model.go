package model

import (
	"path/filepath"
	"time"
)

// ContainerType 音频容器类型
type ContainerType string

const (
	ContainerMP3 ContainerType = "mp3"
	ContainerWAV ContainerType = "wav"
)

// ReadScope 没有选区时的朗读范围
type ReadScope string

const (
	ReadScopeBefore ReadScope = "before" // 文档开头到光标
	ReadScopeAfter  ReadScope = "after"  // 光标到文档末尾
	ReadScopeOff    ReadScope = "off"    // 只读选区
)

// Valid 判断朗读范围是否合法
func (r ReadScope) Valid() bool {
	switch r {
	case ReadScopeBefore, ReadScopeAfter, ReadScopeOff:
		return true
	}
	return false
}

// OutputMode 输出方式
type OutputMode string

const (
	ModePlay OutputMode = "play"
	ModeSave OutputMode = "save"
)

// SynthesisRequest 单次语音合成请求
type SynthesisRequest struct {
	Text          string
	SSML          string
	Voice         string
	Locale        string
	Speed         float64
	Mode          OutputMode
	FilePath      string
	Filename      string
	AudioFormat   string
	ContainerType ContainerType
}

// TargetPath 保存模式下的目标文件路径
func (r *SynthesisRequest) TargetPath() string {
	if r.Mode != ModeSave {
		return ""
	}
	return filepath.Join(r.FilePath, r.Filename+"."+string(r.ContainerType))
}

// ResultReason 合成服务返回的完成原因
type ResultReason int

const (
	ReasonUnknown ResultReason = iota
	ReasonSynthesizingAudioCompleted
	ReasonCanceled
)

func (r ResultReason) String() string {
	switch r {
	case ReasonSynthesizingAudioCompleted:
		return "SynthesizingAudioCompleted"
	case ReasonCanceled:
		return "Canceled"
	}
	return "Unknown"
}

// SynthesisResult 合成服务的回应
type SynthesisResult struct {
	Reason ResultReason
	Detail string // 非成功原因的详细说明
}

// Status 一次请求的最终状态
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusEmpty     Status = "empty"    // 没有需要合成的文本
	StatusCanceled  Status = "canceled" // 被新请求取代
)

// Outcome 一次请求的结果，每个会话只产生一次
type Outcome struct {
	Status Status
	Reason ResultReason
	Path   string
	Err    error
}

// OK 是否合成成功
func (o Outcome) OK() bool { return o.Status == StatusCompleted }

// Severity 通知级别
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notice 面向用户的短消息
type Notice struct {
	Message  string        `json:"message"`
	Severity Severity      `json:"severity"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Voice 语音列表中的一项
type Voice struct {
	ShortName string
	Locale    string
	Gender    string
}

// DisplayName 语音下拉框中展示的名称，例如 "en-US-JennyNeural (Female)"
func (v Voice) DisplayName() string {
	if v.Gender == "" {
		return v.ShortName
	}
	return v.ShortName + " (" + v.Gender + ")"
}
