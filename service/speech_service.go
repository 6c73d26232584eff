package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/difyz9/notetts/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const tracerName = "github.com/difyz9/notetts/service"

// defaultTeardownGrace 新请求等待上一个请求释放句柄的最长时间
const defaultTeardownGrace = 500 * time.Millisecond

// Player 播放合成好的音频
type Player interface {
	Play(ctx context.Context, format string, audio []byte) error
}

// SettingsSource 提供当前设置
type SettingsSource interface {
	Settings() model.Settings
}

// failureKind 失败来源，决定通知内容
type failureKind int

const (
	failNone failureKind = iota
	failSetup
	failProvider
	failTransport
)

// SpeechService 朗读请求的生命周期：拆除上一个会话、构建请求、调用合成服务、通知、播放
type SpeechService struct {
	settings SettingsSource
	builder  *RequestBuilder
	factory  ProviderFactory
	notifier Notifier
	player   Player
	store    KeyValue
	logger   *slog.Logger
	tracer   trace.Tracer

	// 部分合成服务的 SDK 不响应取消，超过这个时间就放弃上一个请求
	teardownGrace time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewSpeechService 创建朗读服务；player 为 nil 时播放模式只合成不出声，store 可以为 nil
func NewSpeechService(settings SettingsSource, factory ProviderFactory, notifier Notifier, player Player, store KeyValue, logger *slog.Logger) *SpeechService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SpeechService{
		settings: settings,
		builder:  NewRequestBuilder(store),
		factory:  factory,
		notifier: notifier,
		player:   player,
		store:    store,
		logger:   logger.With(slog.String("component", "speech")),
		tracer:   otel.Tracer(tracerName),
		limiters: make(map[string]*rate.Limiter),

		teardownGrace: defaultTeardownGrace,
	}
}

// Speak 开始新的朗读请求。prev 不为 nil 时先停止它并等待其句柄释放，
// 等待超过 teardownGrace 就放弃它。
// onDone 在结果产生前后的清理阶段调用一次，不论成功与否。
func (svc *SpeechService) Speak(ctx context.Context, prev *Session, opts SpeakOptions, onDone func()) *Session {
	svc.Stop(prev)

	ctx, cancel := context.WithCancel(ctx)
	s := newSession(cancel)
	go svc.run(ctx, s, opts, onDone)
	return s
}

// Stop 停止会话，句柄迟迟不释放时放弃等待
func (svc *SpeechService) Stop(s *Session) {
	if s == nil {
		return
	}
	if !s.Abandon(svc.teardownGrace) {
		svc.logger.Warn("previous request did not release in time, abandoning it",
			slog.String("session", s.ID),
			slog.Duration("grace", svc.teardownGrace))
	}
}

func (svc *SpeechService) run(ctx context.Context, s *Session, opts SpeakOptions, onDone func()) {
	defer close(s.done)
	defer s.cancel()

	ctx, span := svc.tracer.Start(ctx, "speech.speak",
		trace.WithAttributes(attribute.String("session.id", s.ID)))
	defer span.End()

	settings := svc.settings.Settings()
	logger := svc.logger.With(slog.String("session", s.ID), slog.String("provider", normalizeProvider(settings.Provider)))

	outcome, kind := svc.attempt(ctx, s, settings, opts, logger)

	span.SetAttributes(attribute.String("outcome.status", string(outcome.Status)))
	if outcome.Status == model.StatusFailed {
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, outcome.Err.Error())
	}

	svc.report(ctx, settings, outcome, kind, logger)
	s.resolve(outcome)
	if onDone != nil {
		onDone()
	}

	req := s.Request()
	if outcome.OK() && req != nil && req.Mode == model.ModePlay && svc.player != nil {
		svc.play(ctx, s, settings, req, logger)
	}
}

// attempt 执行一次合成，返回结果和失败来源；句柄在返回前释放
func (svc *SpeechService) attempt(ctx context.Context, s *Session, settings model.Settings, opts SpeakOptions, logger *slog.Logger) (outcome model.Outcome, kind failureKind) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic during synthesis", slog.Any("panic", r))
			outcome = model.Outcome{Status: model.StatusFailed, Err: fmt.Errorf("panic: %v", r)}
			kind = failSetup
		}
	}()

	req, err := svc.builder.Build(ctx, settings, opts)
	if err != nil {
		return model.Outcome{Status: model.StatusFailed, Err: err}, failSetup
	}
	s.req.Store(req)

	if req.Text == "" {
		logger.Info("nothing to synthesize")
		return model.Outcome{Status: model.StatusEmpty, Err: ErrNothingToSynthesize}, failNone
	}

	synth, err := svc.factory.CreateProvider(ctx, settings)
	if err != nil {
		return model.Outcome{Status: model.StatusFailed, Err: err}, failSetup
	}
	defer func() {
		if err := synth.Close(); err != nil {
			logger.Warn("failed to close synthesizer", slogError(err))
		}
	}()

	if v, ok := synth.(RequestValidator); ok {
		if err := v.ValidateRequest(req); err != nil {
			return model.Outcome{Status: model.StatusFailed, Err: err}, failSetup
		}
	}

	if err := svc.limiter(settings.Provider).Wait(ctx); err != nil {
		return model.Outcome{Status: model.StatusCanceled, Err: err}, failNone
	}

	sink, err := newAudioSink(req)
	if err != nil {
		return model.Outcome{Status: model.StatusFailed, Err: err}, failSetup
	}

	logger.Info("synthesizing",
		slog.String("mode", string(req.Mode)),
		slog.String("voice", req.Voice),
		slog.Int("chars", len([]rune(req.Text))))
	start := time.Now()
	result, err := synth.Synthesize(ctx, req, sink)

	outcome, kind = classifyOutcome(ctx, result, err)
	if cerr := sink.finish(outcome.OK()); cerr != nil && outcome.OK() {
		outcome = model.Outcome{Status: model.StatusFailed, Reason: result.Reason, Err: cerr}
		kind = failTransport
	}
	if outcome.OK() {
		outcome.Path = req.TargetPath()
		s.audio = sink.bytes()
		svc.remember(ctx, req, logger)
	}
	logger.Info("synthesis finished",
		slog.String("status", string(outcome.Status)),
		slog.String("reason", result.Reason.String()),
		slog.Duration("elapsed", time.Since(start)))
	return outcome, kind
}

// classifyOutcome 把合成服务的返回归入结果分类；被新请求取代优先于其他错误
func classifyOutcome(ctx context.Context, result model.SynthesisResult, err error) (model.Outcome, failureKind) {
	switch {
	case ctx.Err() != nil:
		return model.Outcome{Status: model.StatusCanceled, Reason: result.Reason, Err: ctx.Err()}, failNone
	case err != nil:
		return model.Outcome{Status: model.StatusFailed, Reason: result.Reason, Err: err}, failTransport
	case result.Reason == model.ReasonSynthesizingAudioCompleted:
		return model.Outcome{Status: model.StatusCompleted, Reason: result.Reason}, failNone
	default:
		detail := result.Detail
		if detail == "" {
			detail = "no detail"
		}
		return model.Outcome{
			Status: model.StatusFailed,
			Reason: result.Reason,
			Err:    fmt.Errorf("synthesis %s: %s", result.Reason, detail),
		}, failProvider
	}
}

// report 按结果发送通知；空文本和被取代的请求不通知
func (svc *SpeechService) report(ctx context.Context, settings model.Settings, outcome model.Outcome, kind failureKind, logger *slog.Logger) {
	if svc.notifier == nil {
		return
	}
	lang := settings.Language
	duration := time.Duration(settings.NoticeSeconds) * time.Second

	var notice model.Notice
	switch outcome.Status {
	case model.StatusCompleted:
		notice = model.Notice{Message: localize(lang, msgPlayCompleted), Severity: model.SeveritySuccess}
		if outcome.Path != "" {
			notice.Message = localize(lang, msgSaveCompleted, outcome.Path)
		}
	case model.StatusFailed:
		logger.Error("synthesis failed", slogError(outcome.Err))
		notice.Severity = model.SeverityError
		switch kind {
		case failProvider:
			notice.Message = localize(lang, msgSynthesisFailed)
		case failSetup:
			notice.Message = localize(lang, msgSetupFailed, outcome.Err)
		default:
			notice.Message = localize(lang, msgSynthesisError, outcome.Err)
		}
	default:
		return
	}
	notice.Duration = duration
	svc.notifier.Notify(ctx, notice)
}

// play 播放内存中的音频，直到播完或会话被关闭
func (svc *SpeechService) play(ctx context.Context, s *Session, settings model.Settings, req *model.SynthesisRequest, logger *slog.Logger) {
	audio := s.audio
	s.audio = nil
	if len(audio) == 0 {
		return
	}

	s.playing.Store(true)
	defer s.playing.Store(false)

	err := svc.player.Play(ctx, req.AudioFormat, audio)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		logger.Debug("playback stopped")
	default:
		logger.Error("playback failed", slogError(err))
		if svc.notifier != nil {
			svc.notifier.Notify(ctx, model.Notice{
				Message:  localize(settings.Language, msgPlaybackFailed, err),
				Severity: model.SeverityError,
				Duration: time.Duration(settings.NoticeSeconds) * time.Second,
			})
		}
	}
}

// remember 记录最近一次保存的位置
func (svc *SpeechService) remember(ctx context.Context, req *model.SynthesisRequest, logger *slog.Logger) {
	if svc.store == nil || req.Mode != model.ModeSave {
		return
	}
	if err := svc.store.Set(ctx, KeyLastOutputDir, req.FilePath); err != nil {
		logger.Warn("failed to store last output dir", slogError(err))
	}
	if err := svc.store.Set(ctx, KeyLastOutputFile, req.TargetPath()); err != nil {
		logger.Warn("failed to store last output file", slogError(err))
	}
}

// limiter 每个合成服务共用一个限流器
func (svc *SpeechService) limiter(provider string) *rate.Limiter {
	name := normalizeProvider(provider)
	svc.mu.Lock()
	defer svc.mu.Unlock()
	l, ok := svc.limiters[name]
	if !ok {
		rps := RecommendedRateLimit(name)
		l = rate.NewLimiter(rate.Limit(rps), rps)
		svc.limiters[name] = l
	}
	return l
}

// ListVoices 用当前设置查询语音列表
func (svc *SpeechService) ListVoices(ctx context.Context, languageFilter string) ([]model.Voice, error) {
	settings := svc.settings.Settings()
	synth, err := svc.factory.CreateProvider(ctx, settings)
	if err != nil {
		return nil, err
	}
	defer synth.Close()

	lister, ok := synth.(VoiceLister)
	if !ok {
		return nil, fmt.Errorf("%s 不支持查询语音列表", synth.Name())
	}
	return lister.ListVoices(ctx, languageFilter)
}

// audioSink 合成输出：保存模式写文件，播放模式写内存
type audioSink struct {
	io.Writer
	file *os.File
	path string
	buf  *bytes.Buffer
}

func newAudioSink(req *model.SynthesisRequest) (*audioSink, error) {
	if req.Mode != model.ModeSave {
		buf := &bytes.Buffer{}
		return &audioSink{Writer: buf, buf: buf}, nil
	}

	path := req.TargetPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("创建音频文件失败: %w", err)
	}
	return &audioSink{Writer: f, file: f, path: path}, nil
}

// finish 关闭文件；未成功时删除写了一半的文件
func (a *audioSink) finish(ok bool) error {
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	if !ok || err != nil {
		os.Remove(a.path)
	}
	return err
}

func (a *audioSink) bytes() []byte {
	if a.buf == nil {
		return nil
	}
	return a.buf.Bytes()
}
