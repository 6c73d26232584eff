package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/difyz9/notetts/model"
	"github.com/google/uuid"
)

// Session 一次朗读请求，由调用方持有，用于等待结果或提前结束
//
// 结果只会产生一次；Done 在合成、回调和播放全部结束后关闭。
type Session struct {
	ID string

	cancel   context.CancelFunc
	resolved chan struct{}
	done     chan struct{}
	once     sync.Once
	outcome  model.Outcome

	req     atomic.Pointer[model.SynthesisRequest]
	playing atomic.Bool
	audio   []byte // 播放模式下待播放的音频，只由会话自身的协程访问
}

func newSession(cancel context.CancelFunc) *Session {
	return &Session{
		ID:       uuid.NewString(),
		cancel:   cancel,
		resolved: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// resolve 记录结果，重复调用无效；返回本次是否生效
func (s *Session) resolve(outcome model.Outcome) bool {
	first := false
	s.once.Do(func() {
		s.outcome = outcome
		close(s.resolved)
		first = true
	})
	return first
}

// Wait 等待结果
func (s *Session) Wait(ctx context.Context) (model.Outcome, error) {
	select {
	case <-s.resolved:
		return s.outcome, nil
	case <-ctx.Done():
		return model.Outcome{}, ctx.Err()
	}
}

// Resolved 结果产生后关闭
func (s *Session) Resolved() <-chan struct{} {
	return s.resolved
}

// Done 会话的所有工作（包括播放）结束后关闭
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close 停止合成和播放，并等待句柄释放
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.cancel()
	<-s.done
}

// Abandon 停止会话，最多等待 grace 让句柄释放；超时后不再等待并返回 false。
// 被放弃的会话结果固定为 canceled，之后迟到的回应只会被丢弃。
func (s *Session) Abandon(grace time.Duration) bool {
	if s == nil {
		return true
	}
	s.cancel()

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-s.done:
		return true
	case <-timer.C:
		s.resolve(model.Outcome{Status: model.StatusCanceled, Err: context.Canceled})
		return false
	}
}

// Playing 是否正在播放
func (s *Session) Playing() bool {
	return s.playing.Load()
}

// Request 已构建的请求，构建前或构建失败时为 nil
func (s *Session) Request() *model.SynthesisRequest {
	return s.req.Load()
}
