package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/difyz9/notetts/model"
	"github.com/nats-io/nats.go"
)

// Notifier 向用户展示通知
type Notifier interface {
	Notify(ctx context.Context, notice model.Notice)
}

// ConsoleNotifier 在终端打印通知
type ConsoleNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleNotifier 创建终端通知
func NewConsoleNotifier(w io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{w: w}
}

func (c *ConsoleNotifier) Notify(_ context.Context, notice model.Notice) {
	icon := "✅"
	if notice.Severity == model.SeverityError {
		icon = "❌"
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "%s %s\n", icon, notice.Message)
}

// LogNotifier 把通知写入结构化日志
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier 创建日志通知
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With(slog.String("component", "notice"))}
}

func (l *LogNotifier) Notify(ctx context.Context, notice model.Notice) {
	level := slog.LevelInfo
	if notice.Severity == model.SeverityError {
		level = slog.LevelError
	}
	l.logger.Log(ctx, level, notice.Message,
		slog.String("severity", string(notice.Severity)),
		slog.Duration("duration", notice.Duration))
}

// NATSNotifier 把通知以JSON发布到NATS主题，供宿主界面订阅
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewNATSNotifier 连接NATS并创建通知发布者
func NewNATSNotifier(url, subject string, logger *slog.Logger) (*NATSNotifier, error) {
	if subject == "" {
		subject = "notetts.notice"
	}
	conn, err := nats.Connect(url, nats.Name("notetts"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSNotifier{conn: conn, subject: subject, logger: logger}, nil
}

func (n *NATSNotifier) Notify(_ context.Context, notice model.Notice) {
	data, err := json.Marshal(notice)
	if err != nil {
		n.logger.Warn("failed to marshal notice", slogError(err))
		return
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		n.logger.Warn("failed to publish notice", slogError(err))
	}
}

// Close 刷新并关闭连接
func (n *NATSNotifier) Close() {
	_ = n.conn.Drain()
}

// MultiNotifier 同时发送给多个通知目标
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, notice model.Notice) {
	for _, n := range m {
		n.Notify(ctx, notice)
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
