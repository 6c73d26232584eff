/*
笔记朗读工具 - 运行时组件装配

Copyright © 2025 TTS App Contributors
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/difyz9/notetts/player"
	"github.com/difyz9/notetts/service"
)

// app 一次命令执行所需的全部组件
type app struct {
	settings *service.SettingsStore
	logger   *slog.Logger
	kv       *service.KVStore
	speech   *service.SpeechService
	closers  []func(context.Context) error
}

// newApp 加载配置并装配组件；withPlayer 为 false 时播放模式只合成不出声
func newApp(ctx context.Context, withPlayer bool) (*app, error) {
	settings, err := service.LoadSettingsStore(configFile)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	config := settings.Config()

	logger := service.NewLogger(config.Log, os.Stderr)
	a := &app{settings: settings, logger: logger}

	shutdown, err := service.SetupTelemetry(ctx, config.Telemetry, os.Stderr, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化链路追踪失败: %w", err)
	}
	a.closers = append(a.closers, shutdown)

	kv, err := service.OpenKVStore(ctx, config.Store.Path)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("打开本地存储失败: %w", err)
	}
	a.kv = kv
	a.closers = append(a.closers, func(context.Context) error { return kv.Close() })

	notifiers := service.MultiNotifier{
		service.NewConsoleNotifier(os.Stdout),
		service.NewLogNotifier(logger),
	}
	if config.Notice.NATSURL != "" {
		nn, err := service.NewNATSNotifier(config.Notice.NATSURL, config.Notice.Subject, logger)
		if err != nil {
			logger.Warn("nats notifier disabled", slog.String("error", err.Error()))
		} else {
			notifiers = append(notifiers, nn)
			a.closers = append(a.closers, func(context.Context) error { nn.Close(); return nil })
		}
	}

	var p service.Player
	if withPlayer {
		p = player.NewPortAudioPlayer(logger)
	}

	factory := service.NewTTSProviderFactory(&config)
	a.speech = service.NewSpeechService(settings, factory, notifiers, p, kv, logger)
	return a, nil
}

// Close 按创建的相反顺序释放组件
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
