// Package player 通过 PortAudio 在默认输出设备上播放音频
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/difyz9/notetts/audio"
	"github.com/gordonklaus/portaudio"
)

const defaultFramesPerBuffer = 1024

// PortAudioPlayer 同一时间只播放一段音频
type PortAudioPlayer struct {
	framesPerBuffer int
	logger          *slog.Logger

	mu      sync.Mutex
	playing atomic.Bool
}

// NewPortAudioPlayer 创建播放器
func NewPortAudioPlayer(logger *slog.Logger) *PortAudioPlayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortAudioPlayer{
		framesPerBuffer: defaultFramesPerBuffer,
		logger:          logger.With(slog.String("component", "player")),
	}
}

// IsPlaying 是否正在播放
func (p *PortAudioPlayer) IsPlaying() bool {
	return p.playing.Load()
}

// Play 解码并播放，ctx 取消时立即停止
func (p *PortAudioPlayer) Play(ctx context.Context, format string, data []byte) error {
	pcm, err := audio.DecodePCM(format, data)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	buffer := make([]int16, p.framesPerBuffer*pcm.Channels)
	stream, err := portaudio.OpenDefaultStream(0, pcm.Channels, float64(pcm.SampleRate), p.framesPerBuffer, buffer)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}
	defer stream.Stop()

	p.playing.Store(true)
	defer p.playing.Store(false)

	p.logger.Debug("playback started",
		slog.Int("sample_rate", pcm.SampleRate),
		slog.Int("channels", pcm.Channels),
		slog.Float64("seconds", pcm.Duration()))

	for offset := 0; offset < len(pcm.Samples); offset += len(buffer) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := copy(buffer, pcm.Samples[offset:])
		clear(buffer[n:])
		if err := stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			return fmt.Errorf("write stream: %w", err)
		}
	}
	return nil
}
