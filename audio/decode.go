// Package audio 把合成服务返回的音频解码成可以直接播放的 PCM
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/difyz9/notetts/model"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// DefaultSampleRate 无法从格式中解析采样率时使用
const DefaultSampleRate = 16000

// ErrEmptyAudio 没有音频数据
var ErrEmptyAudio = errors.New("empty audio")

// PCM 16位交错采样
type PCM struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Duration 播放时长（秒）
func (p *PCM) Duration() float64 {
	if p.SampleRate == 0 || p.Channels == 0 {
		return 0
	}
	return float64(len(p.Samples)) / float64(p.SampleRate*p.Channels)
}

// DecodePCM 按数据头和格式名选择解码方式：RIFF 走 wav，mp3 格式走 go-mp3，其余按无头 16 位单声道处理
func DecodePCM(format string, data []byte) (*PCM, error) {
	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}
	switch {
	case bytes.HasPrefix(data, []byte("RIFF")):
		return decodeWAV(data)
	case model.ContainerTypeOf(format) == model.ContainerMP3 || bytes.HasPrefix(data, []byte("ID3")):
		return decodeMP3(data)
	default:
		return decodeRaw(format, data), nil
	}
}

func decodeMP3(data []byte) (*PCM, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	// go-mp3 总是输出 16 位立体声
	return &PCM{Samples: bytesToSamples(raw), SampleRate: dec.SampleRate(), Channels: 2}, nil
}

func decodeWAV(data []byte) (*PCM, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, errors.New("decode wav: invalid file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	return &PCM{
		Samples:    toInt16(buf, int(dec.BitDepth)),
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
	}, nil
}

func decodeRaw(format string, data []byte) *PCM {
	rate := model.SampleRateOf(format)
	if rate == 0 {
		rate = DefaultSampleRate
	}
	return &PCM{Samples: bytesToSamples(data), SampleRate: rate, Channels: 1}
}

// toInt16 把任意位深的采样缩放到 16 位
func toInt16(buf *goaudio.IntBuffer, bitDepth int) []int16 {
	out := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		switch bitDepth {
		case 8:
			out[i] = int16((v - 128) << 8)
		case 24:
			out[i] = int16(v >> 8)
		case 32:
			out[i] = int16(v >> 16)
		default:
			out[i] = int16(v)
		}
	}
	return out
}

func bytesToSamples(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return samples
}
