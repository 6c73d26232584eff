package service

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"

	"github.com/difyz9/notetts/model"
	tts "github.com/yandex-cloud/go-genproto/yandex/cloud/ai/tts/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	yandexDefaultEndpoint = "tts.api.cloud.yandex.net:443"
	yandexDefaultVoice    = "marina"
	yandexDefaultModel    = "general"
)

// YandexTTSProvider Yandex SpeechKit v3（gRPC流式合成）
type YandexTTSProvider struct {
	client   tts.SynthesizerClient
	conn     *grpc.ClientConn
	apiKey   string
	folderID string
	model    string
}

// NewYandexTTSProvider 建立gRPC连接并创建句柄
func NewYandexTTSProvider(_ context.Context, apiKey, folderID string, cfg model.YandexConfig) (*YandexTTSProvider, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = yandexDefaultEndpoint
	}
	speechModel := cfg.Model
	if speechModel == "" {
		speechModel = yandexDefaultModel
	}

	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to TTS service: %w", err)
	}

	return &YandexTTSProvider{
		client:   tts.NewSynthesizerClient(conn),
		conn:     conn,
		apiKey:   apiKey,
		folderID: folderID,
		model:    speechModel,
	}, nil
}

// Name 获取提供商名称
func (y *YandexTTSProvider) Name() string {
	return "Yandex"
}

// Synthesize 读取流式返回的音频块并写入 out
func (y *YandexTTSProvider) Synthesize(ctx context.Context, req *model.SynthesisRequest, out io.Writer) (model.SynthesisResult, error) {
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Api-Key "+y.apiKey)
	ctx = metadata.AppendToOutgoingContext(ctx, "x-folder-id", y.folderID)

	stream, err := y.client.UtteranceSynthesis(ctx, y.buildRequest(req))
	if err != nil {
		return y.classify(err)
	}

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return y.classify(err)
		}
		if chunk := resp.GetAudioChunk(); chunk != nil {
			if _, err := out.Write(chunk.GetData()); err != nil {
				return model.SynthesisResult{}, fmt.Errorf("写入音频数据失败: %w", err)
			}
		}
	}
	return model.SynthesisResult{Reason: model.ReasonSynthesizingAudioCompleted}, nil
}

func (y *YandexTTSProvider) buildRequest(req *model.SynthesisRequest) *tts.UtteranceSynthesisRequest {
	voice := req.Voice
	if voice == "" {
		voice = yandexDefaultVoice
	}
	speed := req.Speed
	if speed == 0 {
		speed = 1.0
	}

	r := &tts.UtteranceSynthesisRequest{}
	r.SetModel(y.model)
	r.SetText(req.Text)

	voiceHint := &tts.Hints{}
	voiceHint.SetVoice(voice)
	speedHint := &tts.Hints{}
	speedHint.SetSpeed(speed)
	r.SetHints([]*tts.Hints{voiceHint, speedHint})

	container := &tts.ContainerAudio{}
	if req.ContainerType == model.ContainerMP3 {
		container.SetContainerAudioType(tts.ContainerAudio_MP3)
	} else {
		container.SetContainerAudioType(tts.ContainerAudio_WAV)
	}
	audioSpec := &tts.AudioFormatOptions{}
	audioSpec.SetContainerAudio(container)
	r.SetOutputAudioSpec(audioSpec)
	r.SetLoudnessNormalizationType(tts.UtteranceSynthesisRequest_LUFS)

	return r
}

// classify 鉴权和参数错误作为服务端失败原因，其余作为传输错误
func (y *YandexTTSProvider) classify(err error) (model.SynthesisResult, error) {
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unauthenticated, codes.PermissionDenied, codes.InvalidArgument:
			return model.SynthesisResult{
				Reason: model.ReasonCanceled,
				Detail: fmt.Sprintf("%s: %s", st.Code(), st.Message()),
			}, nil
		}
	}
	return model.SynthesisResult{}, fmt.Errorf("yandex synthesis: %w", err)
}

// Close 关闭gRPC连接
func (y *YandexTTSProvider) Close() error {
	return y.conn.Close()
}
