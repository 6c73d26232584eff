package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/difyz9/notetts/model"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	sdkerrors "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/errors"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	tts "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tts/v20190823"
	"golang.org/x/time/rate"
)

const (
	tencentDefaultVoice    = 101008 // 智琪 - 女声
	tencentDefaultEndpoint = "tts.tencentcloudapi.com"
)

// 腾讯云长文本任务状态
const (
	tencentTaskWaiting = 0
	tencentTaskRunning = 1
	tencentTaskSuccess = 2
	tencentTaskFailed  = 3
)

// TencentTTSProvider 腾讯云TTS提供商（异步任务：创建 -> 轮询 -> 下载）
type TencentTTSProvider struct {
	client     *tts.Client
	httpClient *http.Client
	poll       *rate.Limiter
	maxWait    time.Duration
}

// NewTencentTTSProvider 创建腾讯云TTS提供商
func NewTencentTTSProvider(secretID, secretKey, region string, cfg model.TencentConfig) (*TencentTTSProvider, error) {
	// 实例化一个认证对象
	credential := common.NewCredential(secretID, secretKey)

	// 实例化一个客户端配置对象
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = tencentDefaultEndpoint
	if cfg.Endpoint != "" {
		cpf.HttpProfile.Endpoint = cfg.Endpoint
	}

	client, err := tts.NewClient(credential, region, cpf)
	if err != nil {
		return nil, fmt.Errorf("创建腾讯云TTS客户端失败: %w", err)
	}

	interval := 2 * time.Second
	if cfg.PollIntervalMS > 0 {
		interval = time.Duration(cfg.PollIntervalMS) * time.Millisecond
	}
	maxWait := 60 * time.Second
	if cfg.MaxWaitMS > 0 {
		maxWait = time.Duration(cfg.MaxWaitMS) * time.Millisecond
	}

	return &TencentTTSProvider{
		client:     client,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		poll:       rate.NewLimiter(rate.Every(interval), 1),
		maxWait:    maxWait,
	}, nil
}

// Name 获取提供商名称
func (ttp *TencentTTSProvider) Name() string {
	return "TencentCloud"
}

// Synthesize 创建任务、等待完成并下载音频
func (ttp *TencentTTSProvider) Synthesize(ctx context.Context, req *model.SynthesisRequest, out io.Writer) (model.SynthesisResult, error) {
	voiceType, err := strconv.ParseInt(req.Voice, 10, 64)
	if err != nil || voiceType == 0 {
		voiceType = tencentDefaultVoice
	}
	speed := req.Speed
	if speed == 0 {
		speed = 1.0
	}

	request := tts.NewCreateTtsTaskRequest()
	request.Text = common.StringPtr(req.Text)
	request.Speed = common.Float64Ptr(speed)
	request.VoiceType = common.Int64Ptr(voiceType)
	request.PrimaryLanguage = common.Int64Ptr(1)
	request.SampleRate = common.Uint64Ptr(16000)
	request.Codec = common.StringPtr(string(req.ContainerType))

	response, err := ttp.client.CreateTtsTaskWithContext(ctx, request)
	if err != nil {
		return ttp.classify(err)
	}

	if response.Response == nil || response.Response.Data == nil || response.Response.Data.TaskId == nil {
		return model.SynthesisResult{}, fmt.Errorf("创建任务的响应中没有任务ID")
	}
	taskID := *response.Response.Data.TaskId
	audioURL, result, err := ttp.waitForTask(ctx, taskID)
	if err != nil || result.Reason != model.ReasonUnknown {
		return result, err
	}

	if err := ttp.download(ctx, audioURL, out); err != nil {
		return model.SynthesisResult{}, err
	}
	return model.SynthesisResult{Reason: model.ReasonSynthesizingAudioCompleted}, nil
}

// waitForTask 轮询任务状态，成功时返回音频地址；任务失败时 result 带失败原因
func (ttp *TencentTTSProvider) waitForTask(ctx context.Context, taskID string) (string, model.SynthesisResult, error) {
	ctx, cancel := context.WithTimeout(ctx, ttp.maxWait)
	defer cancel()

	for {
		if err := ttp.poll.Wait(ctx); err != nil {
			return "", model.SynthesisResult{}, fmt.Errorf("等待任务 %s 超时: %w", taskID, err)
		}

		request := tts.NewDescribeTtsTaskStatusRequest()
		request.TaskId = common.StringPtr(taskID)
		response, err := ttp.client.DescribeTtsTaskStatusWithContext(ctx, request)
		if err != nil {
			result, err := ttp.classify(err)
			return "", result, err
		}

		if response.Response == nil || response.Response.Data == nil || response.Response.Data.Status == nil {
			return "", model.SynthesisResult{}, fmt.Errorf("任务 %s 的状态响应不完整", taskID)
		}
		data := response.Response.Data
		switch *data.Status {
		case tencentTaskSuccess:
			if data.ResultUrl == nil || *data.ResultUrl == "" {
				return "", model.SynthesisResult{}, fmt.Errorf("任务完成但没有获取到音频URL")
			}
			return *data.ResultUrl, model.SynthesisResult{}, nil
		case tencentTaskFailed:
			detail := "TTS任务失败"
			if data.ErrorMsg != nil {
				detail = *data.ErrorMsg
			}
			return "", model.SynthesisResult{Reason: model.ReasonCanceled, Detail: detail}, nil
		case tencentTaskWaiting, tencentTaskRunning:
			continue
		default:
			return "", model.SynthesisResult{}, fmt.Errorf("未知任务状态: %d", *data.Status)
		}
	}
}

// download 下载音频到 out
func (ttp *TencentTTSProvider) download(ctx context.Context, audioURL string, out io.Writer) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return err
	}
	resp, err := ttp.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("下载音频失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("下载音频失败，HTTP状态码: %d", resp.StatusCode)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("保存音频数据失败: %w", err)
	}
	return nil
}

// classify 服务端返回的错误码作为失败原因，其余作为传输错误
func (ttp *TencentTTSProvider) classify(err error) (model.SynthesisResult, error) {
	var sdkErr *sdkerrors.TencentCloudSDKError
	if errors.As(err, &sdkErr) {
		return model.SynthesisResult{
			Reason: model.ReasonCanceled,
			Detail: fmt.Sprintf("%s: %s", sdkErr.GetCode(), sdkErr.GetMessage()),
		}, nil
	}
	return model.SynthesisResult{}, fmt.Errorf("调用腾讯云TTS失败: %w", err)
}

// Close 释放空闲连接
func (ttp *TencentTTSProvider) Close() error {
	ttp.httpClient.CloseIdleConnections()
	return nil
}
