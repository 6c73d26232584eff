package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/difyz9/notetts/model"
	sdkerrors "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/errors"
	tts "github.com/yandex-cloud/go-genproto/yandex/cloud/ai/tts/v3"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func azureRequest() *model.SynthesisRequest {
	return &model.SynthesisRequest{
		Text:          "hello",
		SSML:          BuildSSML("en-US", "en-US-JennyNeural", 1, "hello"),
		Voice:         "en-US-JennyNeural",
		Locale:        "en-US",
		Speed:         1,
		Mode:          model.ModePlay,
		AudioFormat:   "audio-16khz-32kbitrate-mono-mp3",
		ContainerType: model.ContainerMP3,
	}
}

func TestAzureSynthesizeCompleted(t *testing.T) {
	var gotBody, gotKey, gotFormat string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cognitiveservices/v1" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotKey = r.Header.Get("Ocp-Apim-Subscription-Key")
		gotFormat = r.Header.Get("X-Microsoft-OutputFormat")
		w.Write([]byte("AUDIO"))
	}))
	defer server.Close()

	provider := NewAzureTTSProvider("secret", "eastus", server.URL)
	defer provider.Close()

	var out bytes.Buffer
	result, err := provider.Synthesize(context.Background(), azureRequest(), &out)
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if result.Reason != model.ReasonSynthesizingAudioCompleted {
		t.Fatalf("expected completed reason, got %s", result.Reason)
	}
	if out.String() != "AUDIO" {
		t.Fatalf("unexpected audio %q", out.String())
	}
	if gotKey != "secret" || gotFormat != "audio-16khz-32kbitrate-mono-mp3" {
		t.Fatalf("unexpected headers key=%q format=%q", gotKey, gotFormat)
	}
	if !strings.Contains(gotBody, `<voice name="en-US-JennyNeural">`) {
		t.Fatalf("unexpected body %s", gotBody)
	}
}

func TestAzureSynthesizeRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()

	provider := NewAzureTTSProvider("wrong", "eastus", server.URL)
	var out bytes.Buffer
	result, err := provider.Synthesize(context.Background(), azureRequest(), &out)
	if err != nil {
		t.Fatalf("expected provider reason instead of error, got %v", err)
	}
	if result.Reason != model.ReasonCanceled || !strings.Contains(result.Detail, "401") {
		t.Fatalf("unexpected result %+v", result)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no audio, got %d bytes", out.Len())
	}
}

func TestAzureSynthesizeTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	provider := NewAzureTTSProvider("secret", "eastus", url)
	if _, err := provider.Synthesize(context.Background(), azureRequest(), io.Discard); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestAzureListVoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"ShortName":"en-US-JennyNeural","Locale":"en-US","Gender":"Female"},
			{"ShortName":"zh-CN-XiaoxiaoNeural","Locale":"zh-CN","Gender":"Female"}
		]`))
	}))
	defer server.Close()

	voices, err := NewAzureTTSProvider("secret", "eastus", server.URL).ListVoices(context.Background(), "zh")
	if err != nil {
		t.Fatalf("ListVoices returned error: %v", err)
	}
	if len(voices) != 1 || voices[0].ShortName != "zh-CN-XiaoxiaoNeural" {
		t.Fatalf("unexpected voices %+v", voices)
	}
	if voices[0].DisplayName() != "zh-CN-XiaoxiaoNeural (Female)" {
		t.Fatalf("unexpected display name %q", voices[0].DisplayName())
	}
}

func TestOpenAISynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/speech") {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("MP3DATA"))
	}))
	defer server.Close()

	cfg := model.OpenAIConfig{BaseURL: server.URL + "/v1"}
	req := azureRequest()
	req.Voice = "alloy"

	var out bytes.Buffer
	result, err := NewOpenAITTSProvider("sk-test", cfg).Synthesize(context.Background(), req, &out)
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if result.Reason != model.ReasonSynthesizingAudioCompleted || out.String() != "MP3DATA" {
		t.Fatalf("unexpected result %+v audio=%q", result, out.String())
	}

	result, err = NewOpenAITTSProvider("sk-wrong", cfg).Synthesize(context.Background(), req, io.Discard)
	if err != nil {
		t.Fatalf("expected provider reason instead of error, got %v", err)
	}
	if result.Reason != model.ReasonCanceled {
		t.Fatalf("expected canceled reason, got %+v", result)
	}
}

func TestEdgeValidateRequest(t *testing.T) {
	req := azureRequest()
	req.ContainerType = model.ContainerWAV
	if err := NewEdgeTTSProvider().ValidateRequest(req); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestEdgeCountingWriter(t *testing.T) {
	var out bytes.Buffer
	counter := &countingWriter{w: &out}
	io.WriteString(counter, "ab")
	io.WriteString(counter, "cde")
	if counter.n != 5 || out.String() != "abcde" {
		t.Fatalf("unexpected count %d or output %q", counter.n, out.String())
	}
}

func TestEdgeRate(t *testing.T) {
	tests := map[float64]string{1.0: "+0%", 1.2: "+20%", 0.5: "-50%", 2.0: "+100%", 0: "+0%"}
	for speed, want := range tests {
		if got := EdgeRate(speed); got != want {
			t.Fatalf("EdgeRate(%v): expected %q, got %q", speed, want, got)
		}
	}
}

func TestFactoryCreateProvider(t *testing.T) {
	factory := NewTTSProviderFactory(DefaultConfig())
	ctx := context.Background()

	for _, name := range []string{"", "azure", "Microsoft", "edge", "openai"} {
		settings := testSettings()
		settings.Provider = name
		synth, err := factory.CreateProvider(ctx, settings)
		if err != nil {
			t.Fatalf("CreateProvider(%q) returned error: %v", name, err)
		}
		synth.Close()
	}

	settings := testSettings()
	settings.Provider = "unknown"
	if _, err := factory.CreateProvider(ctx, settings); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestYandexBuildRequest(t *testing.T) {
	provider := &YandexTTSProvider{model: "general"}

	tests := []struct {
		name      string
		voice     string
		speed     float64
		container model.ContainerType
		wantVoice string
		wantSpeed float64
		wantType  tts.ContainerAudio_ContainerAudioType
	}{
		{"defaults", "", 0, model.ContainerMP3, yandexDefaultVoice, 1.0, tts.ContainerAudio_MP3},
		{"explicit wav", "alena", 1.5, model.ContainerWAV, "alena", 1.5, tts.ContainerAudio_WAV},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := azureRequest()
			req.Voice = tt.voice
			req.Speed = tt.speed
			req.ContainerType = tt.container

			r := provider.buildRequest(req)
			if r.GetModel() != "general" || r.GetText() != "hello" {
				t.Fatalf("unexpected model/text %q %q", r.GetModel(), r.GetText())
			}
			hints := r.GetHints()
			if len(hints) != 2 || hints[0].GetVoice() != tt.wantVoice || hints[1].GetSpeed() != tt.wantSpeed {
				t.Fatalf("unexpected hints %v", hints)
			}
			if got := r.GetOutputAudioSpec().GetContainerAudio().GetContainerAudioType(); got != tt.wantType {
				t.Fatalf("expected container %v, got %v", tt.wantType, got)
			}
		})
	}
}

func TestYandexClassify(t *testing.T) {
	provider := &YandexTTSProvider{}

	result, err := provider.classify(status.Error(codes.Unauthenticated, "bad key"))
	if err != nil || result.Reason != model.ReasonCanceled || !strings.Contains(result.Detail, "bad key") {
		t.Fatalf("expected provider reason, got %+v err=%v", result, err)
	}
	if _, err := provider.classify(status.Error(codes.Unavailable, "down")); err == nil {
		t.Fatal("expected transport error for unavailable")
	}
}

func TestTencentClassify(t *testing.T) {
	provider := &TencentTTSProvider{}

	result, err := provider.classify(sdkerrors.NewTencentCloudSDKError("AuthFailure.SecretIdNotFound", "secret missing", "req-1"))
	if err != nil {
		t.Fatalf("expected provider reason, got error %v", err)
	}
	if result.Reason != model.ReasonCanceled || !strings.Contains(result.Detail, "AuthFailure.SecretIdNotFound") {
		t.Fatalf("unexpected result %+v", result)
	}

	if _, err := provider.classify(errors.New("connection reset")); err == nil {
		t.Fatal("expected transport error")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestTencentIncompleteResponse(t *testing.T) {
	provider, err := NewTencentTTSProvider("id", "key", "ap-beijing", model.TencentConfig{PollIntervalMS: 1, MaxWaitMS: 1000})
	if err != nil {
		t.Fatalf("NewTencentTTSProvider returned error: %v", err)
	}
	provider.client.WithHttpTransport(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Status:     "200 OK",
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(`{"Response":{"RequestId":"req-1"}}`)),
			Request:    r,
		}, nil
	}))

	result, err := provider.Synthesize(context.Background(), azureRequest(), io.Discard)
	if err == nil {
		t.Fatalf("expected error for response without task id, got %+v", result)
	}

	if _, _, err := provider.waitForTask(context.Background(), "task-1"); err == nil {
		t.Fatal("expected error for status response without status")
	}
}
