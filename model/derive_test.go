package model

import (
	"regexp"
	"testing"
	"time"
)

func TestContainerTypeOf(t *testing.T) {
	cases := map[string]ContainerType{
		"audio-16khz-32kbitrate-mono-mp3":  ContainerMP3,
		"AUDIO-24KHZ-48KBITRATE-MONO-MP3":  ContainerMP3,
		"audio-48khz-192kbitrate-mono-Mp3": ContainerMP3,
		"riff-24khz-16bit-mono-pcm":        ContainerWAV,
		"raw-16khz-16bit-mono-pcm":         ContainerWAV,
		"mp3":                              ContainerWAV,
		"":                                 ContainerWAV,
	}
	for format, want := range cases {
		if got := ContainerTypeOf(format); got != want {
			t.Fatalf("ContainerTypeOf(%q) = %q, want %q", format, got, want)
		}
	}
}

func TestFileTimestamp(t *testing.T) {
	ts := FileTimestamp(time.Date(2024, time.March, 5, 7, 8, 9, 0, time.Local))
	if ts != "20240305070809" {
		t.Fatalf("unexpected timestamp %s", ts)
	}
	if !regexp.MustCompile(`^\d{14}$`).MatchString(FileTimestamp(time.Now())) {
		t.Fatalf("timestamp for now is not 14 digits")
	}
}

func TestVoiceDisplayName(t *testing.T) {
	if got := VoiceDisplayName("en-US-JennyNeural (Female)"); got != "en-US-JennyNeural " {
		t.Fatalf("unexpected display name %q", got)
	}
	if got := VoiceDisplayName("zh-CN-XiaoxiaoNeural"); got != "zh-CN-XiaoxiaoNeural" {
		t.Fatalf("name without suffix changed: %q", got)
	}
}

func TestLocaleOfVoice(t *testing.T) {
	if got := LocaleOfVoice("en-US-JennyNeural (Female)"); got != "en-US" {
		t.Fatalf("unexpected locale %q", got)
	}
	if got := LocaleOfVoice("alloy"); got != "" {
		t.Fatalf("expected empty locale, got %q", got)
	}
}

func TestSampleRateOf(t *testing.T) {
	if got := SampleRateOf("riff-24khz-16bit-mono-pcm"); got != 24000 {
		t.Fatalf("unexpected sample rate %d", got)
	}
	if got := SampleRateOf("ogg"); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestTargetPath(t *testing.T) {
	req := &SynthesisRequest{Mode: ModeSave, FilePath: "/out", Filename: "note1", ContainerType: ContainerMP3}
	if got := req.TargetPath(); got != "/out/note1.mp3" {
		t.Fatalf("unexpected target path %s", got)
	}
	req.Mode = ModePlay
	if got := req.TargetPath(); got != "" {
		t.Fatalf("play mode should have no target path, got %s", got)
	}
}

func TestSettingsNormalize(t *testing.T) {
	s := Settings{AudioFormat: "audio-16khz-32kbitrate-mono-mp3", AudioFormatType: ContainerWAV}
	s.Normalize()
	if s.AudioFormatType != ContainerMP3 {
		t.Fatalf("derived type not recomputed: %s", s.AudioFormatType)
	}
	if s.ReadScope != ReadScopeOff || s.Speed != 1.0 {
		t.Fatalf("defaults not applied: %+v", s)
	}
}
