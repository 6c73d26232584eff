package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	voiceSuffixRegex = regexp.MustCompile(`\(.*?\)`)
	sampleRateRegex  = regexp.MustCompile(`(?i)(\d+)khz`)
)

// ContainerTypeOf 根据输出格式后缀判断容器类型
func ContainerTypeOf(format string) ContainerType {
	if strings.HasSuffix(strings.ToLower(format), "-mp3") {
		return ContainerMP3
	}
	return ContainerWAV
}

// FileTimestamp 生成 YYYYMMDDHHMMSS 格式的文件名
func FileTimestamp(t time.Time) string {
	return fmt.Sprintf("%04d%02d%02d%02d%02d%02d",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// VoiceDisplayName 去掉语音名称中的括号后缀
func VoiceDisplayName(voice string) string {
	return voiceSuffixRegex.ReplaceAllString(voice, "")
}

// LocaleOfVoice 从语音名称中取出语言区域，如 en-US-JennyNeural -> en-US
func LocaleOfVoice(voice string) string {
	parts := strings.Split(strings.TrimSpace(VoiceDisplayName(voice)), "-")
	if len(parts) < 3 {
		return ""
	}
	return parts[0] + "-" + parts[1]
}

// SampleRateOf 从输出格式中解析采样率，如 riff-24khz-16bit-mono-pcm -> 24000
func SampleRateOf(format string) int {
	m := sampleRateRegex.FindStringSubmatch(format)
	if m == nil {
		return 0
	}
	khz, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return khz * 1000
}
