package stt

import (
	"context"
	"strings"
)

// Transcriber turns a recorded reviewer comment into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, language string) (text string, confidence float64, err error)
}

// NormalizeLanguage maps short codes to BCP-47 tags; empty means en-US.
func NormalizeLanguage(v string) string {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "", "en", "en-us":
		return "en-US"
	case "id", "id-id":
		return "id-ID"
	case "ja", "ja-jp":
		return "ja-JP"
	case "zh", "zh-cn":
		return "zh-CN"
	default:
		return v
	}
}
