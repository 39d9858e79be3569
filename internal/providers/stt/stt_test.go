package stt

import (
	"math"
	"testing"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
)

func TestNormalizeLanguage(t *testing.T) {
	for in, want := range map[string]string{"": "en-US", "en": "en-US", " id ": "id-ID", "ja": "ja-JP", "fr-FR": "fr-FR"} {
		if got := NormalizeLanguage(in); got != want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJoinResults(t *testing.T) {
	results := []*speechpb.SpeechRecognitionResult{
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{
			{Transcript: "too vague", Confidence: 0.6},
			{Transcript: "two vague", Confidence: 0.4},
		}},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{
			{Transcript: " name the next step ", Confidence: 0.8},
		}},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: ""}}},
	}
	text, conf, err := joinResults(results)
	if err != nil {
		t.Fatal(err)
	}
	if text != "too vague name the next step" {
		t.Fatalf("text = %q", text)
	}
	if math.Abs(conf-0.7) > 1e-6 {
		t.Fatalf("confidence = %v", conf)
	}

	if text, _, _ := joinResults(nil); text != "" {
		t.Fatalf("empty results gave %q", text)
	}
}
