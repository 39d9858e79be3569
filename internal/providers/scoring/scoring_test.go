package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/providers/llm"
)

func TestHeuristicScoreRange(t *testing.T) {
	sc := Context{
		CustomerUtterance: "I found a lump and I'm scared",
		CustomerMood:      models.MoodAnxious,
		Objectives:        []string{"Acknowledge the patient's fear with empathy", "Recommend scheduling a clinical breast exam"},
	}
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"short", "Ok."},
		{"empathetic", "I completely understand why you feel scared, and I'm glad you told me. Most lumps are not cancer, but I recommend scheduling a clinical breast exam this week. Would you like help booking it?"},
		{"shouting", "Go now! Right now! Seriously! Immediately!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Heuristic{}.Score(context.Background(), tt.text, sc)
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			if got < 0 || got > 100 {
				t.Fatalf("score %d out of range", got)
			}
		})
	}
}

func TestHeuristicPrefersEmpathy(t *testing.T) {
	sc := Context{CustomerMood: models.MoodAnxious, Objectives: []string{"Acknowledge the patient's fear with empathy"}}
	cold, _ := Heuristic{}.Score(context.Background(), "Book an appointment with a doctor as soon as possible please.", sc)
	warm, _ := Heuristic{}.Score(context.Background(), "I understand this is frightening and your fear makes sense. Let's book an appointment with a doctor together?", sc)
	if warm <= cold {
		t.Fatalf("expected empathetic reply to score higher: warm=%d cold=%d", warm, cold)
	}
}

func TestObjectiveTouched(t *testing.T) {
	if !ObjectiveTouched("Recommend scheduling a clinical breast exam", "I'd recommend a clinical exam for the breast soon") {
		t.Error("expected objective to be touched")
	}
	if ObjectiveTouched("Describe what a mammogram or ultrasound involves", "Let's talk about your diet.") {
		t.Error("unrelated text should not touch the objective")
	}
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"87", 87, true},
		{"Score: 92/100", 92, true},
		{"150", 100, true},
		{"-4", 0, true},
		{"great reply", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseScore(tt.in)
		if (err == nil) != tt.ok {
			t.Fatalf("ParseScore(%q) err = %v", tt.in, err)
		}
		if tt.ok && got != tt.want {
			t.Errorf("ParseScore(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

type stubGenerator struct {
	out string
	err error
}

func (s stubGenerator) Generate(context.Context, string, llm.GenerationContext) (string, error) {
	return s.out, s.err
}

func TestLLMScorerFallsBack(t *testing.T) {
	text := "I understand. Let's get you a clinical breast exam soon, okay?"
	want, _ := Heuristic{}.Score(context.Background(), text, Context{})

	got, err := NewLLMScorer(stubGenerator{err: errors.New("boom")}, nil).Score(context.Background(), text, Context{})
	if err != nil || got != want {
		t.Fatalf("fallback on error: got %d, %v; want %d", got, err, want)
	}
	got, err = NewLLMScorer(stubGenerator{out: "excellent"}, nil).Score(context.Background(), text, Context{})
	if err != nil || got != want {
		t.Fatalf("fallback on garbage: got %d, %v; want %d", got, err, want)
	}
	got, err = NewLLMScorer(stubGenerator{out: "78"}, nil).Score(context.Background(), text, Context{})
	if err != nil || got != 78 {
		t.Fatalf("parsed score: got %d, %v", got, err)
	}
}
