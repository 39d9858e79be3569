package scoring

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/brezcode/brezcode-platform-sub008/internal/providers/llm"
	"github.com/sirupsen/logrus"
)

const scoringSystem = "You grade customer-service replies. Answer with a single integer from 0 to 100 and nothing else."

var firstNumber = regexp.MustCompile(`-?\d{1,3}`)

// LLMScorer asks the text service for a rating and falls back to the
// heuristic when the answer is missing or unparsable.
type LLMScorer struct {
	gen      llm.TextGenerator
	fallback Heuristic
	log      *logrus.Logger
}

func NewLLMScorer(gen llm.TextGenerator, log *logrus.Logger) *LLMScorer {
	return &LLMScorer{gen: gen, log: log}
}

func (s *LLMScorer) Score(ctx context.Context, candidate string, sc Context) (int, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Customer (%s) said: %q\n", sc.CustomerMood, sc.CustomerUtterance)
	fmt.Fprintf(&b, "Reply to grade: %q\n", candidate)
	if len(sc.Objectives) > 0 {
		b.WriteString("Training objectives:\n")
		for _, o := range sc.Objectives {
			b.WriteString("- " + o + "\n")
		}
	}
	b.WriteString("Rate empathy, accuracy and progress toward the objectives.")

	out, err := s.gen.Generate(ctx, b.String(), llm.GenerationContext{System: scoringSystem, Purpose: llm.PurposeScoring})
	if err != nil {
		if ctx.Err() != nil {
			return 0, err
		}
		s.warn(err, "llm scoring failed; using heuristic")
		return s.fallback.Score(ctx, candidate, sc)
	}
	v, err := ParseScore(out)
	if err != nil {
		s.warn(err, "unparsable llm score; using heuristic")
		return s.fallback.Score(ctx, candidate, sc)
	}
	return v, nil
}

func (s *LLMScorer) warn(err error, msg string) {
	if s.log != nil {
		s.log.WithError(err).Warn(msg)
	}
}

// ParseScore extracts the first integer in s and clamps it to 0..100.
func ParseScore(s string) (int, error) {
	m := firstNumber.FindString(s)
	if m == "" {
		return 0, fmt.Errorf("no score in %q", s)
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0, err
	}
	return Clamp(v), nil
}
