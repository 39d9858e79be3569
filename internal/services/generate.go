package services

import (
	"context"
	"errors"
	"time"

	"github.com/brezcode/brezcode-platform-sub008/internal/providers/llm"
	"github.com/brezcode/brezcode-platform-sub008/internal/utils"
	"github.com/sirupsen/logrus"
)

const generationAttempts = 2

// promptBuilder returns the prompt for a given attempt, starting at 0.
type promptBuilder func(attempt int) (string, llm.GenerationContext)

// boundedGenerator calls the text service with a per-attempt timeout and
// retries a failed attempt once with a freshly built prompt.
type boundedGenerator struct {
	gen     llm.TextGenerator
	timeout time.Duration
	log     *logrus.Logger
}

func (g *boundedGenerator) generate(ctx context.Context, op string, build promptBuilder) (string, error) {
	var lastErr error
	timedOut := false
	for attempt := 0; attempt < generationAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", utils.E(utils.CodeGenerationTimeout, op, "request cancelled while generating", err)
		}
		prompt, gc := build(attempt)

		actx, cancel := context.WithTimeout(ctx, g.timeout)
		out, err := g.gen.Generate(actx, prompt, gc)
		expired := errors.Is(actx.Err(), context.DeadlineExceeded)
		cancel()

		if err == nil {
			return out, nil
		}
		lastErr = err
		timedOut = expired || errors.Is(err, context.DeadlineExceeded)
		if g.log != nil {
			g.log.WithError(err).WithFields(logrus.Fields{
				"op":      op,
				"purpose": gc.Purpose,
				"attempt": attempt + 1,
			}).Warn("text generation attempt failed")
		}
	}
	if timedOut {
		return "", utils.E(utils.CodeGenerationTimeout, op, "text generation timed out", lastErr)
	}
	return "", utils.E(utils.CodeGenerationFailed, op, "text generation failed", lastErr)
}
