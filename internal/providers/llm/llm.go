package llm

import (
	"context"
	"errors"
)

// Purposes tag prompts so providers and tests can tell calls apart.
const (
	PurposeCustomerTurn = "customer_turn"
	PurposeAvatarTurn   = "avatar_turn"
	PurposeChoices      = "choices"
	PurposeRevision     = "revision"
	PurposeScoring      = "scoring"
)

type GenerationContext struct {
	System      string
	Purpose     string
	Temperature float32 // 0 leaves the provider default
}

// TextGenerator produces a complete text reply for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, gc GenerationContext) (string, error)
}

// Embedder turns text into a vector for knowledge-base search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

var ErrEmptyResponse = errors.New("llm returned an empty response")
