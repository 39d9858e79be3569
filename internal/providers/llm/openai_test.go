package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type mockChatService struct {
	resp *openai.ChatCompletion
	err  error
	last openai.ChatCompletionNewParams
}

func (m *mockChatService) New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	m.last = body
	return m.resp, m.err
}

type mockEmbeddingService struct {
	resp *openai.CreateEmbeddingResponse
	err  error
}

func (m *mockEmbeddingService) New(ctx context.Context, body openai.EmbeddingNewParams, opts ...option.RequestOption) (*openai.CreateEmbeddingResponse, error) {
	return m.resp, m.err
}

func TestOpenAIGenerate_Success(t *testing.T) {
	chat := &mockChatService{resp: &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "  I understand how worrying that is.  "}},
		},
	}}
	g := &OpenAI{chat: chat, model: "gpt-4o-mini"}

	out, err := g.Generate(context.Background(), "user prompt", GenerationContext{System: "be kind"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "I understand how worrying that is." {
		t.Errorf("unexpected output %q", out)
	}
	if len(chat.last.Messages) != 2 {
		t.Errorf("expected system and user messages, got %d", len(chat.last.Messages))
	}
}

func TestOpenAIGenerate_ServiceError(t *testing.T) {
	g := &OpenAI{chat: &mockChatService{err: errors.New("service failure")}}
	_, err := g.Generate(context.Background(), "p", GenerationContext{})
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
}

func TestOpenAIGenerate_NoChoices(t *testing.T) {
	g := &OpenAI{chat: &mockChatService{resp: &openai.ChatCompletion{}}}
	_, err := g.Generate(context.Background(), "p", GenerationContext{})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestOpenAIEmbed(t *testing.T) {
	g := &OpenAI{embeddings: &mockEmbeddingService{resp: &openai.CreateEmbeddingResponse{
		Data: []openai.Embedding{{Embedding: []float64{0.25, -0.5, 1}}},
	}}}
	vec, err := g.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 || vec[1] != -0.5 {
		t.Errorf("unexpected vector %v", vec)
	}
}

func TestNewOpenAI_NoKey(t *testing.T) {
	if _, err := NewOpenAI("", "", ""); err == nil {
		t.Error("expected error when API key not provided, got nil")
	}
}
