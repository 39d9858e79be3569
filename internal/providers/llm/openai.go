package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// chatService is the slice of the OpenAI client used here.
type chatService interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

type embeddingService interface {
	New(ctx context.Context, body openai.EmbeddingNewParams, opts ...option.RequestOption) (*openai.CreateEmbeddingResponse, error)
}

type OpenAI struct {
	chat           chatService
	embeddings     embeddingService
	model          string
	embeddingModel string
	dimensions     int64
}

func NewOpenAI(apiKey, model, embeddingModel string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY not set")
	}
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	if embeddingModel == "" {
		embeddingModel = string(openai.EmbeddingModelTextEmbedding3Small)
	}
	c := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAI{
		chat:           &c.Chat.Completions,
		embeddings:     &c.Embeddings,
		model:          model,
		embeddingModel: embeddingModel,
		dimensions:     768, // matches knowledge_entries.embedding
	}, nil
}

func (o *OpenAI) Generate(ctx context.Context, prompt string, gc GenerationContext) (string, error) {
	var msgs []openai.ChatCompletionMessageParamUnion
	if gc.System != "" {
		msgs = append(msgs, openai.SystemMessage(gc.System))
	}
	msgs = append(msgs, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: msgs,
	}
	if gc.Temperature > 0 {
		params.Temperature = openai.Float(float64(gc.Temperature))
	}

	resp, err := o.chat.New(ctx, params)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model:      openai.EmbeddingModel(o.embeddingModel),
		Dimensions: openai.Int(o.dimensions),
	})
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Data) == 0 {
		return nil, ErrEmptyResponse
	}
	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}
