package llm

import (
	"context"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"
)

type VertexGemini struct {
	client    *vertexgenai.Client
	modelName string
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &VertexGemini{client: c, modelName: modelName}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

// model builds a per-call handle; GenerativeModel carries the system
// instruction as mutable state so it must not be shared across requests.
func (v *VertexGemini) model(gc GenerationContext) *vertexgenai.GenerativeModel {
	m := v.client.GenerativeModel(v.modelName)
	if gc.System != "" {
		m.SystemInstruction = &vertexgenai.Content{Parts: []vertexgenai.Part{vertexgenai.Text(gc.System)}}
	}
	if gc.Temperature > 0 {
		m.SetTemperature(gc.Temperature)
	}
	return m
}

// Generate drains StreamAnswer into a single reply.
func (v *VertexGemini) Generate(ctx context.Context, prompt string, gc GenerationContext) (string, error) {
	chunks, errs := v.StreamAnswer(ctx, prompt, gc)
	var b strings.Builder
	for c := range chunks {
		b.WriteString(c)
	}
	if err := <-errs; err != nil {
		return "", err
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

func (v *VertexGemini) StreamAnswer(ctx context.Context, prompt string, gc GenerationContext) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		it := v.model(gc).GenerateContentStream(ctx, vertexgenai.Text(prompt))
		for {
			resp, err := it.Next()
			if err == iterator.Done {
				return
			}
			if err != nil {
				errs <- err
				return
			}

			for _, cand := range resp.Candidates {
				if cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					if t, ok := part.(vertexgenai.Text); ok && string(t) != "" {
						select {
						case out <- string(t):
						case <-ctx.Done():
							errs <- ctx.Err()
							return
						}
					}
				}
			}
		}
	}()

	return out, errs
}
