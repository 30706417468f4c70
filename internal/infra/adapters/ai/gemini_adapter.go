package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"jobsieve/internal/domain/ports/adapter"
	"jobsieve/internal/infra/metrics"
)

var _ adapter.EmbeddingAdapter = (*GeminiAdapter)(nil)
var _ adapter.LLMAdapter = (*GeminiAdapter)(nil)

// GeminiAdapter is the alternative provider, using the official SDK.
type GeminiAdapter struct {
	client   *genai.Client
	embModel string
	llmModel string
	dims     int
}

func NewGeminiAdapter(ctx context.Context, apiKey, embModel, llmModel string, dims int) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	if embModel == "" {
		embModel = "text-embedding-004"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, embModel: embModel, llmModel: llmModel, dims: dims}, nil
}

func (g *GeminiAdapter) ModelTag() string { return g.embModel }
func (g *GeminiAdapter) Dimensions() int  { return g.dims }

func (g *GeminiAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	var cfg *genai.EmbedContentConfig
	if g.dims > 0 {
		d := int32(g.dims)
		cfg = &genai.EmbedContentConfig{OutputDimensionality: &d}
	}
	resp, err := g.client.Models.EmbedContent(ctx, g.embModel, genai.Text(text), cfg)
	latency := int(time.Since(start) / time.Millisecond)
	if err != nil {
		metrics.ObserveEmbedCall("gemini", g.embModel, latency, false)
		return nil, fmt.Errorf("gemini embeddings: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		metrics.ObserveEmbedCall("gemini", g.embModel, latency, false)
		return nil, errors.New("gemini embeddings: empty response")
	}
	metrics.ObserveEmbedCall("gemini", g.embModel, latency, true)
	return resp.Embeddings[0].Values, nil
}

func (g *GeminiAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	if g.llmModel == "" {
		return "", errors.New("no llm model configured")
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.llmModel, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini completion: %w", err)
	}
	out := resp.Text()
	if out == "" {
		return "", errors.New("gemini completion: empty response")
	}
	return out, nil
}
