package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"jobsieve/internal/domain/ports/adapter"
	"jobsieve/internal/infra/metrics"
)

var _ adapter.EmbeddingAdapter = (*OpenAIAdapter)(nil)
var _ adapter.LLMAdapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter serves both ports from one client: embeddings for the
// pipeline and completions for description/salary enrichment. A custom base
// URL points it at any OpenAI-compatible gateway.
type OpenAIAdapter struct {
	client   openai.Client
	embModel string
	llmModel string
	dims     int
}

func NewOpenAIAdapter(apiKey, baseURL, embModel, llmModel string, dims int) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if embModel == "" {
		embModel = string(openai.EmbeddingModelTextEmbedding3Small)
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIAdapter{
		client:   openai.NewClient(opts...),
		embModel: embModel,
		llmModel: llmModel,
		dims:     dims,
	}, nil
}

func (o *OpenAIAdapter) ModelTag() string { return o.embModel }
func (o *OpenAIAdapter) Dimensions() int  { return o.dims }

func (o *OpenAIAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(o.embModel),
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	}
	if o.dims > 0 {
		params.Dimensions = openai.Int(int64(o.dims))
	}
	resp, err := o.client.Embeddings.New(ctx, params)
	latency := int(time.Since(start) / time.Millisecond)
	if err != nil {
		metrics.ObserveEmbedCall("openai", o.embModel, latency, false)
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		metrics.ObserveEmbedCall("openai", o.embModel, latency, false)
		return nil, errors.New("openai embeddings: empty response")
	}
	metrics.ObserveEmbedCall("openai", o.embModel, latency, true)

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, f := range raw {
		vec[i] = float32(f)
	}
	return vec, nil
}

func (o *OpenAIAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	if o.llmModel == "" {
		return "", errors.New("no llm model configured")
	}
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.llmModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai completion: no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
