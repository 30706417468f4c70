package adapter

import "context"

// EmbeddingAdapter is the port for the remote embedding model. Implementations
// must honor ctx deadlines; the pipeline wraps calls in a hard timeout so a
// stuck remote call cannot pin a worker slot.
type EmbeddingAdapter interface {
	// Embed returns the vector for text under the adapter's model.
	Embed(ctx context.Context, text string) ([]float32, error)
	// ModelTag identifies the producing model; it is stored alongside every
	// vector and must match between any two compared vectors.
	ModelTag() string
	// Dimensions is the fixed vector length this model produces.
	Dimensions() int
}

// LLMAdapter is the optional port for description formatting and salary
// extraction. The pipeline degrades to raw page text when it is absent or
// failing.
type LLMAdapter interface {
	// Generate returns the completion text for a single prompt.
	Generate(ctx context.Context, prompt string) (string, error)
}
