package ai

import (
	"context"
	"hash/fnv"
	"math"

	"jobsieve/internal/domain/ports/adapter"
)

var _ adapter.EmbeddingAdapter = (*NoopEmbedding)(nil)

// NoopEmbedding produces deterministic pseudo-vectors from the input text.
// Dev mode only; similar strings do NOT get similar vectors.
type NoopEmbedding struct {
	dims int
}

func NewNoopEmbedding(dims int) *NoopEmbedding {
	if dims <= 0 {
		dims = 8
	}
	return &NoopEmbedding{dims: dims}
}

func (n *NoopEmbedding) ModelTag() string { return "noop" }
func (n *NoopEmbedding) Dimensions() int  { return n.dims }

func (n *NoopEmbedding) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()
	vec := make([]float32, n.dims)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(math.Sin(float64(seed % 10007)))
	}
	return vec, nil
}
