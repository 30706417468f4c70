package ai

import (
	"context"
	"time"

	"jobsieve/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.EmbeddingAdapter = (*limitedEmbedding)(nil)

type limitedEmbedding struct {
	inner   adapter.EmbeddingAdapter
	sem     chan struct{}
	timeout time.Duration
}

// NewLimitedEmbedding caps in-flight embed calls and enforces a hard
// per-call timeout regardless of the caller's context.
func NewLimitedEmbedding(inner adapter.EmbeddingAdapter, maxConcurrent int, timeout time.Duration) adapter.EmbeddingAdapter {
	if maxConcurrent <= 0 && timeout <= 0 {
		return inner
	}
	var sem chan struct{}
	if maxConcurrent > 0 {
		sem = make(chan struct{}, maxConcurrent)
	}
	return &limitedEmbedding{inner: inner, sem: sem, timeout: timeout}
}

func (l *limitedEmbedding) ModelTag() string { return l.inner.ModelTag() }
func (l *limitedEmbedding) Dimensions() int  { return l.inner.Dimensions() }

func (l *limitedEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if l.sem != nil {
		select {
		case l.sem <- struct{}{}:
			defer func() { <-l.sem }()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	return l.inner.Embed(ctx, text)
}
