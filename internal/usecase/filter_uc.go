// File: internal/usecase/filter_uc.go
package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"jobsieve/internal/domain/model"
	"jobsieve/internal/domain/ports/adapter"
	"jobsieve/internal/domain/ports/repository"
	"jobsieve/internal/infra/embedding"
	"jobsieve/internal/infra/metrics"
)

// FilterUseCase is the semantic blacklist. Postings and keywords acquire
// embeddings asynchronously and in either order, so the check runs from
// both sides: a freshly embedded posting is compared against all embedded
// keywords, and a freshly embedded keyword against all embedded postings.
type FilterUseCase struct {
	postings  repository.PostingRepository
	keywords  repository.KeywordRepository
	embedder  adapter.EmbeddingAdapter
	notifier  adapter.Notifier
	threshold float64
	logger    zerolog.Logger
}

func NewFilterUseCase(
	postings repository.PostingRepository,
	keywords repository.KeywordRepository,
	embedder adapter.EmbeddingAdapter,
	notifier adapter.Notifier,
	threshold float64,
	logger *zerolog.Logger,
) *FilterUseCase {
	return &FilterUseCase{
		postings:  postings,
		keywords:  keywords,
		embedder:  embedder,
		notifier:  notifier,
		threshold: threshold,
		logger:    logger.With().Str("component", "filter_uc").Logger(),
	}
}

// CheckPosting compares the posting's vector against every embedded keyword
// and stops at the first one above threshold. The reported keyword is
// whichever matched first, not the best match. Per-keyword comparison
// failures are logged and skipped.
func (uc *FilterUseCase) CheckPosting(ctx context.Context, p *model.Posting) (bool, error) {
	if !p.HasEmbedding(uc.embedder.ModelTag()) {
		return false, nil
	}
	kws, err := uc.keywords.ListEmbedded(ctx, nil, uc.embedder.ModelTag())
	if err != nil {
		return false, fmt.Errorf("list embedded keywords: %w", err)
	}
	for _, kw := range kws {
		sim, err := embedding.Cosine(p.Embedding, kw.Embedding)
		if err != nil {
			uc.logger.Warn().Err(err).Str("keyword_id", kw.ID).Msg("keyword comparison skipped")
			continue
		}
		if sim >= uc.threshold {
			if err := uc.blacklist(ctx, p, kw, sim, "posting"); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// ComputeKeywordEmbedding embeds one keyword and then runs the keyword-side
// check against every non-blacklisted embedded posting. Safe under
// redelivery: re-embedding yields the same vector and already-blacklisted
// postings are excluded from the sweep.
func (uc *FilterUseCase) ComputeKeywordEmbedding(ctx context.Context, keywordID string) error {
	kw, err := uc.keywords.FindByID(ctx, nil, keywordID)
	if err != nil {
		return fmt.Errorf("load keyword %s: %w", keywordID, err)
	}

	if !kw.HasEmbedding(uc.embedder.ModelTag()) {
		vec, err := uc.embedder.Embed(ctx, kw.Text)
		if err != nil {
			return fmt.Errorf("embed keyword %q: %w", kw.Text, err)
		}
		if err := uc.keywords.SetEmbedding(ctx, nil, kw.ID, vec, uc.embedder.ModelTag()); err != nil {
			return fmt.Errorf("store keyword embedding: %w", err)
		}
		kw.Embedding = vec
		kw.EmbeddingModel = uc.embedder.ModelTag()
	}

	matched, err := uc.sweepPostings(ctx, kw)
	if err != nil {
		return err
	}
	uc.logger.Info().Str("keyword_id", kw.ID).Int("matched", matched).Msg("keyword embedded and swept")
	return nil
}

// sweepPostings is the keyword-side pass. A single posting failure skips
// that posting, not the batch.
func (uc *FilterUseCase) sweepPostings(ctx context.Context, kw *model.Keyword) (int, error) {
	postings, err := uc.postings.ListEmbedded(ctx, nil, uc.embedder.ModelTag(), true)
	if err != nil {
		return 0, fmt.Errorf("list embedded postings: %w", err)
	}
	matched := 0
	for _, p := range postings {
		sim, err := embedding.Cosine(kw.Embedding, p.Embedding)
		if err != nil {
			uc.logger.Warn().Err(err).Str("posting_id", p.ID).Msg("posting comparison skipped")
			continue
		}
		if sim < uc.threshold {
			continue
		}
		if err := uc.blacklist(ctx, p, kw, sim, "keyword"); err != nil {
			uc.logger.Warn().Err(err).Str("posting_id", p.ID).Msg("blacklist write failed, posting skipped")
			continue
		}
		matched++
	}
	return matched, nil
}

func (uc *FilterUseCase) blacklist(ctx context.Context, p *model.Posting, kw *model.Keyword, sim float64, side string) error {
	if err := uc.postings.SetBlacklisted(ctx, nil, p.ID, true); err != nil {
		return fmt.Errorf("set blacklisted %s: %w", p.ID, err)
	}
	metrics.IncPostingBlacklisted(side)
	reason := fmt.Sprintf("matches blacklist term %q (similarity %.2f)", kw.Text, sim)
	uc.logger.Info().Str("posting_id", p.ID).Str("keyword", kw.Text).Float64("similarity", sim).Msg("posting blacklisted")
	if uc.notifier != nil {
		uc.notifier.PostingRemoved(ctx, p.ID, p.Title, reason)
	}
	return nil
}
