// File: internal/usecase/blacklist_uc.go
package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"jobsieve/internal/domain/model"
	"jobsieve/internal/domain/ports/adapter"
	"jobsieve/internal/domain/ports/repository"
)

// BlacklistUseCase owns the keyword set. Replacing the blacklist swaps all
// keywords, resets every posting's blacklisted flag, then hands embedding
// work to the queue; matching catches up in the background.
type BlacklistUseCase struct {
	keywords repository.KeywordRepository
	queue    adapter.TaskQueue
	logger   zerolog.Logger
}

func NewBlacklistUseCase(keywords repository.KeywordRepository, queue adapter.TaskQueue, logger *zerolog.Logger) *BlacklistUseCase {
	return &BlacklistUseCase{
		keywords: keywords,
		queue:    queue,
		logger:   logger.With().Str("component", "blacklist_uc").Logger(),
	}
}

// Replace installs a new newline-delimited blacklist. Returns the inserted
// keywords, still without embeddings.
func (uc *BlacklistUseCase) Replace(ctx context.Context, raw string) ([]*model.Keyword, error) {
	texts := model.ParseKeywordList(raw)
	kws, err := uc.keywords.ReplaceAll(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("replace blacklist: %w", err)
	}

	enqueued := 0
	for _, kw := range kws {
		if err := uc.queue.Enqueue(ctx, model.NewEmbedKeywordTask(kw.ID)); err != nil {
			// The backfill loop re-enqueues keywords left without a vector.
			uc.logger.Warn().Err(err).Str("keyword_id", kw.ID).Msg("embed task enqueue failed")
			continue
		}
		enqueued++
	}
	uc.logger.Info().Int("keywords", len(kws)).Int("enqueued", enqueued).Msg("blacklist replaced")
	return kws, nil
}

// List returns the current blacklist.
func (uc *BlacklistUseCase) List(ctx context.Context) ([]*model.Keyword, error) {
	return uc.keywords.ListAll(ctx, nil)
}
