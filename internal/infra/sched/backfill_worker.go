package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"jobsieve/internal/domain/model"
	"jobsieve/internal/domain/ports/adapter"
	"jobsieve/internal/domain/ports/repository"
)

const backfillBatch = 200

// BackfillWorker periodically re-enqueues work for rows left without a
// current-model vector. Postings end up in that state after a crash between
// persisting and embedding, or after the embedding model changes; keywords
// additionally after an enqueue failure during a blacklist replace.
type BackfillWorker struct {
	interval time.Duration
	postings repository.PostingRepository
	keywords repository.KeywordRepository
	queue    adapter.TaskQueue
	embedder adapter.EmbeddingAdapter
	log      *zerolog.Logger
}

func NewBackfillWorker(
	interval time.Duration,
	postings repository.PostingRepository,
	keywords repository.KeywordRepository,
	queue adapter.TaskQueue,
	embedder adapter.EmbeddingAdapter,
	logger *zerolog.Logger,
) *BackfillWorker {
	bfLog := logger.With().Str("component", "BackfillWorker").Logger()
	return &BackfillWorker{
		interval: interval,
		postings: postings,
		keywords: keywords,
		queue:    queue,
		embedder: embedder,
		log:      &bfLog,
	}
}

func (w *BackfillWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting backfill worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping backfill worker")
			return ctx.Err()
		case <-ticker.C:
			w.runSweep(ctx)
		}
	}
}

func (w *BackfillWorker) runSweep(ctx context.Context) {
	tag := w.embedder.ModelTag()
	postings, keywords := w.sweepPostings(ctx, tag), w.sweepKeywords(ctx, tag)
	if postings > 0 || keywords > 0 {
		w.log.Info().
			Int("postings", postings).
			Int("keywords", keywords).
			Str("model_tag", tag).
			Msg("backfill sweep re-enqueued work")
	}
}

func (w *BackfillWorker) sweepPostings(ctx context.Context, tag string) int {
	list, err := w.postings.ListWithoutEmbedding(ctx, nil, tag, backfillBatch)
	if err != nil {
		w.log.Error().Err(err).Msg("backfill: list postings without embedding")
		return 0
	}
	enqueued := 0
	for _, p := range list {
		// Failed postings stay failed until an operator intervenes.
		if p.State == model.ProcessingStateFailed {
			continue
		}
		if err := w.queue.Enqueue(ctx, model.NewEnrichTask(p.ID)); err != nil {
			w.log.Error().Err(err).Str("posting_id", p.ID).Msg("backfill: enqueue enrich")
			continue
		}
		enqueued++
	}
	return enqueued
}

func (w *BackfillWorker) sweepKeywords(ctx context.Context, tag string) int {
	list, err := w.keywords.ListAll(ctx, nil)
	if err != nil {
		w.log.Error().Err(err).Msg("backfill: list keywords")
		return 0
	}
	enqueued := 0
	for _, k := range list {
		if k.HasEmbedding(tag) {
			continue
		}
		if err := w.queue.Enqueue(ctx, model.NewEmbedKeywordTask(k.ID)); err != nil {
			w.log.Error().Err(err).Str("keyword_id", k.ID).Msg("backfill: enqueue embed")
			continue
		}
		enqueued++
	}
	return enqueued
}
