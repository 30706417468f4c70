// File: internal/usecase/enrich_uc.go
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"jobsieve/internal/config"
	"jobsieve/internal/domain"
	"jobsieve/internal/domain/model"
	"jobsieve/internal/domain/ports/adapter"
	"jobsieve/internal/domain/ports/repository"
	"jobsieve/internal/infra/logging"
)

// EnrichUseCase runs the enrichment stage for one posting: fetch page
// content where the platform allows it, derive a description and salary,
// refresh the embedding, then run the blacklist check. Every write is
// independently idempotent so a crash mid-stage resumes cleanly on
// redelivery.
type EnrichUseCase struct {
	postings repository.PostingRepository
	fetcher  adapter.PageFetcher
	llm      adapter.LLMAdapter // nil disables LLM formatting
	embedder adapter.EmbeddingAdapter
	filter   *FilterUseCase
	cfg      config.EnrichConfig
	logger   zerolog.Logger
}

func NewEnrichUseCase(
	postings repository.PostingRepository,
	fetcher adapter.PageFetcher,
	llm adapter.LLMAdapter,
	embedder adapter.EmbeddingAdapter,
	filter *FilterUseCase,
	cfg config.EnrichConfig,
	logger *zerolog.Logger,
) *EnrichUseCase {
	return &EnrichUseCase{
		postings: postings,
		fetcher:  fetcher,
		llm:      llm,
		embedder: embedder,
		filter:   filter,
		cfg:      cfg,
		logger:   logger.With().Str("component", "enrich_uc").Logger(),
	}
}

// Run enriches one posting. A returned error means the task should be
// retried; terminal failure handling (state=failed) belongs to the
// dispatcher when retries are exhausted.
func (uc *EnrichUseCase) Run(ctx context.Context, postingID string) error {
	ctx = logging.WithPostingID(ctx, postingID)
	defer logging.TraceDuration(&uc.logger, "EnrichUC.Run")()

	p, err := uc.postings.FindByID(ctx, nil, postingID)
	if err != nil {
		return fmt.Errorf("load posting %s: %w", postingID, err)
	}

	log := *logging.With(ctx, &uc.logger)

	if err := uc.postings.SetState(ctx, nil, p.ID, model.ProcessingStateProcessing); err != nil {
		return fmt.Errorf("set processing: %w", err)
	}

	// Step 1: content. Fetch failures other than policy denial and dead
	// links are transient; description derivation degrades to raw text.
	if desc, salary, ok, err := uc.deriveContent(ctx, p, log); err != nil {
		return err
	} else if ok {
		if err := uc.postings.UpdateEnrichment(ctx, nil, p.ID, desc, salary); err != nil {
			return fmt.Errorf("merge enrichment: %w", err)
		}
		if desc != nil {
			p.Description = desc
		}
	}

	// Step 2: embedding, always, so every posting eventually gets a vector.
	vec, err := uc.embedder.Embed(ctx, p.EmbeddingInput())
	if err != nil {
		return fmt.Errorf("embed posting: %w", err)
	}
	if err := uc.postings.SetEmbedding(ctx, nil, p.ID, vec, uc.embedder.ModelTag()); err != nil {
		return fmt.Errorf("store embedding: %w", err)
	}
	p.Embedding = vec
	p.EmbeddingModel = uc.embedder.ModelTag()

	// Step 3: blacklist check against the fresh vector.
	blacklisted, err := uc.filter.CheckPosting(ctx, p)
	if err != nil {
		return fmt.Errorf("blacklist check: %w", err)
	}

	if err := uc.postings.SetState(ctx, nil, p.ID, model.ProcessingStateCompleted); err != nil {
		return fmt.Errorf("set completed: %w", err)
	}
	log.Info().Bool("blacklisted", blacklisted).Msg("posting enriched")
	return nil
}

// MarkFailed finalizes a posting whose enrich task exhausted retries. The
// posting must never stay in processing.
func (uc *EnrichUseCase) MarkFailed(ctx context.Context, postingID string) error {
	return uc.postings.SetState(ctx, nil, postingID, model.ProcessingStateFailed)
}

// deriveContent fetches the page and turns it into a description plus a
// salary estimate. ok=false means the posting gets no content this round
// (denied platform, dead link, too little text); that is not an error.
func (uc *EnrichUseCase) deriveContent(ctx context.Context, p *model.Posting, log zerolog.Logger) (*string, model.Salary, bool, error) {
	text, err := uc.fetcher.FetchPage(ctx, p.URL)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrCrawlForbidden):
		log.Debug().Err(err).Msg("platform fetch denied, enriching from title only")
		return nil, model.Salary{}, false, nil
	case errors.Is(err, domain.ErrNotFound):
		log.Debug().Msg("posting page gone, enriching from title only")
		return nil, model.Salary{}, false, nil
	default:
		return nil, model.Salary{}, false, fmt.Errorf("fetch page: %w", err)
	}

	if len(text) < uc.cfg.MinDescriptionLen {
		return nil, model.Salary{}, false, nil
	}

	desc := text
	var salary model.Salary
	if uc.llm != nil {
		if d, s, err := uc.summarize(ctx, p.Title, text); err != nil {
			log.Warn().Err(err).Msg("llm summarize failed, keeping raw page text")
		} else {
			if len(d) >= uc.cfg.MinDescriptionLen {
				desc = d
			}
			salary = s
		}
	}
	if len(desc) < uc.cfg.MinDescriptionLen {
		return nil, salary, !salary.Empty(), nil
	}
	return &desc, salary, true, nil
}

const summarizePrompt = `You are given the page text of a job posting titled %q.
Respond with JSON only, no prose, in this shape:
{"description": "<concise plain-text summary of the role, requirements and conditions>",
 "salary": {"min": null, "max": null, "currency": null, "period": null}}
Use null for any salary field the text does not state. period is one of "year", "month", "hour".

Page text:
%s`

type summarizeResult struct {
	Description string       `json:"description"`
	Salary      model.Salary `json:"salary"`
}

func (uc *EnrichUseCase) summarize(ctx context.Context, title, text string) (string, model.Salary, error) {
	const maxPromptText = 12000
	if len(text) > maxPromptText {
		text = text[:maxPromptText]
	}
	out, err := uc.llm.Generate(ctx, fmt.Sprintf(summarizePrompt, title, text))
	if err != nil {
		return "", model.Salary{}, err
	}
	out = strings.TrimSpace(out)
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	var res summarizeResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &res); err != nil {
		return "", model.Salary{}, fmt.Errorf("parse llm response: %w", err)
	}
	return strings.TrimSpace(res.Description), res.Salary, nil
}
