package repository

import (
	"context"

	"jobsieve/internal/domain/model"
)

// PostingRepository is the single source of truth for postings.
//
// Upsert is the concurrency-critical operation: two workers inserting the
// same URL at once must resolve to one row via a database-level upsert, not
// a select-then-insert. The merge never replaces a non-null column with
// null and never touches processing_state on conflict.
type PostingRepository interface {
	// Upsert inserts p or merges it into the existing row with the same
	// URL. It reports the row id and whether the row was newly created.
	Upsert(ctx context.Context, tx Tx, p *model.Posting) (id string, isNew bool, err error)

	FindByID(ctx context.Context, tx Tx, id string) (*model.Posting, error)
	List(ctx context.Context, tx Tx, f model.PostingFilter) ([]*model.Posting, error)
	Delete(ctx context.Context, tx Tx, id string) error

	// SetState applies a forward-only state transition; backward moves are
	// silently ignored (idempotent under redelivery).
	SetState(ctx context.Context, tx Tx, id string, state model.ProcessingState) error
	SetBlacklisted(ctx context.Context, tx Tx, id string, blacklisted bool) error

	// UpdateEnrichment merges description and salary, never downgrading a
	// non-null value to null.
	UpdateEnrichment(ctx context.Context, tx Tx, id string, description *string, salary model.Salary) error
	SetEmbedding(ctx context.Context, tx Tx, id string, vector []float32, modelTag string) error

	// ListWithoutEmbedding returns postings lacking a vector under modelTag
	// (including vectors from other models, which are not comparable).
	ListWithoutEmbedding(ctx context.Context, tx Tx, modelTag string, limit int) ([]*model.Posting, error)
	// ListEmbedded returns postings carrying a vector under modelTag,
	// optionally excluding already-blacklisted rows.
	ListEmbedded(ctx context.Context, tx Tx, modelTag string, excludeBlacklisted bool) ([]*model.Posting, error)
}
