package repository

import (
	"context"

	"jobsieve/internal/domain/model"
)

// SourceMessageRepository tracks which provider messages have been scanned.
// Save upserts by provider message id so re-syncing the mailbox is a no-op.
type SourceMessageRepository interface {
	Save(ctx context.Context, tx Tx, m *model.SourceMessage) (id string, isNew bool, err error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.SourceMessage, error)
	ListUnscanned(ctx context.Context, tx Tx, limit int) ([]*model.SourceMessage, error)
	// MarkScanned is idempotent; repeat delivery of an extraction task only
	// rewrites the same flag.
	MarkScanned(ctx context.Context, tx Tx, id string) error
}
