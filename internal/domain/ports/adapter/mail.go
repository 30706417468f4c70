package adapter

import (
	"context"
	"time"

	"jobsieve/internal/domain/model"
)

// MailSource is the collaborator-owned email client. The core only pulls
// job-related messages from it; fetching, auth and classification live on
// the provider side.
type MailSource interface {
	// FetchJobRelated returns job-related messages received after since.
	FetchJobRelated(ctx context.Context, since time.Time) ([]*model.SourceMessage, error)
}
