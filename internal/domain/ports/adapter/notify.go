package adapter

import (
	"context"

	"jobsieve/internal/domain/model"
)

// Notifier receives pipeline events: a posting suppressed by the semantic
// filter, or a finished scan. Implementations must not block the caller for
// long; failures are logged, never propagated into stage logic.
type Notifier interface {
	PostingRemoved(ctx context.Context, postingID, title, reason string)
	ScanFinished(ctx context.Context, summary model.ScanSummary)
}
