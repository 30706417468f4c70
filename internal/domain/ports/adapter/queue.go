package adapter

import (
	"context"
	"time"

	"jobsieve/internal/domain/model"
)

// QueueDepth reports the size of each per-kind queue segment.
type QueueDepth struct {
	Waiting    int64 `json:"waiting"`
	Processing int64 `json:"processing"`
	Delayed    int64 `json:"delayed"`
	Dead       int64 `json:"dead"`
}

// TaskQueue is the durable at-least-once queue primitive backing the
// pipeline. Each task kind has its own queue. A dequeued task stays in a
// processing segment until it is acked, retried or buried, so a crashed
// worker's task remains visible.
type TaskQueue interface {
	Enqueue(ctx context.Context, task *model.Task) error
	// Dequeue blocks up to block for a task of the given kind and returns
	// domain.ErrQueueEmpty when none arrives in time.
	Dequeue(ctx context.Context, kind model.TaskKind, block time.Duration) (*model.Task, error)
	// Ack removes a dequeued task permanently.
	Ack(ctx context.Context, task *model.Task) error
	// Retry schedules a dequeued task to run again after delay.
	Retry(ctx context.Context, task *model.Task, delay time.Duration) error
	// Bury parks a dequeued task in the dead segment for operator review.
	Bury(ctx context.Context, task *model.Task) error
	Depth(ctx context.Context, kind model.TaskKind) (QueueDepth, error)
	Dead(ctx context.Context, kind model.TaskKind, limit int64) ([]*model.Task, error)
}
