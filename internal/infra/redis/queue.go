package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"jobsieve/internal/domain"
	"jobsieve/internal/domain/model"
	"jobsieve/internal/domain/ports/adapter"
	"jobsieve/internal/infra/metrics"
)

var _ adapter.TaskQueue = (*TaskQueue)(nil)

// TaskQueue is a durable at-least-once queue on Redis lists. Layout per
// task kind:
//
//	queue:{kind}:waiting     list, new and re-promoted tasks
//	queue:{kind}:processing  list, dequeued but not yet acked
//	queue:{kind}:delayed     zset, score = unix millis the retry is due
//	queue:{kind}:dead        list, tasks that exhausted their attempts
//
// Dequeue moves waiting -> processing atomically (BRPOPLPUSH); Ack removes
// the exact payload from processing. A process crash leaves payloads in
// processing; RequeueOrphans moves them back to waiting on the next start,
// which is what makes delivery at-least-once rather than at-most-once.
type TaskQueue struct {
	cli *redis.Client
	log *zerolog.Logger
}

func NewTaskQueue(c *Client, logger *zerolog.Logger) *TaskQueue {
	l := logger.With().Str("component", "TaskQueue").Logger()
	return &TaskQueue{cli: c.cli, log: &l}
}

// RequeueOrphans returns tasks stranded in processing by a previous run to
// the waiting list. Call once at startup, before workers begin dequeuing.
func (q *TaskQueue) RequeueOrphans(ctx context.Context) (int, error) {
	total := 0
	for _, kind := range model.AllTaskKinds() {
		for {
			raw, err := q.cli.RPopLPush(ctx, key(kind, "processing"), key(kind, "waiting")).Result()
			if err == redis.Nil {
				break
			}
			if err != nil {
				return total, err
			}
			_ = raw
			total++
		}
	}
	return total, nil
}

func key(kind model.TaskKind, segment string) string {
	return fmt.Sprintf("queue:%s:%s", kind, segment)
}

func (q *TaskQueue) Enqueue(ctx context.Context, task *model.Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	return q.cli.LPush(ctx, key(task.Kind, "waiting"), payload).Err()
}

func (q *TaskQueue) Dequeue(ctx context.Context, kind model.TaskKind, block time.Duration) (*model.Task, error) {
	raw, err := q.cli.BRPopLPush(ctx, key(kind, "waiting"), key(kind, "processing"), block).Result()
	if err == redis.Nil {
		return nil, domain.ErrQueueEmpty
	}
	if err != nil {
		return nil, err
	}
	var task model.Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		// Unparseable payloads cannot be retried meaningfully; park them.
		q.log.Error().Err(err).Str("kind", string(kind)).Msg("malformed task payload, burying")
		q.cli.LRem(ctx, key(kind, "processing"), 1, raw)
		q.cli.LPush(ctx, key(kind, "dead"), raw)
		return nil, domain.ErrQueueEmpty
	}
	task.Raw = raw
	return &task, nil
}

func (q *TaskQueue) Ack(ctx context.Context, task *model.Task) error {
	return q.cli.LRem(ctx, key(task.Kind, "processing"), 1, task.Raw).Err()
}

func (q *TaskQueue) Retry(ctx context.Context, task *model.Task, delay time.Duration) error {
	old := task.Raw
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	due := float64(time.Now().Add(delay).UnixMilli())
	pipe := q.cli.TxPipeline()
	pipe.LRem(ctx, key(task.Kind, "processing"), 1, old)
	pipe.ZAdd(ctx, key(task.Kind, "delayed"), &redis.Z{Score: due, Member: string(payload)})
	_, err = pipe.Exec(ctx)
	return err
}

func (q *TaskQueue) Bury(ctx context.Context, task *model.Task) error {
	old := task.Raw
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	pipe := q.cli.TxPipeline()
	pipe.LRem(ctx, key(task.Kind, "processing"), 1, old)
	pipe.LPush(ctx, key(task.Kind, "dead"), payload)
	_, err = pipe.Exec(ctx)
	return err
}

func (q *TaskQueue) Depth(ctx context.Context, kind model.TaskKind) (adapter.QueueDepth, error) {
	var d adapter.QueueDepth
	var err error
	if d.Waiting, err = q.cli.LLen(ctx, key(kind, "waiting")).Result(); err != nil {
		return d, err
	}
	if d.Processing, err = q.cli.LLen(ctx, key(kind, "processing")).Result(); err != nil {
		return d, err
	}
	if d.Delayed, err = q.cli.ZCard(ctx, key(kind, "delayed")).Result(); err != nil {
		return d, err
	}
	if d.Dead, err = q.cli.LLen(ctx, key(kind, "dead")).Result(); err != nil {
		return d, err
	}
	return d, nil
}

func (q *TaskQueue) Dead(ctx context.Context, kind model.TaskKind, limit int64) ([]*model.Task, error) {
	if limit <= 0 {
		limit = 50
	}
	raws, err := q.cli.LRange(ctx, key(kind, "dead"), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	tasks := make([]*model.Task, 0, len(raws))
	for _, raw := range raws {
		var t model.Task
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			continue
		}
		tasks = append(tasks, &t)
	}
	return tasks, nil
}

// PromoteDue moves delayed tasks whose due time has passed back to waiting.
// Crash between ZRem and LPush can duplicate a task; delivery is
// at-least-once, so handlers already tolerate that.
func (q *TaskQueue) PromoteDue(ctx context.Context, kind model.TaskKind) (int, error) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	members, err := q.cli.ZRangeByScore(ctx, key(kind, "delayed"), &redis.ZRangeBy{
		Min: "-inf", Max: now, Count: 100,
	}).Result()
	if err != nil || len(members) == 0 {
		return 0, err
	}
	promoted := 0
	for _, m := range members {
		removed, err := q.cli.ZRem(ctx, key(kind, "delayed"), m).Result()
		if err != nil || removed == 0 {
			continue // another promoter got it first
		}
		if err := q.cli.LPush(ctx, key(kind, "waiting"), m).Err(); err != nil {
			return promoted, err
		}
		promoted++
	}
	return promoted, nil
}

// RunMaintenance loops promoting due retries and publishing depth gauges
// until ctx is cancelled. Run it in a goroutine next to the dispatcher.
func (q *TaskQueue) RunMaintenance(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, kind := range model.AllTaskKinds() {
				if _, err := q.PromoteDue(ctx, kind); err != nil && ctx.Err() == nil {
					q.log.Error().Err(err).Str("kind", string(kind)).Msg("promote due tasks")
				}
				if d, err := q.Depth(ctx, kind); err == nil {
					metrics.SetQueueDepth(string(kind), "waiting", d.Waiting)
					metrics.SetQueueDepth(string(kind), "processing", d.Processing)
					metrics.SetQueueDepth(string(kind), "delayed", d.Delayed)
					metrics.SetQueueDepth(string(kind), "dead", d.Dead)
				}
			}
		}
	}
}
