// File: internal/infra/worker/dispatcher_test.go
package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"jobsieve/internal/config"
	"jobsieve/internal/domain"
	"jobsieve/internal/domain/model"
	"jobsieve/internal/domain/ports/adapter"
)

// chanQueue is an in-memory TaskQueue for dispatcher tests. Retried tasks
// are redelivered immediately regardless of delay.
type chanQueue struct {
	mu      sync.Mutex
	waiting []*model.Task
	dead    []*model.Task
	acked   []*model.Task
	retries int
}

func (q *chanQueue) Enqueue(ctx context.Context, t *model.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.waiting = append(q.waiting, t)
	return nil
}

func (q *chanQueue) Dequeue(ctx context.Context, kind model.TaskKind, block time.Duration) (*model.Task, error) {
	deadline := time.Now().Add(block)
	for {
		q.mu.Lock()
		for i, t := range q.waiting {
			if t.Kind == kind {
				q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
				q.mu.Unlock()
				return t, nil
			}
		}
		q.mu.Unlock()
		if time.Now().After(deadline) || ctx.Err() != nil {
			return nil, domain.ErrQueueEmpty
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (q *chanQueue) Ack(ctx context.Context, t *model.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, t)
	return nil
}

func (q *chanQueue) Retry(ctx context.Context, t *model.Task, d time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.retries++
	q.waiting = append(q.waiting, t)
	return nil
}

func (q *chanQueue) Bury(ctx context.Context, t *model.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dead = append(q.dead, t)
	return nil
}

func (q *chanQueue) Depth(ctx context.Context, kind model.TaskKind) (adapter.QueueDepth, error) {
	return adapter.QueueDepth{}, nil
}

func (q *chanQueue) Dead(ctx context.Context, kind model.TaskKind, limit int64) ([]*model.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*model.Task(nil), q.dead...), nil
}

func (q *chanQueue) snapshot() (acked, dead, retries int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.acked), len(q.dead), q.retries
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	end := time.Now().Add(timeout)
	for time.Now().Before(end) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func kindCfg(attempts int) config.QueueKindConfig {
	return config.QueueKindConfig{
		Concurrency: 2,
		MaxAttempts: attempts,
		Timeout:     time.Second,
		BackoffBase: time.Millisecond,
		BackoffMax:  10 * time.Millisecond,
	}
}

func TestDispatcher_CompletedTaskIsAcked(t *testing.T) {
	queue := &chanQueue{}
	logger := zerolog.Nop()
	d := NewDispatcher(queue, &logger)

	var handled int
	var mu sync.Mutex
	d.Register(model.TaskKindEnrich, kindCfg(3), func(ctx context.Context, task *model.Task) error {
		mu.Lock()
		handled++
		mu.Unlock()
		return nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	defer d.Stop()

	if err := queue.Enqueue(ctx, model.NewEnrichTask("p-1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitFor(t, 3*time.Second, func() bool {
		acked, _, _ := queue.snapshot()
		return acked == 1
	})
	mu.Lock()
	defer mu.Unlock()
	if handled != 1 {
		t.Errorf("handled = %d, want 1", handled)
	}
}

func TestDispatcher_ExhaustedTaskIsBuried(t *testing.T) {
	queue := &chanQueue{}
	logger := zerolog.Nop()
	d := NewDispatcher(queue, &logger)

	var deadIDs []string
	var mu sync.Mutex
	d.Register(model.TaskKindEnrich, kindCfg(3), func(ctx context.Context, task *model.Task) error {
		return errors.New("always fails")
	}, func(ctx context.Context, task *model.Task) {
		mu.Lock()
		deadIDs = append(deadIDs, task.PostingID)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	defer d.Stop()

	if err := queue.Enqueue(ctx, model.NewEnrichTask("p-doomed")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitFor(t, 5*time.Second, func() bool {
		_, dead, _ := queue.snapshot()
		return dead == 1
	})

	_, _, retries := queue.snapshot()
	if retries != 2 {
		t.Errorf("retries = %d, want 2 before the third attempt buries", retries)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(deadIDs) != 1 || deadIDs[0] != "p-doomed" {
		t.Errorf("dead hook ids = %v", deadIDs)
	}
	dead, err := queue.Dead(ctx, model.TaskKindEnrich, 10)
	if err != nil || len(dead) != 1 {
		t.Fatalf("dead tasks = %d, err = %v", len(dead), err)
	}
	if dead[0].LastError == "" {
		t.Error("buried task lost its last error")
	}
}

func TestDispatcher_TimeoutFailsTask(t *testing.T) {
	queue := &chanQueue{}
	logger := zerolog.Nop()
	d := NewDispatcher(queue, &logger)

	cfg := kindCfg(1)
	cfg.Timeout = 50 * time.Millisecond
	d.Register(model.TaskKindExtract, cfg, func(ctx context.Context, task *model.Task) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	defer d.Stop()

	if err := queue.Enqueue(ctx, model.NewExtractTask("m-slow")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	waitFor(t, 3*time.Second, func() bool {
		_, dead, _ := queue.snapshot()
		return dead == 1
	})
}

func TestBackoff(t *testing.T) {
	base, max := time.Second, 8*time.Second
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{10, 8 * time.Second},
	}
	for _, c := range cases {
		if got := backoff(base, max, c.attempt); got != c.want {
			t.Errorf("backoff(attempt=%d) = %v, want %v", c.attempt, got, c.want)
		}
	}
}
