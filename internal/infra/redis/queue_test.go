package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"jobsieve/internal/domain"
	"jobsieve/internal/domain/model"
)

func newTestQueue(t *testing.T) (*TaskQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cli := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cli.Close() })
	logger := zerolog.Nop()
	return &TaskQueue{cli: cli, log: &logger}, mr
}

func TestTaskQueue_EnqueueDequeueAck(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	task := model.NewEnrichTask("posting-1")
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	got, err := q.Dequeue(ctx, model.TaskKindEnrich, time.Second)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if got.ID != task.ID || got.PostingID != "posting-1" {
		t.Errorf("dequeued wrong task: %+v", got)
	}

	// Dequeued but unacked: it must sit in processing, not be gone.
	d, err := q.Depth(ctx, model.TaskKindEnrich)
	if err != nil {
		t.Fatalf("depth: %v", err)
	}
	if d.Processing != 1 || d.Waiting != 0 {
		t.Errorf("expected 1 processing / 0 waiting, got %+v", d)
	}

	if err := q.Ack(ctx, got); err != nil {
		t.Fatalf("ack: %v", err)
	}
	d, _ = q.Depth(ctx, model.TaskKindEnrich)
	if d.Processing != 0 {
		t.Errorf("expected empty processing after ack, got %+v", d)
	}
}

func TestTaskQueue_EmptyDequeue(t *testing.T) {
	q, _ := newTestQueue(t)
	_, err := q.Dequeue(context.Background(), model.TaskKindExtract, 50*time.Millisecond)
	if !errors.Is(err, domain.ErrQueueEmpty) {
		t.Fatalf("expected ErrQueueEmpty, got %v", err)
	}
}

func TestTaskQueue_RetryAndPromote(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	task := model.NewExtractTask("msg-1")
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatal(err)
	}
	got, err := q.Dequeue(ctx, model.TaskKindExtract, time.Second)
	if err != nil {
		t.Fatal(err)
	}

	got.Attempt++
	got.LastError = "boom"
	if err := q.Retry(ctx, got, 0); err != nil {
		t.Fatalf("retry: %v", err)
	}

	d, _ := q.Depth(ctx, model.TaskKindExtract)
	if d.Delayed != 1 || d.Processing != 0 {
		t.Fatalf("expected 1 delayed / 0 processing, got %+v", d)
	}

	n, err := q.PromoteDue(ctx, model.TaskKindExtract)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 promoted, got %d", n)
	}

	again, err := q.Dequeue(ctx, model.TaskKindExtract, time.Second)
	if err != nil {
		t.Fatalf("dequeue after promote: %v", err)
	}
	if again.Attempt != 1 || again.LastError != "boom" {
		t.Errorf("retry metadata lost: %+v", again)
	}
}

func TestTaskQueue_RetryNotDueStaysDelayed(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	task := model.NewEnrichTask("posting-2")
	_ = q.Enqueue(ctx, task)
	got, _ := q.Dequeue(ctx, model.TaskKindEnrich, time.Second)
	if err := q.Retry(ctx, got, time.Hour); err != nil {
		t.Fatal(err)
	}

	n, err := q.PromoteDue(ctx, model.TaskKindEnrich)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("task promoted %d before due time", n)
	}
}

func TestTaskQueue_RequeueOrphans(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	task := model.NewEnrichTask("posting-3")
	_ = q.Enqueue(ctx, task)
	if _, err := q.Dequeue(ctx, model.TaskKindEnrich, time.Second); err != nil {
		t.Fatal(err)
	}

	// Simulate a crash: the task was never acked.
	n, err := q.RequeueOrphans(ctx)
	if err != nil {
		t.Fatalf("requeue orphans: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 orphan, got %d", n)
	}

	again, err := q.Dequeue(ctx, model.TaskKindEnrich, time.Second)
	if err != nil {
		t.Fatalf("dequeue after requeue: %v", err)
	}
	if again.ID != task.ID {
		t.Errorf("expected the orphaned task back, got %+v", again)
	}
}

func TestTaskQueue_Bury(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	task := model.NewEmbedKeywordTask("kw-1")
	_ = q.Enqueue(ctx, task)
	got, _ := q.Dequeue(ctx, model.TaskKindEmbedKeyword, time.Second)
	got.Attempt = 3
	got.LastError = "exhausted"
	if err := q.Bury(ctx, got); err != nil {
		t.Fatalf("bury: %v", err)
	}

	dead, err := q.Dead(ctx, model.TaskKindEmbedKeyword, 10)
	if err != nil {
		t.Fatalf("dead: %v", err)
	}
	if len(dead) != 1 || dead[0].ID != task.ID || dead[0].LastError != "exhausted" {
		t.Errorf("unexpected dead list: %+v", dead)
	}

	// Dead tasks never block other kinds or further work on the same kind.
	next := model.NewEmbedKeywordTask("kw-2")
	_ = q.Enqueue(ctx, next)
	got2, err := q.Dequeue(ctx, model.TaskKindEmbedKeyword, time.Second)
	if err != nil || got2.KeywordID != "kw-2" {
		t.Errorf("dead task blocked the queue: %v %+v", err, got2)
	}
}
