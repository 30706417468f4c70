// File: internal/infra/worker/dispatcher.go
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"jobsieve/internal/config"
	"jobsieve/internal/domain"
	"jobsieve/internal/domain/model"
	"jobsieve/internal/domain/ports/adapter"
	"jobsieve/internal/infra/logging"
	"jobsieve/internal/infra/metrics"
)

const dequeueBlock = 5 * time.Second

// Handler executes one task of a given kind. A non-nil error schedules a
// retry until attempts are exhausted, then the task is buried.
type Handler func(ctx context.Context, task *model.Task) error

// DeadHook runs once when a task is buried, letting a stage finalize state
// (an enrich task's posting moves to failed).
type DeadHook func(ctx context.Context, task *model.Task)

type kindRuntime struct {
	cfg      config.QueueKindConfig
	handler  Handler
	deadHook DeadHook
	pool     *Pool
}

// Dispatcher drives per-kind worker pools over the durable task queue.
// Delivery is at-least-once: handlers are idempotent, a crashed worker's
// task reappears via the queue's orphan requeue, and exhausted tasks are
// parked dead rather than dropped.
type Dispatcher struct {
	queue  adapter.TaskQueue
	kinds  map[model.TaskKind]*kindRuntime
	logger zerolog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewDispatcher(queue adapter.TaskQueue, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		queue:  queue,
		kinds:  make(map[model.TaskKind]*kindRuntime),
		logger: logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Register wires a task kind to its handler. deadHook may be nil.
func (d *Dispatcher) Register(kind model.TaskKind, cfg config.QueueKindConfig, handler Handler, deadHook DeadHook) {
	errLog := func(err error) {
		d.logger.Error().Err(err).Str("kind", string(kind)).Msg("worker task error")
	}
	d.kinds[kind] = &kindRuntime{
		cfg:      cfg,
		handler:  handler,
		deadHook: deadHook,
		pool:     NewPool(cfg.Concurrency, errLog),
	}
}

// Start launches one consumer loop per registered kind plus its pool.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	for kind, rt := range d.kinds {
		rt.pool.Start(ctx)
		d.wg.Add(1)
		go d.consume(ctx, kind, rt)
	}
	d.logger.Info().Int("kinds", len(d.kinds)).Msg("dispatcher started")
}

// Stop halts consumption and waits for in-flight tasks.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	for _, rt := range d.kinds {
		rt.pool.Stop()
	}
	d.logger.Info().Msg("dispatcher stopped")
}

func (d *Dispatcher) consume(ctx context.Context, kind model.TaskKind, rt *kindRuntime) {
	defer d.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		task, err := d.queue.Dequeue(ctx, kind, dequeueBlock)
		if err != nil {
			if errors.Is(err, domain.ErrQueueEmpty) || errors.Is(err, context.Canceled) {
				continue
			}
			d.logger.Error().Err(err).Str("kind", string(kind)).Msg("dequeue failed")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}
		t := task
		if err := rt.pool.Submit(ctx, func(ctx context.Context) error {
			d.execute(ctx, rt, t)
			return nil
		}); err != nil {
			// Shutdown raced the dequeue; the processing segment holds the
			// task until the next startup requeues it.
			return
		}
	}
}

func (d *Dispatcher) execute(ctx context.Context, rt *kindRuntime, task *model.Task) {
	ctx = logging.WithTaskID(ctx, task.ID)
	log := d.logger.With().Str("task_id", task.ID).Str("kind", string(task.Kind)).Int("attempt", task.Attempt).Logger()

	runCtx, cancel := context.WithTimeout(ctx, rt.cfg.Timeout)
	defer cancel()

	start := time.Now()
	err := rt.handler(runCtx, task)
	metrics.ObserveTaskDuration(string(task.Kind), time.Since(start).Seconds())

	// Queue bookkeeping must survive shutdown of the run context.
	ackCtx, ackCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer ackCancel()

	if err == nil {
		if err := d.queue.Ack(ackCtx, task); err != nil {
			log.Error().Err(err).Msg("ack failed, task will be redelivered")
		}
		metrics.IncTask(string(task.Kind), "completed")
		log.Debug().Dur("took", time.Since(start)).Msg("task completed")
		return
	}

	task.Attempt++
	task.LastError = err.Error()

	if task.Attempt >= rt.cfg.MaxAttempts {
		if berr := d.queue.Bury(ackCtx, task); berr != nil {
			log.Error().Err(berr).Msg("bury failed")
		}
		metrics.IncTask(string(task.Kind), "dead")
		log.Error().Err(err).Msg("task exhausted retries, buried")
		if rt.deadHook != nil {
			rt.deadHook(ackCtx, task)
		}
		return
	}

	delay := backoff(rt.cfg.BackoffBase, rt.cfg.BackoffMax, task.Attempt)
	if rerr := d.queue.Retry(ackCtx, task, delay); rerr != nil {
		log.Error().Err(rerr).Msg("retry scheduling failed, task will be redelivered")
	}
	metrics.IncTask(string(task.Kind), "retried")
	metrics.IncTaskRetry(string(task.Kind))
	log.Warn().Err(err).Dur("delay", delay).Msg("task failed, retry scheduled")
}

// backoff doubles the base per attempt, capped at max.
func backoff(base, max time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
