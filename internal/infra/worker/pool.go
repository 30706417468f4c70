// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

type Task func(ctx context.Context) error

// Pool runs submitted tasks on a fixed set of goroutines. Submit blocks
// when every worker is busy; the queue's blocking dequeue upstream provides
// the natural back-pressure.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan Task
	quit chan struct{}
	n    int

	errFn func(error)
}

func NewPool(workers int, errFn func(error)) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{
		jobs:  make(chan Task),
		quit:  make(chan struct{}),
		n:     workers,
		errFn: errFn,
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task := <-p.jobs:
					if task == nil {
						continue
					}
					if err := task(ctx); err != nil && p.errFn != nil {
						p.errFn(err)
					}
				}
			}
		}()
	}
}

// Stop waits for in-flight tasks to finish. Tasks still queued but not
// picked up are abandoned; the durable queue redelivers their work.
func (p *Pool) Stop() {
	close(p.quit)
	p.wg.Wait()
}

// Submit hands a task to the pool, blocking until a worker is free or ctx
// is done.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case p.jobs <- task:
		return nil
	case <-p.quit:
		return errors.New("pool stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}
