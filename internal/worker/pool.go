// Package worker runs the per-queue delivery pools. Each queue gets a fixed
// number of goroutines fed from a channel, a shared token bucket capping job
// starts per second, and a queue-specific retry policy applied around its
// handler.
package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/formflux/formflux/internal/logging"
)

// Handler processes one raw job pulled off a queue.
type Handler func(ctx context.Context, raw []byte)

// Pool manages a fixed number of worker goroutines for one queue.
type Pool struct {
	name    string
	workers int
	jobs    chan []byte
	handle  Handler
	limiter *rate.Limiter
	logger  logging.Logger
	wg      sync.WaitGroup
}

// NewPool creates a pool of workers goroutines for the named queue. A
// jobsPerSecond of zero or less disables the rate cap.
func NewPool(name string, workers, jobsPerSecond int, handle Handler, logger logging.Logger) *Pool {
	var limiter *rate.Limiter
	if jobsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(jobsPerSecond), jobsPerSecond)
	}
	return &Pool{
		name:    name,
		workers: workers,
		jobs:    make(chan []byte, workers*2),
		handle:  handle,
		limiter: limiter,
		logger:  logger,
	}
}

// Start launches the worker goroutines. They read from the jobs channel until
// it is closed or ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	p.logger.Info("worker pool started",
		zap.String("queue", p.name),
		zap.Int("workers", p.workers),
	)
}

// Submit hands a raw job to the pool. It blocks when all workers are busy and
// the buffer is full, which backpressures the consumer feeding the pool.
func (p *Pool) Submit(raw []byte) {
	p.jobs <- raw
}

// Stop closes the jobs channel and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
	p.logger.Info("worker pool stopped", zap.String("queue", p.name))
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()

	for raw := range p.jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return
			}
		}
		p.handle(ctx, raw)
	}
}
