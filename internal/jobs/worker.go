package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/siddhantsaxena45/AI-Interviewer/internal/metrics"
)

// HandlerFunc processes one job. Returning an error wrapped with Permanent
// skips the remaining attempts.
type HandlerFunc func(ctx context.Context, job *Job) error

// FailureFunc runs once a job has failed for the last time.
type FailureFunc func(ctx context.Context, job *Job, err error)

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

type registration struct {
	run    HandlerFunc
	onFail FailureFunc
}

type PoolOptions struct {
	Workers     int
	MaxAttempts int
	PollTimeout time.Duration // how long a worker blocks waiting for a job
}

// WorkerPool drains the queue with a fixed number of goroutines.
type WorkerPool struct {
	queue    *Queue
	opts     PoolOptions
	handlers map[Type]registration
	logger   *zap.Logger
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

func NewWorkerPool(queue *Queue, opts PoolOptions, logger *zap.Logger) *WorkerPool {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 2 * time.Second
	}
	return &WorkerPool{
		queue:    queue,
		opts:     opts,
		handlers: make(map[Type]registration),
		logger:   logger,
	}
}

// Register binds a job type to its handler. Call before Start.
func (p *WorkerPool) Register(t Type, run HandlerFunc, onFail FailureFunc) {
	p.handlers[t] = registration{run: run, onFail: onFail}
}

func (p *WorkerPool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go p.loop(ctx, i)
	}
	p.logger.Info("Worker pool started", zap.Int("workers", p.opts.Workers))
}

// Stop cancels the workers and waits for in-flight jobs to be released.
func (p *WorkerPool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}

func (p *WorkerPool) loop(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.logger.With(zap.Int("worker", id))

	for {
		if ctx.Err() != nil {
			return
		}

		job, err := p.queue.Dequeue(ctx, p.opts.PollTimeout)
		if errors.Is(err, ErrEmpty) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("Failed to dequeue job", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		p.process(ctx, log, job)
	}
}

func (p *WorkerPool) process(ctx context.Context, log *zap.Logger, job *Job) {
	start := time.Now()
	log = log.With(
		zap.String("jobId", job.ID),
		zap.String("type", string(job.Type)),
		zap.String("sessionId", job.SessionID),
		zap.Int("attempt", job.Attempts+1))

	reg, ok := p.handlers[job.Type]
	if !ok {
		log.Error("No handler registered for job type, dropping")
		p.ack(log, job)
		metrics.ObserveJob(string(job.Type), "unhandled", time.Since(start))
		return
	}

	err := p.run(ctx, reg.run, job)

	switch {
	case err == nil:
		p.ack(log, job)
		metrics.ObserveJob(string(job.Type), "acked", time.Since(start))

	case ctx.Err() != nil:
		// shutting down: hand the job back untouched
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if rerr := p.queue.Release(releaseCtx, job); rerr != nil {
			log.Error("Failed to release job on shutdown", zap.Error(rerr))
		}
		metrics.ObserveJob(string(job.Type), "released", time.Since(start))

	case !IsPermanent(err) && job.Attempts+1 < p.opts.MaxAttempts:
		log.Warn("Job failed, retrying", zap.Error(err))
		if rerr := p.queue.Retry(ctx, job); rerr != nil {
			log.Error("Failed to requeue job", zap.Error(rerr))
		}
		metrics.ObserveJob(string(job.Type), "retried", time.Since(start))

	default:
		log.Error("Job failed permanently", zap.Error(err))
		if reg.onFail != nil {
			reg.onFail(ctx, job, err)
		}
		p.ack(log, job)
		metrics.ObserveJob(string(job.Type), "failed", time.Since(start))
	}
}

func (p *WorkerPool) run(ctx context.Context, fn HandlerFunc, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Permanent(fmt.Errorf("job handler panicked: %v", r))
		}
	}()
	return fn(ctx, job)
}

func (p *WorkerPool) ack(log *zap.Logger, job *Job) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.queue.Ack(ctx, job); err != nil {
		log.Error("Failed to ack job", zap.Error(err))
	}
}
