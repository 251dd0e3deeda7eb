package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/siddhantsaxena45/AI-Interviewer/internal/metrics"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/uploads"
)

// Sweeper periodically recovers jobs abandoned by crashed workers and deletes
// orphaned answer uploads.
type Sweeper struct {
	queue        *Queue
	uploads      *uploads.Store
	staleAfter   time.Duration
	uploadMaxAge time.Duration
	cron         *cron.Cron
	logger       *zap.Logger
}

func NewSweeper(queue *Queue, store *uploads.Store, staleAfter, uploadMaxAge time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		queue:        queue,
		uploads:      store,
		staleAfter:   staleAfter,
		uploadMaxAge: uploadMaxAge,
		cron:         cron.New(),
		logger:       logger,
	}
}

// Start schedules Sweep with a cron spec such as "@every 1m".
func (s *Sweeper) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.Sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweeper: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Sweeper started", zap.String("schedule", schedule))
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Sweeper stopped")
}

// Sweep performs a single pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	moved, err := s.queue.RequeueStale(ctx, s.staleAfter)
	if err != nil {
		s.logger.Error("Failed to requeue stale jobs", zap.Error(err))
	}
	if moved > 0 {
		metrics.JobsRequeued(moved)
		s.logger.Warn("Requeued stale jobs", zap.Int("count", moved))
	}
	if pending, processing, err := s.queue.Len(ctx); err == nil {
		metrics.SetQueueDepth(pending, processing)
	}

	if s.uploads == nil {
		return
	}
	// audio of jobs still waiting in a backed up queue must survive
	inUse, err := s.queue.AudioPaths(ctx)
	if err != nil {
		s.logger.Error("Failed to list uploads referenced by jobs, skipping cleanup", zap.Error(err))
		return
	}
	removed, err := s.uploads.CleanupOlderThan(s.uploadMaxAge, func(path string) bool { return inUse[path] })
	if err != nil {
		s.logger.Error("Failed to clean up uploads", zap.Error(err))
		return
	}
	if removed > 0 {
		s.logger.Info("Removed orphaned uploads", zap.Int("count", removed))
	}
}
