package queue

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/codepractice-api/internal/observability"
)

// LocalScheduler dispatches jobs to in-process workers. Jobs queued when the
// process exits are not persisted.
type LocalScheduler struct {
	pool *pool
}

// NewLocalScheduler constructs an in-memory scheduler with the given worker count.
func NewLocalScheduler(workers, backlog int, logger zerolog.Logger) *LocalScheduler {
	logger = logger.With().Str("component", "local_scheduler").Logger()
	return &LocalScheduler{pool: newPool("local", workers, backlog, logger)}
}

// Enqueue implements Scheduler.
func (s *LocalScheduler) Enqueue(ctx context.Context, submissionID uint) error {
	if err := s.pool.submit(ctx, newJob(ctx, submissionID)); err != nil {
		return err
	}
	observability.GradingJobsEnqueued().WithLabelValues("local").Inc()
	return nil
}

// Start implements Scheduler.
func (s *LocalScheduler) Start(ctx context.Context, handler Handler) error {
	s.pool.start(ctx, handler)
	return nil
}

// Close implements Scheduler.
func (s *LocalScheduler) Close() error {
	s.pool.stop()
	return nil
}
