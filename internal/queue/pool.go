package queue

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/noah-isme/codepractice-api/internal/observability"
)

const defaultBacklog = 1024

// pool runs a fixed number of workers over a buffered job channel.
type pool struct {
	backend string
	size    int
	jobs    chan job
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	logger  zerolog.Logger
}

func newPool(backend string, size, backlog int, logger zerolog.Logger) *pool {
	if size <= 0 {
		size = 1
	}
	if backlog <= 0 {
		backlog = defaultBacklog
	}
	return &pool{
		backend: backend,
		size:    size,
		jobs:    make(chan job, backlog),
		done:    make(chan struct{}),
		logger:  logger,
	}
}

func (p *pool) start(ctx context.Context, handler Handler) {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go func(worker int) {
			defer p.wg.Done()
			for {
				// Both cases can be ready at once; stop wins.
				select {
				case <-p.done:
					return
				default:
				}

				select {
				case <-ctx.Done():
					return
				case <-p.done:
					return
				case j := <-p.jobs:
					observability.GradingJobsDispatched().WithLabelValues(p.backend).Inc()
					p.run(ctx, handler, worker, j)
				}
			}
		}(i)
	}
}

func (p *pool) run(ctx context.Context, handler Handler, worker int, j job) {
	defer func() {
		if recovered := recover(); recovered != nil {
			p.logger.Error().
				Interface("panic", recovered).
				Int("worker", worker).
				Uint("submission_id", j.SubmissionID).
				Str("correlation_id", j.CorrelationID).
				Msg("grading handler panicked")
		}
	}()
	handler(j.context(ctx), j.SubmissionID)
}

// submit blocks until a worker slot is free, ctx is done or the pool stops.
func (p *pool) submit(ctx context.Context, j job) error {
	select {
	case <-p.done:
		return ErrSchedulerClosed
	default:
	}

	select {
	case p.jobs <- j:
		return nil
	case <-p.done:
		return ErrSchedulerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pool) stop() {
	p.once.Do(func() { close(p.done) })
	p.wg.Wait()
	if pending := len(p.jobs); pending > 0 {
		p.logger.Warn().Int("pending", pending).Msg("grading pool stopped with queued jobs")
	}
}
