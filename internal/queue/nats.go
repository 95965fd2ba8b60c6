package queue

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codepractice-api/internal/observability"
)

const (
	defaultNATSSubject = "codepractice.grading"
	natsQueueGroup     = "codepractice-graders"
)

// NATSScheduler publishes jobs on a subject consumed by a queue group, so
// each job is delivered to exactly one subscribed worker process.
type NATSScheduler struct {
	conn    *nats.Conn
	subject string
	pool    *pool
	logger  zerolog.Logger
	sub     *nats.Subscription
}

// NewNATSScheduler constructs a NATS backed scheduler.
func NewNATSScheduler(conn *nats.Conn, subject string, workers int, logger zerolog.Logger) *NATSScheduler {
	if subject == "" {
		subject = defaultNATSSubject
	}
	logger = logger.With().Str("component", "nats_scheduler").Str("subject", subject).Logger()
	return &NATSScheduler{
		conn:    conn,
		subject: subject,
		pool:    newPool("nats", workers, workers, logger),
		logger:  logger,
	}
}

// Enqueue implements Scheduler.
func (s *NATSScheduler) Enqueue(ctx context.Context, submissionID uint) error {
	if s.conn == nil {
		return errors.New("nats connection is not configured")
	}
	payload, err := encodeJob(newJob(ctx, submissionID))
	if err != nil {
		return err
	}
	if err := s.conn.Publish(s.subject, payload); err != nil {
		return err
	}
	observability.GradingJobsEnqueued().WithLabelValues("nats").Inc()
	return nil
}

// Start implements Scheduler.
func (s *NATSScheduler) Start(ctx context.Context, handler Handler) error {
	if s.conn == nil {
		return errors.New("nats connection is not configured")
	}

	s.pool.start(ctx, handler)

	sub, err := s.conn.QueueSubscribe(s.subject, natsQueueGroup, func(msg *nats.Msg) {
		j, err := decodeJob(msg.Data)
		if err != nil {
			s.logger.Warn().Err(err).Msg("dropping malformed grading job")
			return
		}
		if err := s.pool.submit(ctx, j); err != nil {
			s.logger.Error().Err(err).Uint("submission_id", j.SubmissionID).Msg("grading job not dispatched")
		}
	})
	if err != nil {
		return err
	}
	s.sub = sub

	s.logger.Info().Msg("nats grading consumer started")
	return nil
}

// Close implements Scheduler.
func (s *NATSScheduler) Close() error {
	var err error
	if s.sub != nil {
		if drainErr := s.sub.Drain(); drainErr != nil {
			s.logger.Warn().Err(drainErr).Msg("failed to drain grading subscription")
			err = drainErr
		}
	}
	s.pool.stop()
	return err
}
