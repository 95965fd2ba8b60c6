package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codepractice-api/internal/observability"
)

const (
	defaultRedisKey = "codepractice:grading:queue"
	popTimeout      = time.Second
	retryBackoff    = 2 * time.Second
)

// RedisScheduler keeps the job list in Redis so any API replica can enqueue
// and any worker process can consume.
type RedisScheduler struct {
	client *redis.Client
	key    string
	pool   *pool
	logger zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRedisScheduler constructs a scheduler backed by a Redis list.
func NewRedisScheduler(client *redis.Client, key string, workers int, logger zerolog.Logger) *RedisScheduler {
	if key == "" {
		key = defaultRedisKey
	}
	logger = logger.With().Str("component", "redis_scheduler").Str("key", key).Logger()
	return &RedisScheduler{
		client: client,
		key:    key,
		pool:   newPool("redis", workers, workers, logger),
		logger: logger,
	}
}

// Enqueue implements Scheduler.
func (s *RedisScheduler) Enqueue(ctx context.Context, submissionID uint) error {
	payload, err := encodeJob(newJob(ctx, submissionID))
	if err != nil {
		return err
	}
	if err := s.client.LPush(ctx, s.key, payload).Err(); err != nil {
		return err
	}
	observability.GradingJobsEnqueued().WithLabelValues("redis").Inc()
	return nil
}

// Start implements Scheduler.
func (s *RedisScheduler) Start(parent context.Context, handler Handler) error {
	// Workers keep the parent context so Close lets in-flight gradings finish.
	s.pool.start(parent, handler)

	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.consume(ctx)
	}()

	s.logger.Info().Msg("redis grading consumer started")
	return nil
}

func (s *RedisScheduler) consume(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		result, err := s.client.BRPop(ctx, popTimeout, s.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			s.logger.Error().Err(err).Msg("failed to pop grading job")
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryBackoff):
			}
			continue
		}

		// BRPOP replies with [key, value].
		if len(result) < 2 {
			continue
		}

		j, err := decodeJob([]byte(result[1]))
		if err != nil {
			s.logger.Warn().Err(err).Str("payload", result[1]).Msg("dropping malformed grading job")
			continue
		}

		if err := s.pool.submit(ctx, j); err != nil {
			// Give the job back so another consumer can pick it up.
			requeueCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if pushErr := s.client.RPush(requeueCtx, s.key, result[1]).Err(); pushErr != nil {
				s.logger.Error().Err(pushErr).Uint("submission_id", j.SubmissionID).Msg("failed to requeue grading job")
			}
			cancel()
			return
		}
	}
}

// Close implements Scheduler.
func (s *RedisScheduler) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.pool.stop()
	return nil
}
