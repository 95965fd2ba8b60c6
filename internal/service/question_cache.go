package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codepractice-api/internal/dto"
)

const publishedQuestionsKey = "questions:published"

// QuestionCache keeps the published question listing in Redis. A nil client
// turns every call into a no-op so the API runs without Redis.
type QuestionCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewQuestionCache constructs the listing cache.
func NewQuestionCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *QuestionCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &QuestionCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "question_cache").Logger(),
	}
}

func (c *QuestionCache) published(ctx context.Context) ([]dto.QuestionResponse, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	cached, err := c.client.Get(ctx, publishedQuestionsKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Msg("failed to read question cache")
		}
		return nil, false
	}

	var questions []dto.QuestionResponse
	if err := json.Unmarshal([]byte(cached), &questions); err != nil {
		c.logger.Warn().Err(err).Msg("discarding corrupt question cache entry")
		return nil, false
	}
	return questions, true
}

func (c *QuestionCache) storePublished(ctx context.Context, questions []dto.QuestionResponse) {
	if c == nil || c.client == nil {
		return
	}

	payload, err := json.Marshal(questions)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, publishedQuestionsKey, payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to store question cache")
	}
}

// Invalidate drops the cached listing after any change to question fields it shows.
func (c *QuestionCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, publishedQuestionsKey).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to invalidate question cache")
	}
}
