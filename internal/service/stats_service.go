package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/codepractice-api/internal/repository"
)

// StatsService maintains per-question aggregates fed by grading results.
type StatsService interface {
	Recompute(ctx context.Context, questionID uint, passed, total int) error
}

type statsService struct {
	questions repository.QuestionRepository
	cache     *QuestionCache
	logger    zerolog.Logger
}

// NewStatsService constructs a statistics updater.
func NewStatsService(questions repository.QuestionRepository, cache *QuestionCache, logger zerolog.Logger) StatsService {
	return &statsService{
		questions: questions,
		cache:     cache,
		logger:    logger.With().Str("component", "stats_service").Logger(),
	}
}

// Recompute overwrites the question's success rate with passed/total from a
// single graded submission. It is not a running average. A run with no test
// cases leaves the rate unchanged.
func (s *statsService) Recompute(ctx context.Context, questionID uint, passed, total int) error {
	if total <= 0 {
		s.logger.Debug().Uint("question_id", questionID).Msg("skipping success rate for question without test cases")
		return nil
	}

	rate := float64(passed) / float64(total)
	if err := s.questions.SetSuccessRate(ctx, questionID, rate); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}
		return err
	}

	s.cache.Invalidate(ctx)
	return nil
}
