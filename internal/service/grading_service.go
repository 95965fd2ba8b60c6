package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/codepractice-api/internal/models"
	"github.com/noah-isme/codepractice-api/internal/observability"
	"github.com/noah-isme/codepractice-api/internal/queue"
	"github.com/noah-isme/codepractice-api/internal/repository"
	"github.com/noah-isme/codepractice-api/pkg/sandbox"
)

const (
	defaultSubmissionTimeout = 30 * time.Second
	finalizeTimeout          = 5 * time.Second
)

// GradingConfig bounds a single grading run.
type GradingConfig struct {
	SubmissionTimeout time.Duration
}

// GradingService runs a pending submission against its question's test cases
// and records the single terminal status.
type GradingService interface {
	Grade(ctx context.Context, submissionID uint)
}

type gradingService struct {
	submissions repository.SubmissionRepository
	questions   repository.QuestionRepository
	runner      sandbox.Runner
	stats       StatsService
	events      queue.EventPublisher
	tracer      trace.Tracer
	logger      zerolog.Logger
	config      GradingConfig
}

// NewGradingService constructs the grading executor.
func NewGradingService(submissions repository.SubmissionRepository, questions repository.QuestionRepository, runner sandbox.Runner, stats StatsService, events queue.EventPublisher, logger zerolog.Logger, cfg GradingConfig) GradingService {
	if cfg.SubmissionTimeout <= 0 {
		cfg.SubmissionTimeout = defaultSubmissionTimeout
	}
	if events == nil {
		events = queue.NopPublisher{}
	}

	return &gradingService{
		submissions: submissions,
		questions:   questions,
		runner:      runner,
		stats:       stats,
		events:      events,
		tracer:      otel.Tracer("github.com/noah-isme/codepractice-api/internal/service/grading"),
		logger:      logger.With().Str("component", "grading_service").Logger(),
		config:      cfg,
	}
}

// Grade never returns an error: every failure ends as an error status on
// the submission, except when the submission itself is gone or already final.
func (s *gradingService) Grade(parent context.Context, submissionID uint) {
	ctx, span := s.tracer.Start(parent, "grading.run", trace.WithAttributes(
		attribute.Int64("submission.id", int64(submissionID)),
	))
	defer span.End()

	observability.GradingsInFlight().Inc()
	defer observability.GradingsInFlight().Dec()

	started := time.Now()
	logger := s.logger.With().
		Uint("submission_id", submissionID).
		Str("correlation_id", observability.CorrelationIDFromContext(parent)).
		Logger()

	ctx, cancel := context.WithTimeout(ctx, s.config.SubmissionTimeout)
	defer cancel()

	submission := models.Submission{ID: submissionID}
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error().Interface("panic", recovered).Msg("grading panicked")
			s.finish(ctx, span, logger, submission, models.Failure{Message: "Unknown error", Code: string(sandbox.CodeUnknown)}, started)
		}
	}()

	loaded, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn().Msg("submission disappeared before grading")
			return
		}
		logger.Error().Err(err).Msg("failed to load submission")
		s.finish(ctx, span, logger, submission, models.Failure{Message: "Failed to load submission", Code: string(sandbox.CodeUnknown)}, started)
		return
	}
	submission = loaded

	if !submission.IsPending() {
		logger.Info().Str("status", string(submission.CurrentStatus().Type())).Msg("submission already graded")
		return
	}

	question, err := s.questions.GetByID(ctx, submission.QuestionID)
	if err != nil {
		message := "Failed to load question"
		if errors.Is(err, gorm.ErrRecordNotFound) {
			message = "Question not found"
		}
		logger.Error().Err(err).Uint("question_id", submission.QuestionID).Msg("failed to load question")
		s.finish(ctx, span, logger, submission, models.Failure{Message: message, Code: string(sandbox.CodeUnknown)}, started)
		return
	}

	status := s.evaluate(ctx, logger, submission.Code, question.Cases())
	s.finish(ctx, span, logger, submission, status, started)
}

// evaluate runs the cases in order and stops at the first error. The
// reported runtime covers case execution only.
func (s *gradingService) evaluate(ctx context.Context, logger zerolog.Logger, source string, cases []models.TestCase) models.Status {
	started := time.Now()
	passed := 0
	for i, tc := range cases {
		if ctx.Err() != nil {
			return models.Failure{Message: "Grading deadline exceeded", Code: string(sandbox.CodeTimeout)}
		}

		outcome, err := s.runner.Run(ctx, source, sandbox.Case{Input: tc.Input, Expected: tc.ExpectedOutput})
		if err != nil {
			sbErr := sandbox.AsError(err)
			logger.Debug().Int("case", i).Str("code", string(sbErr.Code)).Msg("test case failed with error")
			return models.Failure{Message: sbErr.Message, Code: string(sbErr.Code)}
		}
		if outcome.Passed {
			passed++
		}
	}

	return models.Success{
		PassedTests: passed,
		TotalTests:  len(cases),
		RuntimeMs:   time.Since(started).Milliseconds(),
	}
}

func (s *gradingService) finish(ctx context.Context, span trace.Span, logger zerolog.Logger, submission models.Submission, status models.Status, started time.Time) {
	// The grading deadline may already have passed; the terminal write must still land.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	code := ""
	if failure, ok := status.(models.Failure); ok {
		code = failure.Code
		span.SetStatus(codes.Error, failure.Message)
	}
	observability.Gradings().WithLabelValues(string(status.Type()), code).Inc()
	observability.GradingDuration().Observe(time.Since(started).Seconds())

	if err := s.submissions.Finalize(writeCtx, submission.ID, status); err != nil {
		if errors.Is(err, repository.ErrSubmissionFinalized) {
			logger.Warn().Msg("submission finalized concurrently, discarding result")
			return
		}
		logger.Error().Err(err).Msg("failed to record grading result")
		return
	}

	if success, ok := status.(models.Success); ok {
		if err := s.stats.Recompute(writeCtx, submission.QuestionID, success.PassedTests, success.TotalTests); err != nil {
			logger.Error().Err(err).Uint("question_id", submission.QuestionID).Msg("failed to update question statistics")
		}
		logger.Info().Int("passed", success.PassedTests).Int("total", success.TotalTests).Int64("runtime_ms", success.RuntimeMs).Msg("submission graded")
	} else {
		logger.Info().Str("code", code).Msg("submission failed grading")
	}

	event := queue.StatusEvent{
		SubmissionID: submission.ID,
		QuestionID:   submission.QuestionID,
		UserID:       submission.UserID,
		Status:       models.NewStatusColumn(status),
		FinishedAt:   time.Now().UTC(),
	}
	if err := s.events.Publish(writeCtx, event); err != nil {
		logger.Warn().Err(err).Msg("failed to publish status event")
	}
}
