package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/codepractice-api/internal/dto"
	"github.com/noah-isme/codepractice-api/internal/models"
	"github.com/noah-isme/codepractice-api/internal/queue"
	"github.com/noah-isme/codepractice-api/internal/repository"
	"github.com/noah-isme/codepractice-api/pkg/sandbox"
)

// ErrSubmissionNotFound indicates the submission cannot be located.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrSchedulingFailed indicates the submission was stored but could not be queued for grading.
var ErrSchedulingFailed = errors.New("failed to schedule grading")

// SubmissionService accepts solutions and exposes their grading status.
type SubmissionService interface {
	Submit(ctx context.Context, userID uint, payload dto.SubmissionCreateRequest) (dto.SubmissionCreatedResponse, error)
	Get(ctx context.Context, id uint) (dto.SubmissionResponse, error)
	ListByUser(ctx context.Context, userID uint) ([]dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	questions   repository.QuestionRepository
	scheduler   queue.Scheduler
	cache       *QuestionCache
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewSubmissionService constructs a submission service.
func NewSubmissionService(submissions repository.SubmissionRepository, questions repository.QuestionRepository, scheduler queue.Scheduler, cache *QuestionCache, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: submissions,
		questions:   questions,
		scheduler:   scheduler,
		cache:       cache,
		validator:   validate,
		logger:      logger.With().Str("component", "submission_service").Logger(),
	}
}

// Submit stores a pending submission, bumps the question's submission
// counter and queues grading. It returns before grading starts.
func (s *submissionService) Submit(ctx context.Context, userID uint, payload dto.SubmissionCreateRequest) (dto.SubmissionCreatedResponse, error) {
	if userID == 0 {
		return dto.SubmissionCreatedResponse{}, ErrUnauthenticated
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionCreatedResponse{}, err
	}

	if _, err := s.questions.GetByID(ctx, payload.QuestionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionCreatedResponse{}, ErrQuestionNotFound
		}
		return dto.SubmissionCreatedResponse{}, err
	}

	submission := models.NewPendingSubmission(payload.QuestionID, userID, payload.Code, strings.TrimSpace(payload.Language))
	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionCreatedResponse{}, err
	}

	if err := s.questions.IncrementSubmissions(ctx, payload.QuestionID); err != nil {
		s.logger.Error().Err(err).Uint("question_id", payload.QuestionID).Msg("failed to increment submission counter")
	} else {
		s.cache.Invalidate(ctx)
	}

	if err := s.scheduler.Enqueue(ctx, submission.ID); err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to enqueue grading job")
		failure := models.Failure{Message: "Failed to schedule grading", Code: string(sandbox.CodeUnknown)}
		if finalizeErr := s.submissions.Finalize(context.WithoutCancel(ctx), submission.ID, failure); finalizeErr != nil {
			s.logger.Error().Err(finalizeErr).Uint("submission_id", submission.ID).Msg("failed to record scheduling failure")
		}
		return dto.SubmissionCreatedResponse{}, fmt.Errorf("%w: %v", ErrSchedulingFailed, err)
	}

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("question_id", submission.QuestionID).
		Uint("user_id", userID).
		Msg("submission queued")

	return dto.SubmissionCreatedResponse{
		ID:     submission.ID,
		Status: models.NewStatusColumn(submission.CurrentStatus()),
	}, nil
}

func (s *submissionService) Get(ctx context.Context, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}
	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) ListByUser(ctx context.Context, userID uint) ([]dto.SubmissionResponse, error) {
	if userID == 0 {
		return []dto.SubmissionResponse{}, nil
	}

	submissions, err := s.submissions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewSubmissionResponseSlice(submissions), nil
}
