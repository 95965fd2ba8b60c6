package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/codepractice-api/internal/dto"
	"github.com/noah-isme/codepractice-api/internal/models"
	"github.com/noah-isme/codepractice-api/internal/repository"
)

// CommentService exposes question comment threads.
type CommentService interface {
	List(ctx context.Context, questionID uint) ([]dto.CommentResponse, error)
	Create(ctx context.Context, questionID uint, userID uint, payload dto.CommentCreateRequest) (dto.CommentResponse, error)
}

type commentService struct {
	comments  repository.CommentRepository
	questions repository.QuestionRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewCommentService constructs a comment service.
func NewCommentService(comments repository.CommentRepository, questions repository.QuestionRepository, validate *validator.Validate, logger zerolog.Logger) CommentService {
	return &commentService{
		comments:  comments,
		questions: questions,
		validator: validate,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "comment_service").Logger(),
	}
}

func (s *commentService) List(ctx context.Context, questionID uint) ([]dto.CommentResponse, error) {
	if err := s.ensureQuestion(ctx, questionID); err != nil {
		return nil, err
	}

	comments, err := s.comments.ListByQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	return dto.NewCommentResponseSlice(comments), nil
}

func (s *commentService) Create(ctx context.Context, questionID uint, userID uint, payload dto.CommentCreateRequest) (dto.CommentResponse, error) {
	if userID == 0 {
		return dto.CommentResponse{}, ErrUnauthenticated
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.CommentResponse{}, err
	}

	content := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if content == "" {
		return dto.CommentResponse{}, ErrEmptyContent
	}

	if err := s.ensureQuestion(ctx, questionID); err != nil {
		return dto.CommentResponse{}, err
	}

	comment := models.Comment{
		QuestionID: questionID,
		UserID:     userID,
		Content:    content,
	}
	if err := s.comments.Create(ctx, &comment); err != nil {
		return dto.CommentResponse{}, err
	}

	return dto.NewCommentResponse(comment), nil
}

func (s *commentService) ensureQuestion(ctx context.Context, questionID uint) error {
	if _, err := s.questions.GetByID(ctx, questionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}
		return err
	}
	return nil
}
