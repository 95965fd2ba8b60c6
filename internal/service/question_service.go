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

// ErrQuestionNotFound indicates the question cannot be located or is not visible to the caller.
var ErrQuestionNotFound = errors.New("question not found")

// ErrQuestionForbidden indicates the caller is not the question's author.
var ErrQuestionForbidden = errors.New("forbidden")

// ErrUnauthenticated indicates the operation needs a signed in caller.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrEmptyContent indicates user supplied text was empty after sanitizing.
var ErrEmptyContent = errors.New("content is empty")

// QuestionService exposes question authoring, browsing and likes.
type QuestionService interface {
	List(ctx context.Context) ([]dto.QuestionResponse, error)
	ListMine(ctx context.Context, userID uint) ([]dto.QuestionResponse, error)
	Get(ctx context.Context, id uint, viewerID uint) (dto.QuestionDetailResponse, error)
	Create(ctx context.Context, userID uint, payload dto.QuestionRequest) (dto.QuestionCreatedResponse, error)
	Update(ctx context.Context, id uint, userID uint, payload dto.QuestionRequest) (dto.QuestionResponse, error)
	ToggleLike(ctx context.Context, id uint, userID uint) (dto.LikeResponse, error)
}

type questionService struct {
	questions repository.QuestionRepository
	comments  repository.CommentRepository
	cache     *QuestionCache
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewQuestionService constructs a question service.
func NewQuestionService(questions repository.QuestionRepository, comments repository.CommentRepository, cache *QuestionCache, validate *validator.Validate, logger zerolog.Logger) QuestionService {
	return &questionService{
		questions: questions,
		comments:  comments,
		cache:     cache,
		validator: validate,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "question_service").Logger(),
	}
}

func (s *questionService) List(ctx context.Context) ([]dto.QuestionResponse, error) {
	if cached, ok := s.cache.published(ctx); ok {
		return cached, nil
	}

	questions, err := s.questions.ListPublished(ctx)
	if err != nil {
		return nil, err
	}

	responses := dto.NewQuestionResponseSlice(questions)
	s.cache.storePublished(ctx, responses)
	return responses, nil
}

func (s *questionService) ListMine(ctx context.Context, userID uint) ([]dto.QuestionResponse, error) {
	// Anonymous callers own nothing.
	if userID == 0 {
		return []dto.QuestionResponse{}, nil
	}

	questions, err := s.questions.ListByAuthor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewQuestionResponseSlice(questions), nil
}

func (s *questionService) Get(ctx context.Context, id uint, viewerID uint) (dto.QuestionDetailResponse, error) {
	question, err := s.load(ctx, id)
	if err != nil {
		return dto.QuestionDetailResponse{}, err
	}
	if !question.IsPublished && question.AuthorID != viewerID {
		return dto.QuestionDetailResponse{}, ErrQuestionNotFound
	}

	comments, err := s.comments.ListByQuestion(ctx, id)
	if err != nil {
		return dto.QuestionDetailResponse{}, err
	}

	liked := false
	if viewerID != 0 {
		if liked, err = s.questions.HasLiked(ctx, id, viewerID); err != nil {
			return dto.QuestionDetailResponse{}, err
		}
	}

	return dto.QuestionDetailResponse{
		QuestionResponse: dto.NewQuestionResponse(question),
		Comments:         dto.NewCommentResponseSlice(comments),
		IsLiked:          liked,
	}, nil
}

func (s *questionService) Create(ctx context.Context, userID uint, payload dto.QuestionRequest) (dto.QuestionCreatedResponse, error) {
	if userID == 0 {
		return dto.QuestionCreatedResponse{}, ErrUnauthenticated
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionCreatedResponse{}, err
	}

	question := models.Question{AuthorID: userID}
	if err := s.apply(&question, payload); err != nil {
		return dto.QuestionCreatedResponse{}, err
	}

	if err := s.questions.Create(ctx, &question); err != nil {
		return dto.QuestionCreatedResponse{}, err
	}

	if question.IsPublished {
		s.cache.Invalidate(ctx)
	}

	s.logger.Info().Uint("question_id", question.ID).Uint("author_id", userID).Msg("question created")
	return dto.QuestionCreatedResponse{ID: question.ID}, nil
}

func (s *questionService) Update(ctx context.Context, id uint, userID uint, payload dto.QuestionRequest) (dto.QuestionResponse, error) {
	if userID == 0 {
		return dto.QuestionResponse{}, ErrUnauthenticated
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	question, err := s.load(ctx, id)
	if err != nil {
		return dto.QuestionResponse{}, err
	}
	if question.AuthorID != userID {
		return dto.QuestionResponse{}, ErrQuestionForbidden
	}

	if err := s.apply(&question, payload); err != nil {
		return dto.QuestionResponse{}, err
	}
	if err := s.questions.UpdateContent(ctx, &question); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuestionResponse{}, ErrQuestionNotFound
		}
		return dto.QuestionResponse{}, err
	}

	s.cache.Invalidate(ctx)

	updated, err := s.load(ctx, id)
	if err != nil {
		return dto.QuestionResponse{}, err
	}
	return dto.NewQuestionResponse(updated), nil
}

func (s *questionService) ToggleLike(ctx context.Context, id uint, userID uint) (dto.LikeResponse, error) {
	if userID == 0 {
		return dto.LikeResponse{}, ErrUnauthenticated
	}
	if _, err := s.load(ctx, id); err != nil {
		return dto.LikeResponse{}, err
	}

	liked, err := s.questions.ToggleLike(ctx, id, userID)
	if err != nil {
		return dto.LikeResponse{}, err
	}

	s.cache.Invalidate(ctx)
	return dto.LikeResponse{Liked: liked}, nil
}

func (s *questionService) load(ctx context.Context, id uint) (models.Question, error) {
	question, err := s.questions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Question{}, ErrQuestionNotFound
		}
		return models.Question{}, err
	}
	return question, nil
}

func (s *questionService) apply(question *models.Question, payload dto.QuestionRequest) error {
	title := strings.TrimSpace(s.sanitizer.Sanitize(payload.Title))
	description := strings.TrimSpace(s.sanitizer.Sanitize(payload.Description))
	if title == "" || description == "" {
		return ErrEmptyContent
	}

	question.Title = title
	question.Description = description
	question.TestCases = dto.ToTestCases(payload.TestCases)
	question.IsPublished = payload.IsPublished
	question.Difficulty = strings.TrimSpace(payload.Difficulty)
	question.Category = strings.TrimSpace(payload.Category)
	return nil
}
