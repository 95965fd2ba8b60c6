package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/codepractice-api/internal/models"
)

// QuestionRepository persists questions and their aggregate counters. Counter
// updates are single statements so concurrent writers never lose increments.
type QuestionRepository interface {
	ListPublished(ctx context.Context) ([]models.Question, error)
	ListByAuthor(ctx context.Context, authorID uint) ([]models.Question, error)
	GetByID(ctx context.Context, id uint) (models.Question, error)
	Create(ctx context.Context, question *models.Question) error
	UpdateContent(ctx context.Context, question *models.Question) error
	IncrementSubmissions(ctx context.Context, id uint) error
	SetSuccessRate(ctx context.Context, id uint, rate float64) error
	ToggleLike(ctx context.Context, questionID, userID uint) (bool, error)
	HasLiked(ctx context.Context, questionID, userID uint) (bool, error)
}

// NewQuestionRepository constructs a GORM-backed question repository.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

type questionRepository struct {
	db *gorm.DB
}

func (r *questionRepository) ListPublished(ctx context.Context) ([]models.Question, error) {
	var questions []models.Question
	if err := r.db.WithContext(ctx).
		Where("is_published = ?", true).
		Order("created_at DESC").
		Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *questionRepository) ListByAuthor(ctx context.Context, authorID uint) ([]models.Question, error) {
	var questions []models.Question
	if err := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *questionRepository) GetByID(ctx context.Context, id uint) (models.Question, error) {
	var question models.Question
	if err := r.db.WithContext(ctx).First(&question, id).Error; err != nil {
		return models.Question{}, err
	}
	return question, nil
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

// UpdateContent writes the author-editable fields and leaves the counters alone.
func (r *questionRepository) UpdateContent(ctx context.Context, question *models.Question) error {
	result := r.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("id = ?", question.ID).
		Updates(map[string]interface{}{
			"title":        question.Title,
			"description":  question.Description,
			"test_cases":   question.TestCases,
			"is_published": question.IsPublished,
			"difficulty":   question.Difficulty,
			"category":     question.Category,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *questionRepository) IncrementSubmissions(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("id = ?", id).
		UpdateColumn("submissions", gorm.Expr("submissions + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *questionRepository) SetSuccessRate(ctx context.Context, id uint, rate float64) error {
	result := r.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("id = ?", id).
		UpdateColumn("success_rate", rate)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ToggleLike flips the caller's like and adjusts the like counter in the same
// transaction. It reports whether the question is liked afterwards.
func (r *questionRepository) ToggleLike(ctx context.Context, questionID, userID uint) (bool, error) {
	liked := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Like
		err := tx.Where("question_id = ? AND user_id = ?", questionID, userID).First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			return tx.Model(&models.Question{}).
				Where("id = ? AND likes > 0", questionID).
				UpdateColumn("likes", gorm.Expr("likes - ?", 1)).
				Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&models.Like{QuestionID: questionID, UserID: userID}).Error; err != nil {
				return err
			}
			liked = true
			return tx.Model(&models.Question{}).
				Where("id = ?", questionID).
				UpdateColumn("likes", gorm.Expr("likes + ?", 1)).
				Error
		default:
			return err
		}
	})
	if err != nil {
		return false, err
	}
	return liked, nil
}

func (r *questionRepository) HasLiked(ctx context.Context, questionID, userID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("question_id = ? AND user_id = ?", questionID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
