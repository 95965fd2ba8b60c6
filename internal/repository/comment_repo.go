package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/codepractice-api/internal/models"
)

// CommentRepository persists question comments.
type CommentRepository interface {
	ListByQuestion(ctx context.Context, questionID uint) ([]models.Comment, error)
	Create(ctx context.Context, comment *models.Comment) error
}

// NewCommentRepository constructs a GORM-backed comment repository.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

type commentRepository struct {
	db *gorm.DB
}

func (r *commentRepository) ListByQuestion(ctx context.Context, questionID uint) ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}
