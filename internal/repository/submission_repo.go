package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/codepractice-api/internal/models"
)

// ErrSubmissionFinalized is returned when a submission already left the pending state.
var ErrSubmissionFinalized = errors.New("submission already finalized")

// SubmissionRepository persists submissions and their single status transition.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Submission, error)
	Finalize(ctx context.Context, id uint, status models.Status) error
}

// NewSubmissionRepository constructs a GORM-backed submission repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

type submissionRepository struct {
	db *gorm.DB
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) ListByUser(ctx context.Context, userID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.db.WithContext(ctx).
		Preload("Question").
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

// Finalize moves a pending submission to a terminal status. The update is
// conditional on the stored state, so only the first caller succeeds.
func (r *submissionRepository) Finalize(ctx context.Context, id uint, status models.Status) error {
	if status == nil || !status.Terminal() {
		return fmt.Errorf("finalize submission %d: status must be terminal", id)
	}

	updates := map[string]interface{}{
		"status":      models.NewStatusColumn(status),
		"status_type": string(status.Type()),
	}
	if success, ok := status.(models.Success); ok {
		updates["execution_time"] = success.RuntimeMs
	}

	result := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ? AND status_type = ?", id, string(models.StatusTypePending)).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Submission{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return ErrSubmissionFinalized
}
