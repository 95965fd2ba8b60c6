package dto

import (
	"time"

	"github.com/noah-isme/codepractice-api/internal/models"
)

// SubmissionCreateRequest is the payload for submitting a solution.
type SubmissionCreateRequest struct {
	QuestionID uint   `json:"question_id" validate:"required,gt=0"`
	Code       string `json:"code" validate:"required,max=65536"`
	Language   string `json:"language" validate:"required,max=32"`
}

// SubmissionCreatedResponse returns the identity of a queued submission.
type SubmissionCreatedResponse struct {
	ID     uint                `json:"id"`
	Status models.StatusColumn `json:"status"`
}

// SubmissionQuestionSummary is the question context shown in submission history.
type SubmissionQuestionSummary struct {
	Title      string `json:"title"`
	Difficulty string `json:"difficulty"`
}

// SubmissionResponse describes a submission and its current status.
type SubmissionResponse struct {
	ID            uint                       `json:"id"`
	QuestionID    uint                       `json:"question_id"`
	UserID        uint                       `json:"user_id"`
	Code          string                     `json:"code"`
	Language      string                     `json:"language"`
	Status        models.StatusColumn        `json:"status"`
	ExecutionTime *int64                     `json:"execution_time,omitempty"`
	CreatedAt     time.Time                  `json:"created_at"`
	Question      *SubmissionQuestionSummary `json:"question,omitempty"`
}

// NewSubmissionResponse builds a response DTO from a model.
func NewSubmissionResponse(submission models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:            submission.ID,
		QuestionID:    submission.QuestionID,
		UserID:        submission.UserID,
		Code:          submission.Code,
		Language:      submission.Language,
		Status:        models.NewStatusColumn(submission.CurrentStatus()),
		ExecutionTime: submission.ExecutionTime,
		CreatedAt:     submission.CreatedAt,
	}

	if submission.Question != nil {
		response.Question = &SubmissionQuestionSummary{
			Title:      submission.Question.Title,
			Difficulty: submission.Question.Difficulty,
		}
	}

	return response
}

// NewSubmissionResponseSlice converts a slice of submissions.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}
	return responses
}
