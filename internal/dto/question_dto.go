package dto

import (
	"time"

	"github.com/noah-isme/codepractice-api/internal/models"
)

// TestCasePayload is a test case as sent by question authors.
type TestCasePayload struct {
	Input          string `json:"input" validate:"required"`
	ExpectedOutput string `json:"expected_output" validate:"required"`
}

// QuestionRequest is the payload for creating or editing a question.
type QuestionRequest struct {
	Title       string            `json:"title" validate:"required,max=255"`
	Description string            `json:"description" validate:"required"`
	TestCases   []TestCasePayload `json:"test_cases" validate:"dive"`
	IsPublished bool              `json:"is_published"`
	Difficulty  string            `json:"difficulty" validate:"omitempty,max=32"`
	Category    string            `json:"category" validate:"omitempty,max=64"`
}

// QuestionResponse describes a question to API consumers.
type QuestionResponse struct {
	ID          uint              `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	TestCases   []TestCasePayload `json:"test_cases"`
	AuthorID    uint              `json:"author_id"`
	IsPublished bool              `json:"is_published"`
	Difficulty  string            `json:"difficulty"`
	Category    string            `json:"category"`
	Likes       int64             `json:"likes"`
	Submissions int64             `json:"submissions"`
	SuccessRate *float64          `json:"success_rate,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// QuestionDetailResponse adds the comment thread and the caller's like state.
type QuestionDetailResponse struct {
	QuestionResponse
	Comments []CommentResponse `json:"comments"`
	IsLiked  bool              `json:"is_liked"`
}

// QuestionCreatedResponse returns the identity of a new question.
type QuestionCreatedResponse struct {
	ID uint `json:"id"`
}

// LikeResponse reports the caller's like state after a toggle.
type LikeResponse struct {
	Liked bool `json:"liked"`
}

// ToTestCases converts payloads into stored test cases, keeping their order.
func ToTestCases(payloads []TestCasePayload) []models.TestCase {
	cases := make([]models.TestCase, 0, len(payloads))
	for _, payload := range payloads {
		cases = append(cases, models.TestCase{
			Input:          payload.Input,
			ExpectedOutput: payload.ExpectedOutput,
		})
	}
	return cases
}

// NewQuestionResponse builds a response DTO from a model.
func NewQuestionResponse(question models.Question) QuestionResponse {
	cases := make([]TestCasePayload, 0, len(question.TestCases))
	for _, tc := range question.TestCases {
		cases = append(cases, TestCasePayload{Input: tc.Input, ExpectedOutput: tc.ExpectedOutput})
	}

	return QuestionResponse{
		ID:          question.ID,
		Title:       question.Title,
		Description: question.Description,
		TestCases:   cases,
		AuthorID:    question.AuthorID,
		IsPublished: question.IsPublished,
		Difficulty:  question.Difficulty,
		Category:    question.Category,
		Likes:       question.Likes,
		Submissions: question.Submissions,
		SuccessRate: question.SuccessRate,
		CreatedAt:   question.CreatedAt,
		UpdatedAt:   question.UpdatedAt,
	}
}

// NewQuestionResponseSlice converts a slice of questions.
func NewQuestionResponseSlice(questions []models.Question) []QuestionResponse {
	responses := make([]QuestionResponse, 0, len(questions))
	for _, question := range questions {
		responses = append(responses, NewQuestionResponse(question))
	}
	return responses
}
