package dto

import (
	"time"

	"github.com/noah-isme/codepractice-api/internal/models"
)

// CommentCreateRequest is the payload for posting a comment.
type CommentCreateRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

// CommentResponse describes a comment.
type CommentResponse struct {
	ID         uint      `json:"id"`
	QuestionID uint      `json:"question_id"`
	UserID     uint      `json:"user_id"`
	Content    string    `json:"content"`
	Likes      int64     `json:"likes"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewCommentResponse converts a comment model.
func NewCommentResponse(comment models.Comment) CommentResponse {
	return CommentResponse{
		ID:         comment.ID,
		QuestionID: comment.QuestionID,
		UserID:     comment.UserID,
		Content:    comment.Content,
		Likes:      comment.Likes,
		CreatedAt:  comment.CreatedAt,
	}
}

// NewCommentResponseSlice converts a slice of comments.
func NewCommentResponseSlice(comments []models.Comment) []CommentResponse {
	responses := make([]CommentResponse, 0, len(comments))
	for _, comment := range comments {
		responses = append(responses, NewCommentResponse(comment))
	}
	return responses
}
