package models

import "time"

// Comment is free text left by a user on a question.
type Comment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	QuestionID uint      `gorm:"not null;index" json:"question_id"`
	UserID     uint      `gorm:"not null" json:"user_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Likes      int64     `gorm:"not null;default:0" json:"likes"`
	CreatedAt  time.Time `json:"created_at"`
}

// Like marks a question as liked by a user. Each (question, user) pair is unique.
type Like struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	QuestionID uint      `gorm:"not null;uniqueIndex:idx_likes_question_user" json:"question_id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_likes_question_user" json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}
