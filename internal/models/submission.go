package models

import "time"

// Submission is one graded attempt at a question. Its status moves from
// pending to exactly one terminal variant and is never changed again.
type Submission struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	QuestionID    uint         `gorm:"not null;index:idx_submissions_user_question,priority:2" json:"question_id"`
	UserID        uint         `gorm:"not null;index:idx_submissions_user_question,priority:1" json:"user_id"`
	Code          string       `gorm:"type:text;not null" json:"code"`
	Language      string       `gorm:"size:32;not null" json:"language"`
	StatusType    StatusType   `gorm:"size:16;not null;index" json:"-"`
	Status        StatusColumn `gorm:"type:text;not null" json:"status"`
	ExecutionTime *int64       `json:"execution_time,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	Question      *Question    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// NewPendingSubmission builds a submission in its initial state.
func NewPendingSubmission(questionID, userID uint, code, language string) Submission {
	return Submission{
		QuestionID: questionID,
		UserID:     userID,
		Code:       code,
		Language:   language,
		StatusType: StatusTypePending,
		Status:     NewStatusColumn(Pending{}),
	}
}

// CurrentStatus returns the decoded status, treating an unset value as pending.
func (s Submission) CurrentStatus() Status {
	if s.Status.Status == nil {
		return Pending{}
	}
	return s.Status.Status
}

// IsPending reports whether grading has not finished yet.
func (s Submission) IsPending() bool {
	return !s.CurrentStatus().Terminal()
}
