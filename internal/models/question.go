package models

import (
	"time"

	"gorm.io/datatypes"
)

// TestCase pairs a JSON encoded argument list with the JSON encoded expected return value.
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
}

// Question is a practice problem authored by a user.
type Question struct {
	ID          uint                          `gorm:"primaryKey" json:"id"`
	Title       string                        `gorm:"size:255;not null" json:"title"`
	Description string                        `gorm:"type:text;not null" json:"description"`
	TestCases   datatypes.JSONSlice[TestCase] `json:"test_cases"`
	AuthorID    uint                          `gorm:"not null;index" json:"author_id"`
	IsPublished bool                          `gorm:"not null;default:false;index" json:"is_published"`
	Difficulty  string                        `gorm:"size:32" json:"difficulty"`
	Category    string                        `gorm:"size:64" json:"category"`
	Likes       int64                         `gorm:"not null;default:0" json:"likes"`
	Submissions int64                         `gorm:"not null;default:0" json:"submissions"`
	SuccessRate *float64                      `json:"success_rate,omitempty"`
	CreatedAt   time.Time                     `json:"created_at"`
	UpdatedAt   time.Time                     `json:"updated_at"`
}

// Cases returns a copy of the test cases so callers can hold them while the
// stored question changes.
func (q Question) Cases() []TestCase {
	cases := make([]TestCase, len(q.TestCases))
	copy(cases, q.TestCases)
	return cases
}
