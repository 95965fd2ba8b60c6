package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// StatusType names a submission status variant.
type StatusType string

const (
	StatusTypePending StatusType = "pending"
	StatusTypeSuccess StatusType = "success"
	StatusTypeError   StatusType = "error"
)

// Status is the tagged submission state. Pending is the only non-terminal
// variant; Success and Failure are terminal and mutually exclusive.
type Status interface {
	Type() StatusType
	Terminal() bool
	isStatus()
}

// Pending is the initial status of every submission.
type Pending struct{}

// Success records a completed grading run.
type Success struct {
	PassedTests int   `json:"passedTests"`
	TotalTests  int   `json:"totalTests"`
	RuntimeMs   int64 `json:"runtime"`
}

// Failure records a grading run that stopped on an error. Code is empty for
// failures recorded before structured codes existed.
type Failure struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (Pending) Type() StatusType { return StatusTypePending }
func (Success) Type() StatusType { return StatusTypeSuccess }
func (Failure) Type() StatusType { return StatusTypeError }

func (Pending) Terminal() bool { return false }
func (Success) Terminal() bool { return true }
func (Failure) Terminal() bool { return true }

func (Pending) isStatus() {}
func (Success) isStatus() {}
func (Failure) isStatus() {}

// SuccessRate returns passed/total, or false when no tests were graded.
func (s Success) SuccessRate() (float64, bool) {
	if s.TotalTests <= 0 {
		return 0, false
	}
	return float64(s.PassedTests) / float64(s.TotalTests), true
}

type statusEnvelope struct {
	Type        StatusType `json:"type"`
	PassedTests *int       `json:"passedTests,omitempty"`
	TotalTests  *int       `json:"totalTests,omitempty"`
	Runtime     *int64     `json:"runtime,omitempty"`
	Message     *string    `json:"message,omitempty"`
	Code        string     `json:"code,omitempty"`
}

// MarshalStatus encodes a status as {"type": ..., <variant fields>}.
func MarshalStatus(status Status) ([]byte, error) {
	if status == nil {
		status = Pending{}
	}

	envelope := statusEnvelope{Type: status.Type()}
	switch s := status.(type) {
	case Pending:
	case Success:
		envelope.PassedTests = &s.PassedTests
		envelope.TotalTests = &s.TotalTests
		envelope.Runtime = &s.RuntimeMs
	case Failure:
		envelope.Message = &s.Message
		envelope.Code = s.Code
	default:
		return nil, fmt.Errorf("unknown status variant %T", status)
	}

	return json.Marshal(envelope)
}

// UnmarshalStatus decodes the tagged representation produced by MarshalStatus.
func UnmarshalStatus(data []byte) (Status, error) {
	var envelope statusEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}

	switch envelope.Type {
	case StatusTypePending:
		return Pending{}, nil
	case StatusTypeSuccess:
		if envelope.PassedTests == nil || envelope.TotalTests == nil || envelope.Runtime == nil {
			return nil, errors.New("success status is missing fields")
		}
		return Success{
			PassedTests: *envelope.PassedTests,
			TotalTests:  *envelope.TotalTests,
			RuntimeMs:   *envelope.Runtime,
		}, nil
	case StatusTypeError:
		if envelope.Message == nil {
			return nil, errors.New("error status is missing message")
		}
		return Failure{Message: *envelope.Message, Code: envelope.Code}, nil
	default:
		return nil, fmt.Errorf("unknown status type %q", envelope.Type)
	}
}

// StatusColumn stores a Status as a JSON text column.
type StatusColumn struct {
	Status
}

// NewStatusColumn wraps a status for persistence.
func NewStatusColumn(status Status) StatusColumn {
	return StatusColumn{Status: status}
}

// Value implements driver.Valuer.
func (c StatusColumn) Value() (driver.Value, error) {
	data, err := MarshalStatus(c.Status)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (c *StatusColumn) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		c.Status = Pending{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into status", value)
	}

	status, err := UnmarshalStatus(data)
	if err != nil {
		return err
	}
	c.Status = status
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c StatusColumn) MarshalJSON() ([]byte, error) {
	return MarshalStatus(c.Status)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *StatusColumn) UnmarshalJSON(data []byte) error {
	status, err := UnmarshalStatus(data)
	if err != nil {
		return err
	}
	c.Status = status
	return nil
}
