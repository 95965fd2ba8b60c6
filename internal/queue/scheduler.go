// Package queue hands pending submissions to grading workers. Jobs carry
// only the submission id and the submitting request's correlation id;
// workers reload everything else from storage.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/codepractice-api/internal/observability"
)

// ErrSchedulerClosed is returned when a job is enqueued after Close.
var ErrSchedulerClosed = errors.New("scheduler closed")

// Handler grades one submission. It owns all error handling for the job.
type Handler func(ctx context.Context, submissionID uint)

// Scheduler accepts grading jobs and dispatches them to a bounded pool of workers.
type Scheduler interface {
	Enqueue(ctx context.Context, submissionID uint) error
	Start(ctx context.Context, handler Handler) error
	Close() error
}

type job struct {
	SubmissionID  uint      `json:"submission_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}

func newJob(ctx context.Context, submissionID uint) job {
	return job{
		SubmissionID:  submissionID,
		CorrelationID: observability.CorrelationIDFromContext(ctx),
		EnqueuedAt:    time.Now().UTC(),
	}
}

// context rebuilds the worker side context for the job.
func (j job) context(parent context.Context) context.Context {
	return observability.WithCorrelationID(parent, j.CorrelationID)
}

func encodeJob(j job) ([]byte, error) {
	return json.Marshal(j)
}

func decodeJob(payload []byte) (job, error) {
	var j job
	if err := json.Unmarshal(payload, &j); err != nil {
		return job{}, fmt.Errorf("decode grading job: %w", err)
	}
	if j.SubmissionID == 0 {
		return job{}, errors.New("grading job is missing submission id")
	}
	return j, nil
}
