package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codepractice-api/internal/models"
)

// StatusEvent announces that a submission reached a terminal status.
type StatusEvent struct {
	SubmissionID uint                `json:"submission_id"`
	QuestionID   uint                `json:"question_id"`
	UserID       uint                `json:"user_id"`
	Status       models.StatusColumn `json:"status"`
	FinishedAt   time.Time           `json:"finished_at"`
}

// EventPublisher fans out terminal status changes.
type EventPublisher interface {
	Publish(ctx context.Context, event StatusEvent) error
}

// NopPublisher discards events.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, StatusEvent) error { return nil }

// NATSEventPublisher publishes status events as JSON on a NATS subject.
type NATSEventPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSEventPublisher constructs an event publisher. Events go to
// "<subject>.events".
func NewNATSEventPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) *NATSEventPublisher {
	if subject == "" {
		subject = defaultNATSSubject
	}
	return &NATSEventPublisher{
		conn:    conn,
		subject: subject + ".events",
		logger:  logger.With().Str("component", "status_events").Logger(),
	}
}

// Publish implements EventPublisher.
func (p *NATSEventPublisher) Publish(_ context.Context, event StatusEvent) error {
	if p.conn == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject, payload)
}
