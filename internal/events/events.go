// Package events publishes booking domain events. Delivery is best effort:
// callers log a failed publish and carry on with the request.
package events

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Event types.
const (
	TypeSessionRequested = "session.requested"
	TypeSessionConfirmed = "session.confirmed"
	TypeSessionCompleted = "session.completed"
)

// Event is the JSON payload put on the queue.
type Event struct {
	Type        string    `json:"type"`
	SessionID   uint      `json:"session_id"`
	StudentID   uint      `json:"student_id,omitempty"`
	TutorID     uint      `json:"tutor_id"`
	SessionDate time.Time `json:"session_date,omitzero"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher sends events somewhere.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// LogPublisher writes events to the log. It is used when no broker is configured.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.log.Info().
		Str("type", ev.Type).
		Uint("session_id", ev.SessionID).
		Uint("tutor_id", ev.TutorID).
		Str("status", ev.Status).
		Msg("event")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
