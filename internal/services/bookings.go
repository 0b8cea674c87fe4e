package services

import (
	"context"
	"strings"
	"time"

	"github.com/diewo77/go-tutoring/internal/events"
	"github.com/diewo77/go-tutoring/internal/models"
	"github.com/diewo77/go-tutoring/internal/store"
	"github.com/rs/zerolog"
)

// SessionDateLayout is the value format of an HTML datetime-local input.
const SessionDateLayout = "2006-01-02T15:04"

// ParseSessionDate parses a booking form date. Dates carry no zone and are
// stored as UTC wall clock.
func ParseSessionDate(s string) (time.Time, error) {
	t, err := time.Parse(SessionDateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// Bookings creates sessions and moves them through their statuses.
type Bookings struct {
	store  store.Store
	events events.Publisher
	log    zerolog.Logger
}

func NewBookings(s store.Store, pub events.Publisher, log zerolog.Logger) *Bookings {
	return &Bookings{store: s, events: pub, log: log}
}

// Book creates a pending session. Overlapping bookings are accepted.
func (b *Bookings) Book(ctx context.Context, studentID, tutorID uint, when time.Time) (*models.Session, error) {
	tutor, err := b.store.UserByID(ctx, tutorID)
	if err != nil {
		return nil, err
	}
	if !tutor.IsTutor() {
		return nil, ErrNotFound
	}
	sess := store.NewSession(studentID, tutorID, when)
	if err := b.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	b.publish(ctx, events.Event{
		Type:        events.TypeSessionRequested,
		SessionID:   sess.ID,
		StudentID:   studentID,
		TutorID:     tutorID,
		SessionDate: sess.SessionDate,
		Status:      string(sess.Status),
	})
	return sess, nil
}

func (b *Bookings) ForStudent(ctx context.Context, studentID uint) ([]models.SessionDetail, error) {
	return b.store.SessionsForStudent(ctx, studentID)
}

func (b *Bookings) ForTutor(ctx context.Context, tutorID uint) ([]models.SessionDetail, error) {
	return b.store.SessionsForTutor(ctx, tutorID)
}

// UpdateStatus sets a session owned by tutorID to confirmed or completed.
// Any other status is rejected before the store is touched. The current
// status is not checked.
func (b *Bookings) UpdateStatus(ctx context.Context, tutorID, sessionID uint, raw string) (models.SessionStatus, error) {
	status, err := models.ParseStatusUpdate(raw)
	if err != nil {
		return "", err
	}
	if err := b.store.UpdateSessionStatus(ctx, sessionID, tutorID, status); err != nil {
		return "", err
	}
	b.publish(ctx, events.Event{
		Type:      "session." + string(status),
		SessionID: sessionID,
		TutorID:   tutorID,
		Status:    string(status),
	})
	return status, nil
}

func (b *Bookings) publish(ctx context.Context, ev events.Event) {
	if b.events == nil {
		return
	}
	ev.OccurredAt = time.Now().UTC()
	if err := b.events.Publish(ctx, ev); err != nil {
		b.log.Warn().Err(err).Str("type", ev.Type).Uint("session_id", ev.SessionID).Msg("publish event failed")
	}
}
