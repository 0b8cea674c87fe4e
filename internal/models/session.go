package models

import (
	"errors"
	"time"
)

// SessionStatus is the lifecycle state of a booked session.
type SessionStatus string

const (
	StatusPending   SessionStatus = "pending"
	StatusConfirmed SessionStatus = "confirmed"
	StatusCompleted SessionStatus = "completed"
)

// ErrInvalidStatus is returned for any status a tutor may not set.
var ErrInvalidStatus = errors.New("invalid status")

// ParseStatusUpdate accepts only the statuses a tutor can move a session to.
// Transitions are not ordered: a pending session may be completed directly.
func ParseStatusUpdate(s string) (SessionStatus, error) {
	switch st := SessionStatus(s); st {
	case StatusConfirmed, StatusCompleted:
		return st, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Session is a tutoring appointment requested by a student.
type Session struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	StudentID   uint          `gorm:"not null;index" json:"student_id"`
	TutorID     uint          `gorm:"not null;index" json:"tutor_id"`
	SessionDate time.Time     `gorm:"not null" json:"session_date"`
	Status      SessionStatus `gorm:"size:20;not null;default:pending" json:"status"`
}

func (s Session) IsPending() bool   { return s.Status == StatusPending }
func (s Session) IsConfirmed() bool { return s.Status == StatusConfirmed }
func (s Session) IsCompleted() bool { return s.Status == StatusCompleted }

// SessionDetail is a session enriched with the names of the people involved.
type SessionDetail struct {
	Session
	TutorName    string `json:"tutor_name,omitempty"`
	StudentName  string `json:"student_name,omitempty"`
	StudentEmail string `json:"student_email,omitempty"`
}
