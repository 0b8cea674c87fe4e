// Package store defines the persistence capabilities the application needs.
// Each backend (gorm, raw SQL, hosted REST) lives in its own sub-package and
// satisfies Store; services and handlers depend only on this interface.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/go-tutoring/internal/models"
)

// Sentinel errors shared by every adapter.
var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already exists")
	ErrAlreadyAdded   = errors.New("subject already added")
)

// BackendError wraps any failure of the underlying backend that is not part
// of the error taxonomy above.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }
func (e *BackendError) Unwrap() error { return e.Err }

// Backend wraps err as a BackendError unless it is nil or already one of the
// sentinel errors.
func Backend(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateEmail) || errors.Is(err, ErrAlreadyAdded) {
		return err
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Op: op, Err: err}
}

// Store is implemented by gormstore, sqlstore and reststore.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *models.User) error
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id uint) (*models.User, error)
	ListTutors(ctx context.Context) ([]models.User, error)

	// Catalog
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	SubjectByID(ctx context.Context, id uint) (*models.Subject, error)
	CreateSubject(ctx context.Context, s *models.Subject) error
	TutorSubjects(ctx context.Context, tutorID uint) ([]models.Subject, error)
	AddTutorSubject(ctx context.Context, tutorID, subjectID uint) error
	RemoveTutorSubject(ctx context.Context, tutorID, subjectID uint) error

	// Bookings
	CreateSession(ctx context.Context, s *models.Session) error
	SessionsForStudent(ctx context.Context, studentID uint) ([]models.SessionDetail, error)
	SessionsForTutor(ctx context.Context, tutorID uint) ([]models.SessionDetail, error)
	UpdateSessionStatus(ctx context.Context, sessionID, tutorID uint, status models.SessionStatus) error

	Ping(ctx context.Context) error
	Close() error
}

// Backend names accepted by configuration.
const (
	BackendGorm = "gorm"
	BackendSQL  = "sql"
	BackendREST = "rest"
)

// NewSession fills the fields every adapter sets the same way on insert.
func NewSession(studentID, tutorID uint, when time.Time) *models.Session {
	return &models.Session{
		StudentID:   studentID,
		TutorID:     tutorID,
		SessionDate: when,
		Status:      models.StatusPending,
	}
}
