// Package gormstore implements store.Store on top of gorm. It is used with
// the postgres driver in production and the sqlite driver in tests.
package gormstore

import (
	"context"
	"errors"

	"github.com/diewo77/go-tutoring/internal/models"
	"github.com/diewo77/go-tutoring/internal/store"
	"gorm.io/gorm"
)

// Store is the gorm-backed adapter.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// New wraps an open gorm connection. The connection should be opened with
// TranslateError enabled so unique violations surface as gorm.ErrDuplicatedKey.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying connection.
func (s *Store) DB() *gorm.DB { return s.db }

// Models lists the tables this adapter expects, in dependency order.
func Models() []any {
	return []any{&models.User{}, &models.Subject{}, &models.TutorSubject{}, &models.Session{}}
}

// AutoMigrate creates or updates the schema from the gorm models.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(Models()...)
}

// ─────────────────────────────────────────────────────────────────────────────
// Users
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", u.Email).Count(&count).Error; err != nil {
		return store.Backend("create user", err)
	}
	if count > 0 {
		return store.ErrDuplicateEmail
	}
	err := db.Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return store.ErrDuplicateEmail
	}
	return store.Backend("create user", err)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, notFound("user by email", err)
	}
	return &u, nil
}

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound("user by id", err)
	}
	return &u, nil
}

func (s *Store) ListTutors(ctx context.Context) ([]models.User, error) {
	var tutors []models.User
	err := s.db.WithContext(ctx).Where("role = ?", models.RoleTutor).Order("name, id").Find(&tutors).Error
	return tutors, store.Backend("list tutors", err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Catalog
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	var subjects []models.Subject
	err := s.db.WithContext(ctx).Order("name").Find(&subjects).Error
	return subjects, store.Backend("list subjects", err)
}

func (s *Store) SubjectByID(ctx context.Context, id uint) (*models.Subject, error) {
	var subj models.Subject
	if err := s.db.WithContext(ctx).First(&subj, id).Error; err != nil {
		return nil, notFound("subject by id", err)
	}
	return &subj, nil
}

func (s *Store) CreateSubject(ctx context.Context, subj *models.Subject) error {
	return store.Backend("create subject", s.db.WithContext(ctx).Create(subj).Error)
}

func (s *Store) TutorSubjects(ctx context.Context, tutorID uint) ([]models.Subject, error) {
	var subjects []models.Subject
	err := s.db.WithContext(ctx).
		Joins("JOIN tutor_subjects ON tutor_subjects.subject_id = subjects.id").
		Where("tutor_subjects.tutor_id = ?", tutorID).
		Order("subjects.name").
		Find(&subjects).Error
	return subjects, store.Backend("tutor subjects", err)
}

func (s *Store) AddTutorSubject(ctx context.Context, tutorID, subjectID uint) error {
	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.TutorSubject{}).
		Where("tutor_id = ? AND subject_id = ?", tutorID, subjectID).
		Count(&count).Error; err != nil {
		return store.Backend("add tutor subject", err)
	}
	if count > 0 {
		return store.ErrAlreadyAdded
	}
	err := db.Create(&models.TutorSubject{TutorID: tutorID, SubjectID: subjectID}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return store.ErrAlreadyAdded
	}
	return store.Backend("add tutor subject", err)
}

func (s *Store) RemoveTutorSubject(ctx context.Context, tutorID, subjectID uint) error {
	err := s.db.WithContext(ctx).
		Where("tutor_id = ? AND subject_id = ?", tutorID, subjectID).
		Delete(&models.TutorSubject{}).Error
	return store.Backend("remove tutor subject", err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Bookings
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) CreateSession(ctx context.Context, sess *models.Session) error {
	if sess.Status == "" {
		sess.Status = models.StatusPending
	}
	return store.Backend("create session", s.db.WithContext(ctx).Create(sess).Error)
}

func (s *Store) SessionsForStudent(ctx context.Context, studentID uint) ([]models.SessionDetail, error) {
	var out []models.SessionDetail
	err := s.db.WithContext(ctx).
		Table("sessions").
		Select("sessions.*, tutors.name AS tutor_name").
		Joins("JOIN users AS tutors ON tutors.id = sessions.tutor_id").
		Where("sessions.student_id = ?", studentID).
		Order("sessions.session_date, sessions.id").
		Scan(&out).Error
	return out, store.Backend("sessions for student", err)
}

func (s *Store) SessionsForTutor(ctx context.Context, tutorID uint) ([]models.SessionDetail, error) {
	var out []models.SessionDetail
	err := s.db.WithContext(ctx).
		Table("sessions").
		Select("sessions.*, students.name AS student_name, students.email AS student_email").
		Joins("JOIN users AS students ON students.id = sessions.student_id").
		Where("sessions.tutor_id = ?", tutorID).
		Order("sessions.session_date, sessions.id").
		Scan(&out).Error
	return out, store.Backend("sessions for tutor", err)
}

// UpdateSessionStatus only touches a session owned by tutorID.
func (s *Store) UpdateSessionStatus(ctx context.Context, sessionID, tutorID uint, status models.SessionStatus) error {
	db := s.db.WithContext(ctx)
	var sess models.Session
	if err := db.Where("id = ? AND tutor_id = ?", sessionID, tutorID).First(&sess).Error; err != nil {
		return notFound("update session status", err)
	}
	err := db.Model(&sess).Update("status", status).Error
	return store.Backend("update session status", err)
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return store.Backend("ping", err)
	}
	return store.Backend("ping", sqlDB.PingContext(ctx))
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return store.Backend(op, err)
}
