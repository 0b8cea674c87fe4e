// Package sqlstore implements store.Store with hand-written SQL over
// database/sql. Queries use $n placeholders and RETURNING, which both
// postgres (lib/pq) and sqlite accept.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/diewo77/go-tutoring/internal/models"
	"github.com/diewo77/go-tutoring/internal/store"
	"github.com/lib/pq"
)

// Store is the raw SQL adapter.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const userColumns = "id, created_at, name, email, password, role"

// ─────────────────────────────────────────────────────────────────────────────
// Users
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (created_at, name, email, password, role) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		u.CreatedAt, u.Name, u.Email, u.Password, string(u.Role),
	).Scan(&u.ID)
	if isUniqueViolation(err) {
		return store.ErrDuplicateEmail
	}
	return store.Backend("create user", err)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound("user by email", err)
	}
	return u, nil
}

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound("user by id", err)
	}
	return u, nil
}

func (s *Store) ListTutors(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY name, id`, string(models.RoleTutor))
	if err != nil {
		return nil, store.Backend("list tutors", err)
	}
	defer rows.Close()

	var tutors []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, store.Backend("list tutors", err)
		}
		tutors = append(tutors, *u)
	}
	return tutors, store.Backend("list tutors", rows.Err())
}

// ─────────────────────────────────────────────────────────────────────────────
// Catalog
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	return s.querySubjects(ctx, "list subjects",
		`SELECT id, name, description FROM subjects ORDER BY name`)
}

func (s *Store) SubjectByID(ctx context.Context, id uint) (*models.Subject, error) {
	var subj models.Subject
	var desc sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT id, name, description FROM subjects WHERE id = $1`, id).
		Scan(&subj.ID, &subj.Name, &desc)
	if err != nil {
		return nil, notFound("subject by id", err)
	}
	subj.Description = desc.String
	return &subj, nil
}

func (s *Store) CreateSubject(ctx context.Context, subj *models.Subject) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO subjects (name, description) VALUES ($1, $2) RETURNING id`,
		subj.Name, subj.Description,
	).Scan(&subj.ID)
	return store.Backend("create subject", err)
}

func (s *Store) TutorSubjects(ctx context.Context, tutorID uint) ([]models.Subject, error) {
	return s.querySubjects(ctx, "tutor subjects",
		`SELECT s.id, s.name, s.description
		   FROM subjects s
		   JOIN tutor_subjects ts ON ts.subject_id = s.id
		  WHERE ts.tutor_id = $1
		  ORDER BY s.name`, tutorID)
}

func (s *Store) AddTutorSubject(ctx context.Context, tutorID, subjectID uint) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tutor_subjects WHERE tutor_id = $1 AND subject_id = $2`,
		tutorID, subjectID,
	).Scan(&exists)
	if err != nil {
		return store.Backend("add tutor subject", err)
	}
	if exists > 0 {
		return store.ErrAlreadyAdded
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tutor_subjects (tutor_id, subject_id) VALUES ($1, $2)`, tutorID, subjectID)
	if isUniqueViolation(err) {
		return store.ErrAlreadyAdded
	}
	return store.Backend("add tutor subject", err)
}

func (s *Store) RemoveTutorSubject(ctx context.Context, tutorID, subjectID uint) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM tutor_subjects WHERE tutor_id = $1 AND subject_id = $2`, tutorID, subjectID)
	return store.Backend("remove tutor subject", err)
}

func (s *Store) querySubjects(ctx context.Context, op, query string, args ...any) ([]models.Subject, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.Backend(op, err)
	}
	defer rows.Close()

	var subjects []models.Subject
	for rows.Next() {
		var subj models.Subject
		var desc sql.NullString
		if err := rows.Scan(&subj.ID, &subj.Name, &desc); err != nil {
			return nil, store.Backend(op, err)
		}
		subj.Description = desc.String
		subjects = append(subjects, subj)
	}
	return subjects, store.Backend(op, rows.Err())
}

// ─────────────────────────────────────────────────────────────────────────────
// Bookings
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) CreateSession(ctx context.Context, sess *models.Session) error {
	now := time.Now().UTC()
	if sess.Status == "" {
		sess.Status = models.StatusPending
	}
	sess.CreatedAt, sess.UpdatedAt = now, now
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO sessions (created_at, updated_at, student_id, tutor_id, session_date, status)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		sess.CreatedAt, sess.UpdatedAt, sess.StudentID, sess.TutorID, sess.SessionDate, string(sess.Status),
	).Scan(&sess.ID)
	return store.Backend("create session", err)
}

func (s *Store) SessionsForStudent(ctx context.Context, studentID uint) ([]models.SessionDetail, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.created_at, s.updated_at, s.student_id, s.tutor_id, s.session_date, s.status, u.name
		   FROM sessions s
		   JOIN users u ON u.id = s.tutor_id
		  WHERE s.student_id = $1
		  ORDER BY s.session_date, s.id`, studentID)
	if err != nil {
		return nil, store.Backend("sessions for student", err)
	}
	defer rows.Close()

	var out []models.SessionDetail
	for rows.Next() {
		var d models.SessionDetail
		if err := rows.Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt, &d.StudentID, &d.TutorID,
			&d.SessionDate, &d.Status, &d.TutorName); err != nil {
			return nil, store.Backend("sessions for student", err)
		}
		out = append(out, d)
	}
	return out, store.Backend("sessions for student", rows.Err())
}

func (s *Store) SessionsForTutor(ctx context.Context, tutorID uint) ([]models.SessionDetail, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.created_at, s.updated_at, s.student_id, s.tutor_id, s.session_date, s.status, u.name, u.email
		   FROM sessions s
		   JOIN users u ON u.id = s.student_id
		  WHERE s.tutor_id = $1
		  ORDER BY s.session_date, s.id`, tutorID)
	if err != nil {
		return nil, store.Backend("sessions for tutor", err)
	}
	defer rows.Close()

	var out []models.SessionDetail
	for rows.Next() {
		var d models.SessionDetail
		if err := rows.Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt, &d.StudentID, &d.TutorID,
			&d.SessionDate, &d.Status, &d.StudentName, &d.StudentEmail); err != nil {
			return nil, store.Backend("sessions for tutor", err)
		}
		out = append(out, d)
	}
	return out, store.Backend("sessions for tutor", rows.Err())
}

func (s *Store) UpdateSessionStatus(ctx context.Context, sessionID, tutorID uint, status models.SessionStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = $1, updated_at = $2 WHERE id = $3 AND tutor_id = $4`,
		string(status), time.Now().UTC(), sessionID, tutorID)
	if err != nil {
		return store.Backend("update session status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Backend("update session status", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return store.Backend("ping", s.db.PingContext(ctx))
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.CreatedAt, &u.Name, &u.Email, &u.Password, &u.Role); err != nil {
		return nil, err
	}
	return &u, nil
}

func notFound(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return store.Backend(op, err)
}

// isUniqueViolation recognizes postgres SQLSTATE 23505 and the sqlite
// constraint message used in tests.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
