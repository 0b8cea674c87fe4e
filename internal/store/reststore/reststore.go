// Package reststore implements store.Store against a hosted PostgREST API
// (the REST interface exposed by Supabase). Tables and columns match the
// SQL migrations; the API key is sent both as apikey and as a bearer token.
package reststore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/go-tutoring/internal/models"
	"github.com/diewo77/go-tutoring/internal/store"
	"github.com/golang-jwt/jwt/v5"
)

// Config describes how to reach the hosted backend.
type Config struct {
	URL     string // project URL, e.g. https://xyz.supabase.co
	APIKey  string
	Timeout time.Duration
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// Store is the hosted REST adapter.
type Store struct {
	base *url.URL
	key  string
	http *http.Client
}

var _ store.Store = (*Store)(nil)

// New validates cfg and returns a ready adapter. No request is made.
func New(cfg Config) (*Store, error) {
	if cfg.URL == "" || cfg.APIKey == "" {
		return nil, errors.New("reststore: backend URL and API key are required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/") + "/rest/v1/")
	if err != nil {
		return nil, fmt.Errorf("reststore: parse url: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Store{base: base, key: cfg.APIKey, http: client}, nil
}

// KeyRole returns the "role" claim of the API key (anon, service_role...).
// Keys that are not JWTs yield an empty string. The signature is not checked:
// the backend does that, the claim is only informational.
func (s *Store) KeyRole() string {
	return keyRole(s.key)
}

func keyRole(key string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(key, claims); err != nil {
		return ""
	}
	role, _ := claims["role"].(string)
	return role
}

// APIError is the error body PostgREST returns on failure.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("postgrest %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("postgrest %d: %s", e.Status, e.Message)
}

func isConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.Status == http.StatusConflict || apiErr.Code == "23505")
}

// ─────────────────────────────────────────────────────────────────────────────
// Wire types
// ─────────────────────────────────────────────────────────────────────────────

// timestamp accepts both timestamptz and timestamp-without-zone renderings.
type timestamp time.Time

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func (t *timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*t = timestamp(time.Time{})
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = timestamp(parsed)
			return nil
		}
	}
	return fmt.Errorf("reststore: unrecognized timestamp %q", s)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.999999999Z07:00")
}

type userRow struct {
	ID        uint      `json:"id"`
	CreatedAt timestamp `json:"created_at"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	Role      string    `json:"role"`
}

func (r userRow) model() models.User {
	return models.User{
		ID:        r.ID,
		CreatedAt: time.Time(r.CreatedAt),
		Name:      r.Name,
		Email:     r.Email,
		Password:  r.Password,
		Role:      models.Role(r.Role),
	}
}

type subjectRow struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (r subjectRow) model() models.Subject {
	subj := models.Subject{ID: r.ID, Name: r.Name}
	if r.Description != nil {
		subj.Description = *r.Description
	}
	return subj
}

type personRef struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type sessionRow struct {
	ID          uint       `json:"id"`
	CreatedAt   timestamp  `json:"created_at"`
	UpdatedAt   timestamp  `json:"updated_at"`
	StudentID   uint       `json:"student_id"`
	TutorID     uint       `json:"tutor_id"`
	SessionDate timestamp  `json:"session_date"`
	Status      string     `json:"status"`
	Tutor       *personRef `json:"tutor,omitempty"`
	Student     *personRef `json:"student,omitempty"`
}

func (r sessionRow) detail() models.SessionDetail {
	d := models.SessionDetail{Session: models.Session{
		ID:          r.ID,
		CreatedAt:   time.Time(r.CreatedAt),
		UpdatedAt:   time.Time(r.UpdatedAt),
		StudentID:   r.StudentID,
		TutorID:     r.TutorID,
		SessionDate: time.Time(r.SessionDate),
		Status:      models.SessionStatus(r.Status),
	}}
	if r.Tutor != nil {
		d.TutorName = r.Tutor.Name
	}
	if r.Student != nil {
		d.StudentName = r.Student.Name
		d.StudentEmail = r.Student.Email
	}
	return d
}

// ─────────────────────────────────────────────────────────────────────────────
// Users
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	body := map[string]any{
		"name":     u.Name,
		"email":    u.Email,
		"password": u.Password,
		"role":     string(u.Role),
	}
	var rows []userRow
	err := s.do(ctx, http.MethodPost, "users", nil, body, &rows)
	if isConflict(err) {
		return store.ErrDuplicateEmail
	}
	if err != nil {
		return store.Backend("create user", err)
	}
	if len(rows) == 0 {
		return store.Backend("create user", errors.New("empty representation"))
	}
	u.ID = rows[0].ID
	u.CreatedAt = time.Time(rows[0].CreatedAt)
	return nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.oneUser(ctx, "user by email", url.Values{"email": {"eq." + email}})
}

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.oneUser(ctx, "user by id", url.Values{"id": {eq(id)}})
}

func (s *Store) oneUser(ctx context.Context, op string, q url.Values) (*models.User, error) {
	q.Set("limit", "1")
	var rows []userRow
	if err := s.do(ctx, http.MethodGet, "users", q, nil, &rows); err != nil {
		return nil, store.Backend(op, err)
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	u := rows[0].model()
	return &u, nil
}

func (s *Store) ListTutors(ctx context.Context) ([]models.User, error) {
	q := url.Values{"role": {"eq." + string(models.RoleTutor)}, "order": {"name.asc,id.asc"}}
	var rows []userRow
	if err := s.do(ctx, http.MethodGet, "users", q, nil, &rows); err != nil {
		return nil, store.Backend("list tutors", err)
	}
	tutors := make([]models.User, 0, len(rows))
	for _, r := range rows {
		tutors = append(tutors, r.model())
	}
	return tutors, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Catalog
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	var rows []subjectRow
	if err := s.do(ctx, http.MethodGet, "subjects", url.Values{"order": {"name.asc"}}, nil, &rows); err != nil {
		return nil, store.Backend("list subjects", err)
	}
	subjects := make([]models.Subject, 0, len(rows))
	for _, r := range rows {
		subjects = append(subjects, r.model())
	}
	return subjects, nil
}

func (s *Store) SubjectByID(ctx context.Context, id uint) (*models.Subject, error) {
	var rows []subjectRow
	q := url.Values{"id": {eq(id)}, "limit": {"1"}}
	if err := s.do(ctx, http.MethodGet, "subjects", q, nil, &rows); err != nil {
		return nil, store.Backend("subject by id", err)
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	subj := rows[0].model()
	return &subj, nil
}

func (s *Store) CreateSubject(ctx context.Context, subj *models.Subject) error {
	var rows []subjectRow
	body := map[string]any{"name": subj.Name, "description": subj.Description}
	if err := s.do(ctx, http.MethodPost, "subjects", nil, body, &rows); err != nil {
		return store.Backend("create subject", err)
	}
	if len(rows) == 0 {
		return store.Backend("create subject", errors.New("empty representation"))
	}
	subj.ID = rows[0].ID
	return nil
}

func (s *Store) TutorSubjects(ctx context.Context, tutorID uint) ([]models.Subject, error) {
	q := url.Values{
		"select":   {"subject:subjects(id,name,description)"},
		"tutor_id": {eq(tutorID)},
	}
	var rows []struct {
		Subject *subjectRow `json:"subject"`
	}
	if err := s.do(ctx, http.MethodGet, "tutor_subjects", q, nil, &rows); err != nil {
		return nil, store.Backend("tutor subjects", err)
	}
	subjects := make([]models.Subject, 0, len(rows))
	for _, r := range rows {
		if r.Subject != nil {
			subjects = append(subjects, r.Subject.model())
		}
	}
	// Embedded resources cannot be ordered from the parent query.
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	return subjects, nil
}

func (s *Store) AddTutorSubject(ctx context.Context, tutorID, subjectID uint) error {
	var existing []struct {
		ID uint `json:"id"`
	}
	q := url.Values{"select": {"id"}, "tutor_id": {eq(tutorID)}, "subject_id": {eq(subjectID)}}
	if err := s.do(ctx, http.MethodGet, "tutor_subjects", q, nil, &existing); err != nil {
		return store.Backend("add tutor subject", err)
	}
	if len(existing) > 0 {
		return store.ErrAlreadyAdded
	}
	body := map[string]any{"tutor_id": tutorID, "subject_id": subjectID}
	err := s.do(ctx, http.MethodPost, "tutor_subjects", nil, body, nil)
	if isConflict(err) {
		return store.ErrAlreadyAdded
	}
	return store.Backend("add tutor subject", err)
}

func (s *Store) RemoveTutorSubject(ctx context.Context, tutorID, subjectID uint) error {
	q := url.Values{"tutor_id": {eq(tutorID)}, "subject_id": {eq(subjectID)}}
	return store.Backend("remove tutor subject", s.do(ctx, http.MethodDelete, "tutor_subjects", q, nil, nil))
}

// ─────────────────────────────────────────────────────────────────────────────
// Bookings
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) CreateSession(ctx context.Context, sess *models.Session) error {
	if sess.Status == "" {
		sess.Status = models.StatusPending
	}
	body := map[string]any{
		"student_id":   sess.StudentID,
		"tutor_id":     sess.TutorID,
		"session_date": sess.SessionDate.Format("2006-01-02T15:04:05"),
		"status":       string(sess.Status),
	}
	var rows []sessionRow
	if err := s.do(ctx, http.MethodPost, "sessions", nil, body, &rows); err != nil {
		return store.Backend("create session", err)
	}
	if len(rows) == 0 {
		return store.Backend("create session", errors.New("empty representation"))
	}
	sess.ID = rows[0].ID
	sess.CreatedAt = time.Time(rows[0].CreatedAt)
	sess.UpdatedAt = time.Time(rows[0].UpdatedAt)
	return nil
}

func (s *Store) SessionsForStudent(ctx context.Context, studentID uint) ([]models.SessionDetail, error) {
	q := url.Values{
		"select":     {"*,tutor:users!sessions_tutor_id_fkey(name)"},
		"student_id": {eq(studentID)},
		"order":      {"session_date.asc,id.asc"},
	}
	return s.sessions(ctx, "sessions for student", q)
}

func (s *Store) SessionsForTutor(ctx context.Context, tutorID uint) ([]models.SessionDetail, error) {
	q := url.Values{
		"select":   {"*,student:users!sessions_student_id_fkey(name,email)"},
		"tutor_id": {eq(tutorID)},
		"order":    {"session_date.asc,id.asc"},
	}
	return s.sessions(ctx, "sessions for tutor", q)
}

func (s *Store) sessions(ctx context.Context, op string, q url.Values) ([]models.SessionDetail, error) {
	var rows []sessionRow
	if err := s.do(ctx, http.MethodGet, "sessions", q, nil, &rows); err != nil {
		return nil, store.Backend(op, err)
	}
	out := make([]models.SessionDetail, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.detail())
	}
	return out, nil
}

// UpdateSessionStatus filters on both id and tutor_id; an empty
// representation means the tutor does not own such a session.
func (s *Store) UpdateSessionStatus(ctx context.Context, sessionID, tutorID uint, status models.SessionStatus) error {
	q := url.Values{"id": {eq(sessionID)}, "tutor_id": {eq(tutorID)}}
	body := map[string]any{"status": string(status), "updated_at": formatTimestamp(time.Now())}
	var rows []sessionRow
	if err := s.do(ctx, http.MethodPatch, "sessions", q, body, &rows); err != nil {
		return store.Backend("update session status", err)
	}
	if len(rows) == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	q := url.Values{"select": {"id"}, "limit": {"1"}}
	return store.Backend("ping", s.do(ctx, http.MethodGet, "subjects", q, nil, nil))
}

// Close is a no-op; the HTTP client holds no per-store resources.
func (s *Store) Close() error {
	s.http.CloseIdleConnections()
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Transport
// ─────────────────────────────────────────────────────────────────────────────

func eq(id uint) string {
	return "eq." + strconv.FormatUint(uint64(id), 10)
}

func (s *Store) do(ctx context.Context, method, table string, q url.Values, body, out any) error {
	u := s.base.ResolveReference(&url.URL{Path: table})
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", table, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost || method == http.MethodPatch {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if jsonErr := json.Unmarshal(raw, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", table, err)
	}
	return nil
}
