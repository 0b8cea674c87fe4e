package reststore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/diewo77/go-tutoring/internal/models"
	"github.com/diewo77/go-tutoring/internal/store"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore starts a fake backend answering with h.
func newTestStore(t *testing.T, h http.HandlerFunc) *Store {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	s, err := New(Config{URL: srv.URL, APIKey: "test-key", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_RequiresURLAndKey(t *testing.T) {
	_, err := New(Config{URL: "http://x"})
	require.Error(t, err)
	_, err = New(Config{APIKey: "k"})
	require.Error(t, err)
}

func TestCreateUser_SendsHeadersAndBody(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/users", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		var body map[string]any
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &body))
		assert.Equal(t, "alice@x.com", body["email"])
		assert.Equal(t, "student", body["role"])

		writeJSON(w, http.StatusCreated, []map[string]any{{
			"id": 7, "created_at": "2024-03-01T10:00:00.123456+00:00",
			"name": "Alice", "email": "alice@x.com", "password": "h", "role": "student",
		}})
	})

	u := &models.User{Name: "Alice", Email: "alice@x.com", Password: "h", Role: models.RoleStudent}
	require.NoError(t, s.CreateUser(context.Background(), u))
	assert.EqualValues(t, 7, u.ID)
	assert.Equal(t, 2024, u.CreatedAt.Year())
}

func TestCreateUser_ConflictIsDuplicateEmail(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"code":    "23505",
			"message": `duplicate key value violates unique constraint "idx_users_email"`,
		})
	})
	err := s.CreateUser(context.Background(), &models.User{Email: "a@x.com"})
	require.ErrorIs(t, err, store.ErrDuplicateEmail)
}

func TestUserByEmail_NotFound(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.nobody@x.com", r.URL.Query().Get("email"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, []any{})
	})
	_, err := s.UserByEmail(context.Background(), "nobody@x.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestServerErrorIsBackendError(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	_, err := s.ListTutors(context.Background())
	var be *store.BackendError
	require.True(t, errors.As(err, &be), "got %T", err)
	assert.Equal(t, "list tutors", be.Op)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "boom", apiErr.Message)
}

func TestTutorSubjects_DecodesEmbedAndSorts(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/tutor_subjects", r.URL.Path)
		assert.Equal(t, "eq.3", r.URL.Query().Get("tutor_id"))
		writeJSON(w, http.StatusOK, []map[string]any{
			{"subject": map[string]any{"id": 2, "name": "Physics", "description": nil}},
			{"subject": map[string]any{"id": 1, "name": "Math", "description": "numbers"}},
		})
	})
	subjects, err := s.TutorSubjects(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, "Math", subjects[0].Name)
	assert.Equal(t, "numbers", subjects[0].Description)
	assert.Equal(t, "Physics", subjects[1].Name)
}

func TestAddTutorSubject_ExistingRowIsAlreadyAdded(t *testing.T) {
	posted := false
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posted = true
		}
		writeJSON(w, http.StatusOK, []map[string]any{{"id": 1}})
	})
	err := s.AddTutorSubject(context.Background(), 1, 2)
	require.ErrorIs(t, err, store.ErrAlreadyAdded)
	assert.False(t, posted)
}

func TestSessionsForTutor_DecodesStudent(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "eq.4", q.Get("tutor_id"))
		assert.Contains(t, q.Get("select"), "student:users!sessions_student_id_fkey(name,email)")
		writeJSON(w, http.StatusOK, []map[string]any{{
			"id": 9, "student_id": 1, "tutor_id": 4,
			"session_date": "2030-05-17T14:30:00",
			"status":       "pending",
			"created_at":   "2024-03-01T10:00:00+00:00",
			"updated_at":   "2024-03-01T10:00:00+00:00",
			"student":      map[string]any{"name": "Alice", "email": "alice@x.com"},
		}})
	})
	out, err := s.SessionsForTutor(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Alice", out[0].StudentName)
	assert.Equal(t, "alice@x.com", out[0].StudentEmail)
	assert.True(t, out[0].IsPending())
	assert.True(t, out[0].SessionDate.Equal(time.Date(2030, 5, 17, 14, 30, 0, 0, time.UTC)))
}

func TestUpdateSessionStatus_EmptyResultIsNotFound(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.5", r.URL.Query().Get("id"))
		assert.Equal(t, "eq.2", r.URL.Query().Get("tutor_id"))
		writeJSON(w, http.StatusOK, []any{})
	})
	err := s.UpdateSessionStatus(context.Background(), 5, 2, models.StatusConfirmed)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRemoveTutorSubject_NoContent(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, s.RemoveTutorSubject(context.Background(), 1, 2))
}

func TestKeyRole(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": "anon"})
	signed, err := token.SignedString([]byte("whatever"))
	require.NoError(t, err)

	assert.Equal(t, "anon", keyRole(signed))
	assert.Equal(t, "", keyRole("not-a-jwt"))
}
