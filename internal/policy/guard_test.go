package policy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diewo77/go-tutoring/auth"
	"github.com/diewo77/go-tutoring/gate"
	"github.com/diewo77/go-tutoring/internal/models"
	"github.com/diewo77/go-tutoring/internal/store"
)

type loaderFunc func(ctx context.Context, id uint) (*models.User, error)

func (f loaderFunc) Load(ctx context.Context, id uint) (*models.User, error) { return f(ctx, id) }

var users = loaderFunc(func(_ context.Context, id uint) (*models.User, error) {
	switch id {
	case 1:
		return &models.User{ID: 1, Name: "Alice", Role: models.RoleStudent}, nil
	case 2:
		return &models.User{ID: 2, Name: "Bob", Role: models.RoleTutor}, nil
	case 3:
		return nil, errors.New("connection reset")
	}
	return nil, store.ErrNotFound
})

func requestAs(uid uint) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if uid != 0 {
		r = r.WithContext(auth.WithUserID(r.Context(), uid))
	}
	return r
}

func TestGuard_Require(t *testing.T) {
	g := NewGuard(users)

	tests := []struct {
		name    string
		uid     uint
		role    models.Role
		allowed bool
		reason  error
	}{
		{"anonymous", 0, models.RoleStudent, false, gate.ErrUnauthenticated},
		{"student on student route", 1, models.RoleStudent, true, nil},
		{"student on tutor route", 1, models.RoleTutor, false, gate.ErrForbidden},
		{"tutor on tutor route", 2, models.RoleTutor, true, nil},
		{"stale session", 42, models.RoleStudent, false, gate.ErrUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := g.Require(requestAs(tt.uid), tt.role)
			if acc.Allowed() != tt.allowed {
				t.Fatalf("allowed = %v, want %v (reason %v)", acc.Allowed(), tt.allowed, acc.Err())
			}
			if tt.reason != nil && !errors.Is(acc.Err(), tt.reason) {
				t.Errorf("reason = %v, want %v", acc.Err(), tt.reason)
			}
			if tt.allowed && acc.Principal == nil {
				t.Error("allowed access must carry the principal")
			}
		})
	}
}

func TestGuard_LoaderError(t *testing.T) {
	acc := NewGuard(users).Require(requestAs(3), models.RoleStudent)
	if acc.Allowed() {
		t.Fatal("expected deny on loader error")
	}
	if acc.Err() == nil || errors.Is(acc.Err(), gate.ErrForbidden) {
		t.Errorf("expected the loader error as reason, got %v", acc.Err())
	}
}
