// Package policy binds the generic role gate to the application: it
// rehydrates the principal of a request and checks its role.
package policy

import (
	"context"
	"errors"
	"net/http"

	"github.com/diewo77/go-tutoring/auth"
	"github.com/diewo77/go-tutoring/gate"
	"github.com/diewo77/go-tutoring/internal/models"
	"github.com/diewo77/go-tutoring/internal/store"
)

// PrincipalLoader loads the user behind a session.
type PrincipalLoader interface {
	Load(ctx context.Context, id uint) (*models.User, error)
}

// Access is the outcome of Guard.Require. Principal is set whenever the
// session maps to an existing user, even when the role does not match.
type Access struct {
	gate.Decision
	Principal *models.User
}

// Guard is called at the top of every role-restricted handler.
type Guard struct {
	gate     *gate.Gate[*models.User]
	accounts PrincipalLoader
}

func NewGuard(accounts PrincipalLoader) *Guard {
	roles := gate.RoleResolverFunc[*models.User](func(_ context.Context, u *models.User) (string, error) {
		return string(u.Role), nil
	})
	return &Guard{gate: gate.NewGate[*models.User](roles), accounts: accounts}
}

// Require checks that the request comes from a user with the given role.
// A session pointing at a deleted user counts as anonymous.
func (g *Guard) Require(r *http.Request, role models.Role) Access {
	ctx := r.Context()
	var principal *models.User
	if uid, ok := auth.UserIDFromContext(ctx); ok {
		u, err := g.accounts.Load(ctx, uid)
		switch {
		case err == nil:
			principal = u
		case errors.Is(err, store.ErrNotFound):
		default:
			return Access{Decision: gate.Deny(err)}
		}
	}
	return Access{
		Decision:  g.gate.Require(ctx, principal, string(role)),
		Principal: principal,
	}
}
