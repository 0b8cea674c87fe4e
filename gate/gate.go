// Package gate is a small role-based authorization checkpoint.
// A Gate asks a RoleResolver for the role of a principal and compares it to
// the roles a route requires. The outcome is a Decision value rather than a
// side effect, so callers decide how a denial is rendered.
//
// The package has no dependency on domain models; U is whatever identifies
// a principal (a user ID, a claims struct, ...).
package gate

import "context"

// Gate checks principals of type U against required roles.
type Gate[U comparable] struct {
	roles RoleResolver[U]
}

// NewGate creates a Gate backed by the given resolver.
func NewGate[U comparable](roles RoleResolver[U]) *Gate[U] {
	return &Gate[U]{roles: roles}
}

// Require allows the principal when its resolved role is one of roles.
// The zero principal is always denied with ErrUnauthenticated. With no roles
// listed, any authenticated principal is allowed.
func (g *Gate[U]) Require(ctx context.Context, user U, roles ...string) Decision {
	var zero U
	if user == zero {
		return Deny(ErrUnauthenticated)
	}
	role, err := g.roles.RoleOf(ctx, user)
	if err != nil {
		return Deny(err)
	}
	if len(roles) == 0 {
		return Allow(role)
	}
	for _, want := range roles {
		if role == want {
			return Allow(role)
		}
	}
	return Deny(ErrForbidden)
}
