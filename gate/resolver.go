package gate

import "context"

// RoleResolver resolves a principal to its role name.
// An error denies the request with that error as the reason.
type RoleResolver[U any] interface {
	RoleOf(ctx context.Context, user U) (string, error)
}

// RoleResolverFunc adapts a function to RoleResolver.
type RoleResolverFunc[U any] func(ctx context.Context, user U) (string, error)

func (f RoleResolverFunc[U]) RoleOf(ctx context.Context, user U) (string, error) {
	return f(ctx, user)
}
