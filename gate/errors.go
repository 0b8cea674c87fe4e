package gate

import "errors"

// Denial reasons returned in Decision.Reason.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)
