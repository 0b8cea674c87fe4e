package services

import (
	"errors"

	"github.com/diewo77/go-tutoring/internal/models"
	"github.com/diewo77/go-tutoring/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidDate        = errors.New("invalid session date")

	// Re-exported so handlers only import services.
	ErrNotFound       = store.ErrNotFound
	ErrDuplicateEmail = store.ErrDuplicateEmail
	ErrAlreadyAdded   = store.ErrAlreadyAdded
	ErrInvalidStatus  = models.ErrInvalidStatus
)
