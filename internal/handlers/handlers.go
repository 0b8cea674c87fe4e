// Package handlers implements one method per user-facing action. Every
// failure ends in a flash message and a redirect or re-render; no raw error
// page is shown.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/diewo77/go-tutoring/auth"
	"github.com/diewo77/go-tutoring/gate"
	"github.com/diewo77/go-tutoring/internal/models"
	"github.com/diewo77/go-tutoring/internal/policy"
	"github.com/diewo77/go-tutoring/internal/services"
	"github.com/diewo77/go-tutoring/validation"
	"github.com/diewo77/go-tutoring/view"
	"github.com/rs/zerolog"
)

// Flash texts shown to users.
const (
	MsgAccessDenied      = "Access denied. You do not have permission to access this page."
	MsgEmailExists       = "Email already exists."
	MsgRegistered        = "Registration successful! Please log in."
	MsgInvalidLogin      = "Invalid email or password."
	MsgLoggedOut         = "You have been logged out successfully."
	MsgSessionRequested  = "Session request sent successfully!"
	MsgSubjectExists     = "Subject already added."
	MsgSubjectAdded      = "Subject added successfully!"
	MsgSubjectRemoved    = "Subject removed successfully!"
	MsgInvalidStatus     = "Invalid status."
	MsgSessionNotFound   = "Session not found."
	MsgTutorNotFound     = "Tutor not found."
	MsgSubjectNotFound   = "Subject not found."
	MsgInvalidForm       = "Please fill in all fields correctly."
	MsgInvalidDate       = "Invalid session date."
	MsgSomethingWrong    = "Something went wrong. Please try again."
	msgWelcomeBackFormat = "Welcome back, %s!"
	msgSessionSetFormat  = "Session %s successfully!"
)

// base carries what every handler needs.
type base struct {
	sessions *auth.Manager
	view     *view.Renderer
	guard    *policy.Guard
	log      zerolog.Logger
}

// logger returns the request-scoped logger when the RequestID middleware set one.
func (b *base) logger(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &b.log
}

// require runs the guard. On deny it flashes and redirects to the landing
// page, and the caller must return. A principal that could not be loaded
// gets the generic failure notice instead of the access warning.
func (b *base) require(w http.ResponseWriter, r *http.Request, role models.Role) (*models.User, bool) {
	access := b.guard.Require(r, role)
	if access.Allowed() {
		return access.Principal, true
	}
	err := access.Err()
	if errors.Is(err, gate.ErrUnauthenticated) || errors.Is(err, gate.ErrForbidden) {
		b.logger(r).Debug().Err(err).Str("path", r.URL.Path).Str("role", string(role)).Msg("access denied")
		b.flash(r, auth.FlashWarning, MsgAccessDenied)
	} else {
		b.flashError(r, err, MsgSomethingWrong)
	}
	b.redirect(w, r, "/")
	return nil, false
}

func (b *base) redirect(w http.ResponseWriter, r *http.Request, to string) {
	if err := b.sessions.Redirect(w, r, to); err != nil {
		b.logger(r).Error().Err(err).Msg("save session")
	}
}

func (b *base) flash(r *http.Request, kind, msg string) {
	b.sessions.AddFlash(r, kind, msg)
}

// flashError turns err into a user-visible notice. notFound is the text used
// for services.ErrNotFound, which depends on what was looked up.
func (b *base) flashError(r *http.Request, err error, notFound string) {
	var ve *validation.Error
	msg := MsgSomethingWrong
	switch {
	case errors.Is(err, services.ErrDuplicateEmail):
		msg = MsgEmailExists
	case errors.Is(err, services.ErrInvalidCredentials):
		msg = MsgInvalidLogin
	case errors.Is(err, services.ErrAlreadyAdded):
		msg = MsgSubjectExists
	case errors.Is(err, services.ErrInvalidStatus):
		msg = MsgInvalidStatus
	case errors.Is(err, services.ErrInvalidDate):
		msg = MsgInvalidDate
	case errors.Is(err, services.ErrNotFound):
		msg = notFound
	case errors.As(err, &ve):
		msg = MsgInvalidForm
	default:
		b.logger(r).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	b.flash(r, auth.FlashDanger, msg)
}

func (b *base) render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	if err := b.view.Render(w, r, name, data); err != nil {
		b.logger(r).Error().Err(err).Str("template", name).Msg("render failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// pathID parses a numeric path segment. Non-numeric ids do not match the
// route and get a 404.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil || id == 0 {
		http.NotFound(w, r)
		return 0, false
	}
	return uint(id), true
}
