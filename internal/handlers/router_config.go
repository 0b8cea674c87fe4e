package handlers

import (
	"net/http"

	"github.com/diewo77/go-tutoring/auth"
	"github.com/diewo77/go-tutoring/internal/policy"
	"github.com/diewo77/go-tutoring/internal/services"
	"github.com/diewo77/go-tutoring/internal/store"
	"github.com/diewo77/go-tutoring/view"
	"github.com/rs/zerolog"
)

// Deps are the collaborators the handlers are built from.
type Deps struct {
	Store    store.Store
	Accounts *services.Accounts
	Catalog  *services.Catalog
	Bookings *services.Bookings
	Sessions *auth.Manager
	View     *view.Renderer
	Log      zerolog.Logger
	// CredentialLimiter wraps the login and register form posts. Optional.
	CredentialLimiter func(http.Handler) http.Handler
}

// RouterConfig holds configured handlers for the application.
type RouterConfig struct {
	Sessions *auth.Manager
	Guard    *policy.Guard
	View     *view.Renderer
	Log      zerolog.Logger

	credentialLimiter func(http.Handler) http.Handler

	PagesHandler   *PagesHandler
	AuthHandler    *AuthHandler
	StudentHandler *StudentHandler
	TutorHandler   *TutorHandler
}

// NewRouterConfig wires the guard and every handler.
func NewRouterConfig(d Deps) *RouterConfig {
	cfg := &RouterConfig{
		Sessions: d.Sessions,
		Guard:    policy.NewGuard(d.Accounts),
		View:     d.View,
		Log:      d.Log,

		credentialLimiter: d.CredentialLimiter,
	}
	if cfg.credentialLimiter == nil {
		cfg.credentialLimiter = func(h http.Handler) http.Handler { return h }
	}
	cfg.PagesHandler = NewPagesHandler(cfg, d.Store)
	cfg.AuthHandler = NewAuthHandler(cfg, d.Accounts)
	cfg.StudentHandler = NewStudentHandler(cfg, d.Catalog, d.Bookings)
	cfg.TutorHandler = NewTutorHandler(cfg, d.Catalog, d.Bookings)
	return cfg
}

func (c *RouterConfig) base() base {
	return base{sessions: c.Sessions, view: c.View, guard: c.Guard, log: c.Log}
}

// Register mounts every route on mux.
func (c *RouterConfig) Register(mux *http.ServeMux) {
	// ─────────────────────────────────────────────────────────────────────
	// Public
	// ─────────────────────────────────────────────────────────────────────
	mux.HandleFunc("GET /{$}", c.PagesHandler.Index)
	mux.HandleFunc("GET /healthz", c.PagesHandler.Health)
	mux.HandleFunc("GET /register", c.AuthHandler.RegisterForm)
	mux.Handle("POST /register", c.credentialLimiter(http.HandlerFunc(c.AuthHandler.Register)))
	mux.HandleFunc("GET /login", c.AuthHandler.LoginForm)
	mux.Handle("POST /login", c.credentialLimiter(http.HandlerFunc(c.AuthHandler.Login)))
	mux.HandleFunc("GET /logout", c.AuthHandler.Logout)

	// ─────────────────────────────────────────────────────────────────────
	// Student
	// ─────────────────────────────────────────────────────────────────────
	mux.HandleFunc("GET /student/dashboard", c.StudentHandler.Dashboard)
	mux.HandleFunc("POST /student/book_session/{tutor_id}", c.StudentHandler.BookSession)

	// ─────────────────────────────────────────────────────────────────────
	// Tutor
	// ─────────────────────────────────────────────────────────────────────
	mux.HandleFunc("GET /tutor/dashboard", c.TutorHandler.Dashboard)
	mux.HandleFunc("POST /tutor/add_subject", c.TutorHandler.AddSubject)
	mux.HandleFunc("GET /tutor/remove_subject/{subject_id}", c.TutorHandler.RemoveSubject)
	mux.HandleFunc("GET /tutor/update_session/{session_id}/{status}", c.TutorHandler.UpdateSession)
}
