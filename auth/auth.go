// Package auth keeps the signed-in identity and one-shot flash messages in an
// encrypted cookie session (gorilla/sessions). Handlers mutate the session
// during a request; Redirect and Flashes persist it.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/gob"
	"net/http"

	"github.com/gorilla/sessions"
)

type ctxKey string

const (
	DefaultCookieName = "tutoring-session"

	userIDCtxKey = ctxKey("userID")
	roleCtxKey   = ctxKey("role")

	valUserID = "user_id"
	valRole   = "role"
)

func init() {
	gob.Register(Flash{})
}

// Options configures a Manager.
type Options struct {
	Secret     string
	CookieName string
	Secure     bool
	MaxAge     int // seconds; 0 means 14 days
}

// Manager owns the cookie store. It is safe for concurrent use.
type Manager struct {
	store *sessions.CookieStore
	name  string
}

// NewManager derives the signing key from Secret and the encryption key
// from its SHA-256 digest.
func NewManager(opts Options) *Manager {
	blockKey := sha256.Sum256([]byte(opts.Secret))
	store := sessions.NewCookieStore([]byte(opts.Secret), blockKey[:])
	maxAge := opts.MaxAge
	if maxAge == 0 {
		maxAge = 14 * 24 * 60 * 60
	}
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	name := opts.CookieName
	if name == "" {
		name = DefaultCookieName
	}
	return &Manager{store: store, name: name}
}

// session returns the request's session. A cookie that fails to decode
// yields a fresh session; it is overwritten on the next save.
func (m *Manager) session(r *http.Request) *sessions.Session {
	sess, _ := m.store.Get(r, m.name)
	return sess
}

// Login records the identity on the session. Call Redirect to persist it.
func (m *Manager) Login(r *http.Request, userID uint, role string) {
	sess := m.session(r)
	sess.Values[valUserID] = userID
	sess.Values[valRole] = role
}

// Logout drops the identity but keeps the session so a flash can follow.
func (m *Manager) Logout(r *http.Request) {
	sess := m.session(r)
	delete(sess.Values, valUserID)
	delete(sess.Values, valRole)
}

// Identity reads the user id and role stored on the session.
func (m *Manager) Identity(r *http.Request) (uint, string, bool) {
	sess := m.session(r)
	uid, ok := sess.Values[valUserID].(uint)
	if !ok || uid == 0 {
		return 0, "", false
	}
	role, _ := sess.Values[valRole].(string)
	return uid, role, true
}

// Save persists the session cookie.
func (m *Manager) Save(w http.ResponseWriter, r *http.Request) error {
	return m.session(r).Save(r, w)
}

// Redirect saves the session and answers 303 See Other.
func (m *Manager) Redirect(w http.ResponseWriter, r *http.Request, to string) error {
	err := m.Save(w, r)
	http.Redirect(w, r, to, http.StatusSeeOther)
	return err
}

// Middleware attaches the session identity to the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if uid, role, ok := m.Identity(r); ok {
			ctx := WithUserID(r.Context(), uid)
			ctx = WithRole(ctx, role)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// WithUserID stores user id in context.
func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, userIDCtxKey, userID)
}

// UserIDFromContext extracts user id.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(userIDCtxKey).(uint)
	return id, ok && id != 0
}

// WithRole stores the session role in context.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleCtxKey, role)
}

// RoleFromContext returns the session role, or "" when anonymous.
func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleCtxKey).(string)
	return role
}
