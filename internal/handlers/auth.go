package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/diewo77/go-tutoring/auth"
	"github.com/diewo77/go-tutoring/internal/models"
	"github.com/diewo77/go-tutoring/internal/services"
)

type AuthHandler struct {
	base
	accounts *services.Accounts
}

func NewAuthHandler(cfg *RouterConfig, accounts *services.Accounts) *AuthHandler {
	return &AuthHandler{base: cfg.base(), accounts: accounts}
}

func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "register.html", map[string]any{
		"Form": services.Registration{Role: string(models.RoleStudent)},
	})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.flash(r, auth.FlashDanger, MsgInvalidForm)
		h.redirect(w, r, "/register")
		return
	}
	reg := services.Registration{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		Role:     r.PostFormValue("role"),
	}

	u, err := h.accounts.Register(r.Context(), reg)
	if err != nil {
		h.flashError(r, err, MsgSomethingWrong)
		reg.Password = ""
		h.render(w, r, "register.html", map[string]any{"Form": reg})
		return
	}

	h.logger(r).Info().Uint("user_id", u.ID).Str("role", string(u.Role)).Msg("user registered")
	h.flash(r, auth.FlashSuccess, MsgRegistered)
	h.redirect(w, r, "/login")
}

func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "login.html", map[string]any{"Email": ""})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	u, err := h.accounts.Authenticate(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.logger(r).Info().Msg("login failed")
		}
		h.flashError(r, err, MsgInvalidLogin)
		h.render(w, r, "login.html", map[string]any{"Email": email})
		return
	}

	h.sessions.Login(r, u.ID, string(u.Role))
	h.flash(r, auth.FlashSuccess, fmt.Sprintf(msgWelcomeBackFormat, u.Name))
	h.redirect(w, r, u.DashboardPath())
}

// Logout needs a session; anonymous callers are sent to the login page.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserIDFromContext(r.Context()); !ok {
		h.redirect(w, r, "/login")
		return
	}
	h.sessions.Logout(r)
	h.flash(r, auth.FlashSuccess, MsgLoggedOut)
	h.redirect(w, r, "/")
}
