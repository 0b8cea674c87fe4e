package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/go-tutoring/internal/models"
	"github.com/diewo77/go-tutoring/internal/store"
	"github.com/diewo77/go-tutoring/validation"
	"golang.org/x/crypto/bcrypt"
)

// Registration is the register form.
type Registration struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// Accounts is the credential store: registration, login and principal lookup.
type Accounts struct {
	store store.Store
	cost  int
	// dummyHash is compared against when the email is unknown so both
	// failure paths cost one bcrypt comparison.
	dummyHash []byte
}

func NewAccounts(s store.Store, cost int) (*Accounts, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt cost %d: %w", cost, err)
	}
	return &Accounts{store: s, cost: cost, dummyHash: dummy}, nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register validates the form, hashes the password and creates the user.
func (a *Accounts) Register(ctx context.Context, reg Registration) (*models.User, error) {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = NormalizeEmail(reg.Email)

	v := validation.Violations{}
	validation.Required("name", reg.Name, v)
	validation.MaxLen("name", reg.Name, 100, v)
	validation.Required("email", reg.Email, v)
	validation.Email("email", reg.Email, v)
	validation.MaxLen("email", reg.Email, 100, v)
	validation.Required("password", reg.Password, v)
	// bcrypt rejects passwords longer than 72 bytes.
	validation.MaxLen("password", reg.Password, 72, v)
	role, err := models.ParseRole(reg.Role)
	if err != nil {
		v["role"] = "not_allowed"
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), a.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		Name:     reg.Name,
		Email:    reg.Email,
		Password: string(hash),
		Role:     role,
	}
	if err := a.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate returns ErrInvalidCredentials for an unknown email and for a
// wrong password alike.
func (a *Accounts) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := a.store.UserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(a.dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Load rehydrates the principal for a request.
func (a *Accounts) Load(ctx context.Context, id uint) (*models.User, error) {
	return a.store.UserByID(ctx, id)
}
