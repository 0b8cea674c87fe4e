package models

import (
	"fmt"
	"time"
)

// Role determines which dashboards and actions a user may reach.
type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTutor
}

// ParseRole converts a form value into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// User is a registered principal. Role is fixed at registration.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"` // bcrypt hash
	Role      Role      `gorm:"size:10;not null;index" json:"role"`
}

func (u *User) IsTutor() bool   { return u != nil && u.Role == RoleTutor }
func (u *User) IsStudent() bool { return u != nil && u.Role == RoleStudent }

// DashboardPath is where the user lands after logging in.
func (u *User) DashboardPath() string {
	if u.IsStudent() {
		return "/student/dashboard"
	}
	return "/tutor/dashboard"
}

// TutorListing is a row of the student search results.
type TutorListing struct {
	ID       uint
	Name     string
	Email    string
	Subjects string // comma-joined subject names, e.g. "Math, Physics"
}
