package domain

import (
	"strings"
	"time"
)

// Role enumerates the access levels a user can hold.
type Role string

const (
	RoleUser    Role = "User"
	RoleManager Role = "Manager"
	RoleAdmin   Role = "Admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// CanManageUsers reports whether the role grants elevated user operations.
func (r Role) CanManageUsers() bool {
	return r == RoleAdmin || r == RoleManager
}

// User is the record shape shared by the primary and staging stores.
// Email is case-insensitively unique within each store independently;
// cross-store uniqueness only holds after synchronization runs.
type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	Phone        string    `json:"phoneNumber"`
	DateOfBirth  time.Time `json:"dateOfBirth"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// FullName joins first and last name for display and search.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// EmailEquals compares emails case-insensitively.
func (u *User) EmailEquals(email string) bool {
	return strings.EqualFold(u.Email, email)
}
