// Package dto defines the request and response shapes of the HTTP API.
package dto

import (
	"time"

	"github.com/spec-kit/user-sync-service/internal/domain"
)

// dateLayout is the wire format of date-only fields.
const dateLayout = "2006-01-02"

// CreateUserRequest is the payload of POST /api/users.
type CreateUserRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	DateOfBirth string `json:"dateOfBirth"`
	Role        string `json:"role"`
	Password    string `json:"password"`
}

// ParseDateOfBirth parses the date-only birth date; a zero time and false
// signal a malformed value.
func (r CreateUserRequest) ParseDateOfBirth() (time.Time, bool) {
	if r.DateOfBirth == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(dateLayout, r.DateOfBirth)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// UpdateUserRequest is the payload of PUT /api/users/:id. Omitted fields
// keep their stored values where the store supports partial updates.
type UpdateUserRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	DateOfBirth string `json:"dateOfBirth"`
	Role        string `json:"role"`
	IsActive    *bool  `json:"isActive"`
}

func (r UpdateUserRequest) ParseDateOfBirth() (time.Time, bool) {
	if r.DateOfBirth == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(dateLayout, r.DateOfBirth)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// LoginRequest is the payload of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest is the payload of POST /api/users/:id/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// SyncRequest is the optional payload of the synchronization endpoints.
type SyncRequest struct {
	Reason string `json:"reason"`
}

// UserResponse is the outward user shape. It never carries the password
// hash.
type UserResponse struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	DateOfBirth string    `json:"dateOfBirth,omitempty"`
	Role        string    `json:"role"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FromUser converts a domain user to its response shape.
func FromUser(u *domain.User) UserResponse {
	resp := UserResponse{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		FullName:    u.FullName(),
		Email:       u.Email,
		PhoneNumber: u.Phone,
		Role:        string(u.Role),
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
	if !u.DateOfBirth.IsZero() {
		resp.DateOfBirth = u.DateOfBirth.Format(dateLayout)
	}
	return resp
}

// FromUsers converts a list of domain users.
func FromUsers(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, FromUser(&users[i]))
	}
	return out
}

// AuthResponse is the reply to a successful login.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// ExistenceResponse reports where an account currently resides.
type ExistenceResponse struct {
	ExistsInStaging bool          `json:"existsInStaging"`
	ExistsInPrimary bool          `json:"existsInPrimary"`
	RequiresSync    bool          `json:"requiresSync"`
	StagingUser     *UserResponse `json:"stagingUser,omitempty"`
	PrimaryUser     *UserResponse `json:"primaryUser,omitempty"`
}

// FromExistence converts an existence status.
func FromExistence(status domain.UserExistenceStatus) ExistenceResponse {
	resp := ExistenceResponse{
		ExistsInStaging: status.ExistsInStaging,
		ExistsInPrimary: status.ExistsInPrimary,
		RequiresSync:    status.RequiresSync(),
	}
	if status.StagingUser != nil {
		u := FromUser(status.StagingUser)
		resp.StagingUser = &u
	}
	if status.PrimaryUser != nil {
		u := FromUser(status.PrimaryUser)
		resp.PrimaryUser = &u
	}
	return resp
}

// SyncValidationResponse is the dry-run validation reply.
type SyncValidationResponse struct {
	IsValid      bool          `json:"isValid"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
	Issues       []string      `json:"validationIssues,omitempty"`
	UserData     *UserResponse `json:"userData,omitempty"`
}

// FromSyncValidation converts a validation result.
func FromSyncValidation(result domain.SyncValidationResult) SyncValidationResponse {
	resp := SyncValidationResponse{
		IsValid:      result.IsValid,
		ErrorMessage: result.ErrorMessage,
		Issues:       result.Issues,
	}
	if result.UserData != nil {
		u := FromUser(result.UserData)
		resp.UserData = &u
	}
	return resp
}
