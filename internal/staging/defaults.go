package staging

import (
	"time"

	"github.com/spec-kit/user-sync-service/internal/domain"
)

// Seed accounts written once when the backing file does not exist. They
// carry a placeholder bcrypt credential; rotate it before real use.
const seedPasswordHash = "$2a$12$9PXmUNuQpdLC2ZCYxDOn3OBDRJCEvRzLV3T4wIDSLKgyZlFsQYdIq"

func defaultUsers() []domain.User {
	created := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	return []domain.User{
		{
			ID:           "550e8400-e29b-41d4-a716-446655440001",
			FirstName:    "John",
			LastName:     "Admin",
			Email:        "admin@example.com",
			Phone:        "+1-555-0101",
			DateOfBirth:  time.Date(1985, 5, 15, 0, 0, 0, 0, time.UTC),
			Role:         domain.RoleAdmin,
			IsActive:     true,
			PasswordHash: seedPasswordHash,
			CreatedAt:    created,
			UpdatedAt:    created,
		},
		{
			ID:           "550e8400-e29b-41d4-a716-446655440002",
			FirstName:    "Jane",
			LastName:     "Manager",
			Email:        "manager@example.com",
			Phone:        "+1-555-0102",
			DateOfBirth:  time.Date(1990, 8, 22, 0, 0, 0, 0, time.UTC),
			Role:         domain.RoleManager,
			IsActive:     true,
			PasswordHash: seedPasswordHash,
			CreatedAt:    created,
			UpdatedAt:    created,
		},
		{
			ID:           "550e8400-e29b-41d4-a716-446655440003",
			FirstName:    "Bob",
			LastName:     "User",
			Email:        "user@example.com",
			Phone:        "+1-555-0103",
			DateOfBirth:  time.Date(1992, 12, 10, 0, 0, 0, 0, time.UTC),
			Role:         domain.RoleUser,
			IsActive:     true,
			PasswordHash: seedPasswordHash,
			CreatedAt:    created,
			UpdatedAt:    created,
		},
		{
			ID:           "550e8400-e29b-41d4-a716-446655440004",
			FirstName:    "Alice",
			LastName:     "Smith",
			Email:        "alice.smith@example.com",
			Phone:        "+1-555-0104",
			DateOfBirth:  time.Date(1988, 3, 7, 0, 0, 0, 0, time.UTC),
			Role:         domain.RoleUser,
			IsActive:     false,
			PasswordHash: seedPasswordHash,
			CreatedAt:    created,
			UpdatedAt:    created,
		},
	}
}
