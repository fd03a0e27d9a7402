// Package datasource selects, per call, whether user reads and writes hit
// the primary store, the staging store, or both. One of four strategies is
// chosen at composition time behind a single interface.
package datasource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/user-sync-service/internal/domain"
	"github.com/spec-kit/user-sync-service/internal/repository"
	"github.com/spec-kit/user-sync-service/internal/staging"
)

// Strategy is the closed set of facade behaviors.
type Strategy string

const (
	// StrategyPrimaryFirst reads the primary store and falls back to
	// staging on failure or empty results; primary unavailability never
	// surfaces to the caller.
	StrategyPrimaryFirst Strategy = "primary_first"
	// StrategyPrimaryOnly uses the primary store exclusively; failures
	// are fatal and surfaced. Staging data never leaks into reads.
	StrategyPrimaryOnly Strategy = "primary_only"
	// StrategyDualWrite mutates both stores independently; a failure in
	// one does not abort the other.
	StrategyDualWrite Strategy = "dual_write"
	// StrategyConfigToggle targets staging or primary exclusively,
	// chosen once per process by a configuration switch.
	StrategyConfigToggle Strategy = "config_toggle"
)

// CreateUserInput carries the fields of a user creation request.
type CreateUserInput struct {
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	DateOfBirth  time.Time
	Role         domain.Role
	PasswordHash string
}

// UpdateUserInput carries a partial update. Empty Email, zero Role and nil
// IsActive leave the stored values unchanged; PasswordHash is only applied
// when non-empty.
type UpdateUserInput struct {
	FirstName    string
	LastName     string
	Phone        string
	DateOfBirth  time.Time
	Email        string
	Role         domain.Role
	IsActive     *bool
	PasswordHash string
}

// DataSource is the uniform user CRUD and search contract exposed to the
// rest of the system.
type DataSource interface {
	GetAllUsers(ctx context.Context, activeOnly bool) ([]domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, input UpdateUserInput) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) (bool, error)
	SearchUsers(ctx context.Context, term string) ([]domain.User, error)
	// Source describes which store(s) the facade currently targets.
	Source() string
}

// New builds the facade for the given strategy. useStaging only applies to
// StrategyConfigToggle.
func New(strategy Strategy, primary repository.UserRepository, stagingStore *staging.Store, useStaging bool, logger *zap.Logger) (DataSource, error) {
	switch strategy {
	case StrategyPrimaryFirst:
		return &primaryFirstSource{primary: primary, staging: stagingStore, logger: logger}, nil
	case StrategyPrimaryOnly:
		return &primaryOnlySource{primary: primary, logger: logger}, nil
	case StrategyDualWrite:
		return &DualWriteSource{primary: primary, staging: stagingStore, logger: logger}, nil
	case StrategyConfigToggle:
		return &configToggleSource{primary: primary, staging: stagingStore, useStaging: useStaging, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown data source strategy %q", strategy)
	}
}

func buildUser(input CreateUserInput) domain.User {
	return domain.User{
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        strings.TrimSpace(input.Email),
		Phone:        strings.TrimSpace(input.Phone),
		DateOfBirth:  input.DateOfBirth,
		Role:         input.Role,
		IsActive:     true,
		PasswordHash: input.PasswordHash,
	}
}

func applyUpdate(existing domain.User, input UpdateUserInput) domain.User {
	existing.FirstName = strings.TrimSpace(input.FirstName)
	existing.LastName = strings.TrimSpace(input.LastName)
	existing.Phone = strings.TrimSpace(input.Phone)
	if !input.DateOfBirth.IsZero() {
		existing.DateOfBirth = input.DateOfBirth
	}
	if input.Email != "" {
		existing.Email = strings.TrimSpace(input.Email)
	}
	if input.Role != "" {
		existing.Role = input.Role
	}
	if input.IsActive != nil {
		existing.IsActive = *input.IsActive
	}
	if input.PasswordHash != "" {
		existing.PasswordHash = input.PasswordHash
	}
	return existing
}

func filterActive(users []domain.User, activeOnly bool) []domain.User {
	if !activeOnly {
		return users
	}
	filtered := make([]domain.User, 0, len(users))
	for _, u := range users {
		if u.IsActive {
			filtered = append(filtered, u)
		}
	}
	return filtered
}

// searchUsers applies the facade search semantics to an in-memory set:
// case-insensitive substring match over first name, last name and email,
// with an empty term returning the unfiltered active-scoped set.
func searchUsers(users []domain.User, term string) []domain.User {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return filterActive(users, true)
	}
	matched := make([]domain.User, 0, len(users))
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.FirstName), term) ||
			strings.Contains(strings.ToLower(u.LastName), term) ||
			strings.Contains(strings.ToLower(u.Email), term) {
			matched = append(matched, u)
		}
	}
	return matched
}
