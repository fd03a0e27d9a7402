package datasource

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/user-sync-service/internal/domain"
	"github.com/spec-kit/user-sync-service/internal/repository"
	"github.com/spec-kit/user-sync-service/pkg/util"
)

// primaryOnlySource serves everything from the primary store. Any failure
// is fatal and surfaced; staging data can never leak into reads.
type primaryOnlySource struct {
	primary repository.UserRepository
	logger  *zap.Logger
}

func (s *primaryOnlySource) Source() string { return "primary-only" }

func (s *primaryOnlySource) GetAllUsers(ctx context.Context, activeOnly bool) ([]domain.User, error) {
	users, err := s.primary.Search(ctx, "")
	if err != nil {
		return nil, util.NewStoreUnavailable("primary", err)
	}
	return filterActive(users, activeOnly), nil
}

func (s *primaryOnlySource) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.primary.GetByID(ctx, id)
	if err != nil {
		return nil, util.NewStoreUnavailable("primary", err)
	}
	return user, nil
}

func (s *primaryOnlySource) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.primary.GetByEmail(ctx, email)
	if err != nil {
		return nil, util.NewStoreUnavailable("primary", err)
	}
	return user, nil
}

func (s *primaryOnlySource) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	user := buildUser(input)
	if err := s.primary.Create(ctx, &user); err != nil {
		return nil, util.NewStoreUnavailable("primary", err)
	}
	return &user, nil
}

func (s *primaryOnlySource) UpdateUser(ctx context.Context, id string, input UpdateUserInput) (*domain.User, error) {
	existing, err := s.primary.GetByID(ctx, id)
	if err != nil {
		return nil, util.NewStoreUnavailable("primary", err)
	}
	if existing == nil {
		return nil, util.NewNotFound("user", map[string]any{"id": id})
	}

	updated := applyUpdate(*existing, input)
	if err := s.primary.Update(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, util.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, util.NewStoreUnavailable("primary", err)
	}
	return &updated, nil
}

func (s *primaryOnlySource) DeleteUser(ctx context.Context, id string) (bool, error) {
	ok, err := deactivatePrimary(ctx, s.primary, id)
	if err != nil {
		return false, util.NewStoreUnavailable("primary", err)
	}
	return ok, nil
}

func (s *primaryOnlySource) SearchUsers(ctx context.Context, term string) ([]domain.User, error) {
	users, err := s.primary.Search(ctx, term)
	if err != nil {
		return nil, util.NewStoreUnavailable("primary", err)
	}
	if strings.TrimSpace(term) == "" {
		return filterActive(users, true), nil
	}
	return users, nil
}
