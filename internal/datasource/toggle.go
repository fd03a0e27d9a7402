package datasource

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/user-sync-service/internal/domain"
	"github.com/spec-kit/user-sync-service/internal/repository"
	"github.com/spec-kit/user-sync-service/internal/staging"
	"github.com/spec-kit/user-sync-service/pkg/util"
)

// configToggleSource targets exactly one store for all operations, chosen
// once at composition time by the configuration switch.
type configToggleSource struct {
	primary    repository.UserRepository
	staging    *staging.Store
	useStaging bool
	logger     *zap.Logger
}

func (s *configToggleSource) Source() string {
	if s.useStaging {
		return "staging"
	}
	return "primary"
}

func (s *configToggleSource) GetAllUsers(ctx context.Context, activeOnly bool) ([]domain.User, error) {
	if s.useStaging {
		users, err := s.staging.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		return filterActive(users, activeOnly), nil
	}

	users, err := s.primary.Search(ctx, "")
	if err != nil {
		return nil, util.NewStoreUnavailable("primary", err)
	}
	return filterActive(users, activeOnly), nil
}

func (s *configToggleSource) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	if s.useStaging {
		return s.staging.GetByID(ctx, id)
	}
	user, err := s.primary.GetByID(ctx, id)
	if err != nil {
		return nil, util.NewStoreUnavailable("primary", err)
	}
	return user, nil
}

func (s *configToggleSource) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if s.useStaging {
		return s.staging.GetByEmail(ctx, email)
	}
	user, err := s.primary.GetByEmail(ctx, email)
	if err != nil {
		return nil, util.NewStoreUnavailable("primary", err)
	}
	return user, nil
}

func (s *configToggleSource) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	if s.useStaging {
		return s.staging.Add(ctx, buildUser(input))
	}
	user := buildUser(input)
	if err := s.primary.Create(ctx, &user); err != nil {
		return nil, util.NewStoreUnavailable("primary", err)
	}
	return &user, nil
}

func (s *configToggleSource) UpdateUser(ctx context.Context, id string, input UpdateUserInput) (*domain.User, error) {
	if s.useStaging {
		staged, err := s.staging.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if staged == nil {
			return nil, util.NewNotFound("user", map[string]any{"id": id})
		}
		return s.staging.Update(ctx, id, applyUpdate(*staged, input))
	}

	existing, err := s.primary.GetByID(ctx, id)
	if err != nil {
		return nil, util.NewStoreUnavailable("primary", err)
	}
	if existing == nil {
		return nil, util.NewNotFound("user", map[string]any{"id": id})
	}
	updated := applyUpdate(*existing, input)
	if err := s.primary.Update(ctx, &updated); err != nil {
		return nil, util.NewStoreUnavailable("primary", err)
	}
	return &updated, nil
}

func (s *configToggleSource) DeleteUser(ctx context.Context, id string) (bool, error) {
	if s.useStaging {
		return s.staging.Delete(ctx, id)
	}
	ok, err := deactivatePrimary(ctx, s.primary, id)
	if err != nil {
		return false, util.NewStoreUnavailable("primary", err)
	}
	return ok, nil
}

func (s *configToggleSource) SearchUsers(ctx context.Context, term string) ([]domain.User, error) {
	if s.useStaging {
		users, err := s.staging.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		return searchUsers(users, term), nil
	}

	users, err := s.primary.Search(ctx, term)
	if err != nil {
		return nil, util.NewStoreUnavailable("primary", err)
	}
	return searchUsers(users, term), nil
}
