package datasource

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/user-sync-service/internal/domain"
	"github.com/spec-kit/user-sync-service/internal/repository"
	"github.com/spec-kit/user-sync-service/internal/staging"
	"github.com/spec-kit/user-sync-service/pkg/util"
)

// primaryFirstSource prefers the primary store and falls back to staging on
// failure or on empty results. Primary unavailability is logged, never
// propagated.
type primaryFirstSource struct {
	primary repository.UserRepository
	staging *staging.Store
	logger  *zap.Logger
}

func (s *primaryFirstSource) Source() string { return "primary-first-with-fallback" }

func (s *primaryFirstSource) GetAllUsers(ctx context.Context, activeOnly bool) ([]domain.User, error) {
	users, err := s.primary.Search(ctx, "")
	if err != nil {
		s.logger.Warn("primary store read failed, falling back to staging", zap.Error(err))
	} else if len(users) > 0 {
		return filterActive(users, activeOnly), nil
	}

	staged, err := s.staging.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return filterActive(staged, activeOnly), nil
}

func (s *primaryFirstSource) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.primary.GetByID(ctx, id)
	if err != nil {
		s.logger.Warn("primary store lookup failed, falling back to staging",
			zap.String("user_id", id), zap.Error(err))
	} else if user != nil {
		return user, nil
	}
	return s.staging.GetByID(ctx, id)
}

func (s *primaryFirstSource) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.primary.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Warn("primary store lookup failed, falling back to staging",
			zap.String("email", email), zap.Error(err))
	} else if user != nil {
		return user, nil
	}
	return s.staging.GetByEmail(ctx, email)
}

func (s *primaryFirstSource) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	user := buildUser(input)
	if err := s.primary.Create(ctx, &user); err != nil {
		s.logger.Warn("primary store create failed, falling back to staging",
			zap.String("email", input.Email), zap.Error(err))
		return s.staging.Add(ctx, buildUser(input))
	}
	return &user, nil
}

func (s *primaryFirstSource) UpdateUser(ctx context.Context, id string, input UpdateUserInput) (*domain.User, error) {
	existing, err := s.primary.GetByID(ctx, id)
	if err == nil && existing != nil {
		updated := applyUpdate(*existing, input)
		if err := s.primary.Update(ctx, &updated); err == nil {
			return &updated, nil
		}
		s.logger.Warn("primary store update failed, falling back to staging",
			zap.String("user_id", id), zap.Error(err))
	} else if err != nil {
		s.logger.Warn("primary store lookup failed, falling back to staging",
			zap.String("user_id", id), zap.Error(err))
	}

	staged, err := s.staging.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if staged == nil {
		return nil, util.NewNotFound("user", map[string]any{"id": id})
	}
	return s.staging.Update(ctx, id, applyUpdate(*staged, input))
}

func (s *primaryFirstSource) DeleteUser(ctx context.Context, id string) (bool, error) {
	ok, err := deactivatePrimary(ctx, s.primary, id)
	if err != nil {
		s.logger.Warn("primary store delete failed, falling back to staging",
			zap.String("user_id", id), zap.Error(err))
		return s.staging.Delete(ctx, id)
	}
	if ok {
		// Remove any staged copy so fallback reads agree.
		_, _ = s.staging.Delete(ctx, id)
		return true, nil
	}
	return s.staging.Delete(ctx, id)
}

func (s *primaryFirstSource) SearchUsers(ctx context.Context, term string) ([]domain.User, error) {
	users, err := s.primary.Search(ctx, term)
	if err != nil {
		s.logger.Warn("primary store search failed, falling back to staging", zap.Error(err))
		staged, err := s.staging.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		return searchUsers(staged, term), nil
	}
	if strings.TrimSpace(term) == "" {
		return filterActive(users, true), nil
	}
	return users, nil
}

// deactivatePrimary implements deletion against the primary adapter, which
// exposes no hard delete: the record is marked inactive instead.
func deactivatePrimary(ctx context.Context, primary repository.UserRepository, id string) (bool, error) {
	user, err := primary.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	user.IsActive = false
	if err := primary.Update(ctx, user); err != nil {
		return false, err
	}
	return true, nil
}
