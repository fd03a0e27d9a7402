package datasource

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/user-sync-service/internal/domain"
	"github.com/spec-kit/user-sync-service/internal/repository"
	"github.com/spec-kit/user-sync-service/internal/staging"
	"github.com/spec-kit/user-sync-service/pkg/util"
)

// WriteOutcome reports which stores accepted a dual-write mutation. A
// partial outcome means the caller must reconcile later; it is logged as a
// warning with both flags but still counts as success.
type WriteOutcome int

const (
	OutcomeBothSucceeded WriteOutcome = iota
	OutcomePartialPrimaryFailed
	OutcomePartialStagingFailed
	OutcomeBothFailed
)

func (o WriteOutcome) String() string {
	switch o {
	case OutcomeBothSucceeded:
		return "both_succeeded"
	case OutcomePartialPrimaryFailed:
		return "partial_primary_failed"
	case OutcomePartialStagingFailed:
		return "partial_staging_failed"
	case OutcomeBothFailed:
		return "both_failed"
	}
	return "unknown"
}

// Succeeded reports whether at least one store accepted the write.
func (o WriteOutcome) Succeeded() bool {
	return o != OutcomeBothFailed
}

func outcomeOf(primaryOK, stagingOK bool) WriteOutcome {
	switch {
	case primaryOK && stagingOK:
		return OutcomeBothSucceeded
	case stagingOK:
		return OutcomePartialPrimaryFailed
	case primaryOK:
		return OutcomePartialStagingFailed
	}
	return OutcomeBothFailed
}

// DualWriteSource mutates both stores independently. The *WithOutcome
// variants expose the three-valued result; the DataSource methods collapse
// it, failing only when both stores fail.
type DualWriteSource struct {
	primary repository.UserRepository
	staging *staging.Store
	logger  *zap.Logger
}

func (s *DualWriteSource) Source() string { return "dual-write" }

func (s *DualWriteSource) GetAllUsers(ctx context.Context, activeOnly bool) ([]domain.User, error) {
	seen := make(map[string]struct{})
	var all []domain.User

	if users, err := s.primary.Search(ctx, ""); err != nil {
		s.logger.Warn("failed to read users from primary store", zap.Error(err))
	} else {
		for _, u := range users {
			seen[u.ID] = struct{}{}
			all = append(all, u)
		}
	}

	staged, err := s.staging.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range staged {
		if _, dup := seen[u.ID]; !dup {
			all = append(all, u)
		}
	}
	return filterActive(all, activeOnly), nil
}

func (s *DualWriteSource) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.primary.GetByID(ctx, id)
	if err != nil {
		s.logger.Warn("primary store lookup failed, checking staging",
			zap.String("user_id", id), zap.Error(err))
	} else if user != nil {
		return user, nil
	}
	return s.staging.GetByID(ctx, id)
}

func (s *DualWriteSource) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.primary.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Warn("primary store lookup failed, checking staging",
			zap.String("email", email), zap.Error(err))
	} else if user != nil {
		return user, nil
	}
	return s.staging.GetByEmail(ctx, email)
}

// CreateUserWithOutcome creates the user in both stores independently.
func (s *DualWriteSource) CreateUserWithOutcome(ctx context.Context, input CreateUserInput) (*domain.User, WriteOutcome, error) {
	var created *domain.User
	primaryOK := false

	primaryUser := buildUser(input)
	if err := s.primary.Create(ctx, &primaryUser); err != nil {
		s.logger.Error("failed to create user in primary store",
			zap.String("email", input.Email), zap.Error(err))
	} else {
		primaryOK = true
		created = &primaryUser
	}

	stagingUser := buildUser(input)
	if created != nil {
		// Share the primary-assigned id so the copies stay correlated.
		stagingUser.ID = created.ID
	}
	staged, err := s.staging.Add(ctx, stagingUser)
	stagingOK := err == nil
	if err != nil {
		s.logger.Error("failed to create user in staging store",
			zap.String("email", input.Email), zap.Error(err))
	} else if created == nil {
		created = staged
	}

	outcome := outcomeOf(primaryOK, stagingOK)
	s.reportOutcome("create", input.Email, outcome)
	if outcome == OutcomeBothFailed {
		return nil, outcome, util.NewStoreUnavailable("primary and staging",
			fmt.Errorf("user creation failed in both stores"))
	}
	return created, outcome, nil
}

func (s *DualWriteSource) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	user, _, err := s.CreateUserWithOutcome(ctx, input)
	return user, err
}

// UpdateUserWithOutcome applies the update to both stores independently.
func (s *DualWriteSource) UpdateUserWithOutcome(ctx context.Context, id string, input UpdateUserInput) (*domain.User, WriteOutcome, error) {
	var updated *domain.User
	primaryOK := false

	existing, err := s.primary.GetByID(ctx, id)
	switch {
	case err != nil:
		s.logger.Error("failed to read user from primary store",
			zap.String("user_id", id), zap.Error(err))
	case existing == nil:
		s.logger.Warn("user not found in primary store",
			zap.String("user_id", id))
	default:
		next := applyUpdate(*existing, input)
		if err := s.primary.Update(ctx, &next); err != nil {
			s.logger.Error("failed to update user in primary store",
				zap.String("user_id", id), zap.Error(err))
		} else {
			primaryOK = true
			updated = &next
		}
	}

	stagingOK := false
	if staged, err := s.staging.GetByID(ctx, id); err == nil && staged != nil {
		next, err := s.staging.Update(ctx, id, applyUpdate(*staged, input))
		if err != nil {
			s.logger.Error("failed to update user in staging store",
				zap.String("user_id", id), zap.Error(err))
		} else {
			stagingOK = true
			if updated == nil {
				updated = next
			}
		}
	}

	outcome := outcomeOf(primaryOK, stagingOK)
	s.reportOutcome("update", id, outcome)
	if outcome == OutcomeBothFailed {
		return nil, outcome, util.NewNotFound("user", map[string]any{"id": id})
	}
	return updated, outcome, nil
}

func (s *DualWriteSource) UpdateUser(ctx context.Context, id string, input UpdateUserInput) (*domain.User, error) {
	user, _, err := s.UpdateUserWithOutcome(ctx, id, input)
	return user, err
}

// DeleteUserWithOutcome removes the user from both stores independently.
func (s *DualWriteSource) DeleteUserWithOutcome(ctx context.Context, id string) (bool, WriteOutcome, error) {
	primaryOK, err := deactivatePrimary(ctx, s.primary, id)
	if err != nil {
		s.logger.Error("failed to delete user from primary store",
			zap.String("user_id", id), zap.Error(err))
		primaryOK = false
	}

	stagingOK, err := s.staging.Delete(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete user from staging store",
			zap.String("user_id", id), zap.Error(err))
		stagingOK = false
	}

	outcome := outcomeOf(primaryOK, stagingOK)
	s.reportOutcome("delete", id, outcome)
	return outcome.Succeeded(), outcome, nil
}

func (s *DualWriteSource) DeleteUser(ctx context.Context, id string) (bool, error) {
	ok, _, err := s.DeleteUserWithOutcome(ctx, id)
	return ok, err
}

func (s *DualWriteSource) SearchUsers(ctx context.Context, term string) ([]domain.User, error) {
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

func (s *DualWriteSource) reportOutcome(op, subject string, outcome WriteOutcome) {
	switch outcome {
	case OutcomePartialPrimaryFailed, OutcomePartialStagingFailed:
		s.logger.Warn("dual-write partially failed, reconciliation required",
			zap.String("operation", op),
			zap.String("subject", subject),
			zap.Bool("primary_succeeded", outcome == OutcomePartialStagingFailed),
			zap.Bool("staging_succeeded", outcome == OutcomePartialPrimaryFailed),
		)
	case OutcomeBothFailed:
		s.logger.Error("dual-write failed in both stores",
			zap.String("operation", op), zap.String("subject", subject))
	}
}
