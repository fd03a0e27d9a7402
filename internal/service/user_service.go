package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/user-sync-service/internal/auth"
	"github.com/spec-kit/user-sync-service/internal/datasource"
	"github.com/spec-kit/user-sync-service/internal/domain"
	"github.com/spec-kit/user-sync-service/internal/events"
	"github.com/spec-kit/user-sync-service/internal/security"
	"github.com/spec-kit/user-sync-service/pkg/util"
)

// CreateUserParams is the service-level creation request. Password is the
// plaintext credential; the service hashes it before any store sees it.
type CreateUserParams struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	DateOfBirth time.Time
	Role        domain.Role
	Password    string
}

// UserService exposes user CRUD on top of the data source facade, with
// the security validator gating every mutation.
type UserService struct {
	data       datasource.DataSource
	validator  *security.Validator
	dispatcher events.Dispatcher
	bcryptCost int
	logger     *zap.Logger
}

func NewUserService(data datasource.DataSource, validator *security.Validator, dispatcher events.Dispatcher, bcryptCost int, logger *zap.Logger) *UserService {
	return &UserService{
		data:       data,
		validator:  validator,
		dispatcher: dispatcher,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// CreateUser runs the security validation gauntlet and, on success,
// writes the new user through the facade and announces it.
func (s *UserService) CreateUser(ctx context.Context, requestingUserID string, params CreateUserParams, rc security.RequestContext) (*domain.User, error) {
	if strings.TrimSpace(params.Password) == "" {
		return nil, util.NewValidationError("Password is required", nil)
	}
	hashed, err := auth.HashPassword(params.Password, s.bcryptCost)
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	input := datasource.CreateUserInput{
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Email:        params.Email,
		Phone:        params.Phone,
		DateOfBirth:  params.DateOfBirth,
		Role:         params.Role,
		PasswordHash: hashed,
	}

	result := s.validator.ValidateUserCreation(ctx, requestingUserID, input, rc)
	if !result.IsValid {
		return nil, creationError(result)
	}

	user, err := s.data.CreateUser(ctx, input)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user created",
		zap.String("user_id", user.ID),
		zap.String("requesting_user_id", requestingUserID),
		zap.String("source", s.data.Source()),
	)
	_ = s.dispatcher.Publish(ctx, events.Event{
		Type:   events.EventUserCreated,
		UserID: user.ID,
		Payload: events.UserCreatedPayload{
			Email:  user.Email,
			Role:   user.Role,
			Source: s.data.Source(),
		},
	})
	return user, nil
}

// creationError maps a failed validation to the matching API error.
func creationError(result security.ValidationResult) error {
	msg := strings.Join(result.Issues, "; ")
	switch {
	case result.RiskLevel == domain.RiskHigh:
		return util.NewForbidden(msg)
	case strings.HasPrefix(msg, "Too many"):
		return util.NewRateLimited(msg)
	case strings.Contains(msg, "already exists"):
		return util.NewConflict(msg, nil)
	default:
		return util.NewValidationError(msg, map[string]any{"issues": result.Issues})
	}
}

// GetUsers lists users, optionally restricted to active accounts.
func (s *UserService) GetUsers(ctx context.Context, activeOnly bool) ([]domain.User, error) {
	return s.data.GetAllUsers(ctx, activeOnly)
}

// GetUser returns one user or a not-found error.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.data.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, util.NewNotFound("user", map[string]any{"id": id})
	}
	return user, nil
}

// UpdateUser applies a partial update after the modification
// authorization check.
func (s *UserService) UpdateUser(ctx context.Context, requestingUserID, targetUserID string, input datasource.UpdateUserInput, rc security.RequestContext) (*domain.User, error) {
	if !s.validator.ValidateModificationAuthorization(ctx, requestingUserID, targetUserID, rc) {
		return nil, util.NewForbidden("insufficient permissions to modify this user")
	}
	return s.data.UpdateUser(ctx, targetUserID, input)
}

// DeleteUser removes (or deactivates, depending on the backing store) the
// target account after the modification authorization check.
func (s *UserService) DeleteUser(ctx context.Context, requestingUserID, targetUserID string, rc security.RequestContext) error {
	if !s.validator.ValidateModificationAuthorization(ctx, requestingUserID, targetUserID, rc) {
		return util.NewForbidden("insufficient permissions to delete this user")
	}
	deleted, err := s.data.DeleteUser(ctx, targetUserID)
	if err != nil {
		return err
	}
	if !deleted {
		return util.NewNotFound("user", map[string]any{"id": targetUserID})
	}
	return nil
}

// SearchUsers matches the term against names and email addresses.
func (s *UserService) SearchUsers(ctx context.Context, term string) ([]domain.User, error) {
	return s.data.SearchUsers(ctx, term)
}
