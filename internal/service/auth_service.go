package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/user-sync-service/internal/auth"
	"github.com/spec-kit/user-sync-service/internal/datasource"
	"github.com/spec-kit/user-sync-service/internal/domain"
	"github.com/spec-kit/user-sync-service/internal/security"
	"github.com/spec-kit/user-sync-service/pkg/util"
)

// LoginResult is a successful authentication outcome.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// AuthService authenticates users against the data source facade and
// feeds login outcomes into the security audit log.
type AuthService struct {
	data       datasource.DataSource
	tokens     *auth.TokenManager
	validator  *security.Validator
	bcryptCost int
	logger     *zap.Logger
}

func NewAuthService(data datasource.DataSource, tokens *auth.TokenManager, validator *security.Validator, bcryptCost int, logger *zap.Logger) *AuthService {
	return &AuthService{
		data:       data,
		tokens:     tokens,
		validator:  validator,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Login verifies the credentials and issues an access token. Both success
// and failure are recorded as security events; the failure reply never
// reveals whether the account exists.
func (s *AuthService) Login(ctx context.Context, email, password string, rc security.RequestContext) (*LoginResult, error) {
	user, err := s.data.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if user == nil || !user.IsActive || auth.ComparePassword(user.PasswordHash, password) != nil {
		userID := ""
		if user != nil {
			userID = user.ID
		}
		s.validator.LogSecurityEvent(domain.SecurityEvent{
			Type:      domain.EventLoginFailed,
			UserID:    userID,
			IPAddress: rc.IPAddress,
			UserAgent: rc.UserAgent,
			SessionID: rc.SessionID,
			Details:   "login failed for " + email,
			RiskLevel: domain.RiskMedium,
		})
		return nil, util.NewUnauthorized("invalid email or password")
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	s.validator.LogSecurityEvent(domain.SecurityEvent{
		Type:      domain.EventLoginSuccess,
		UserID:    user.ID,
		IPAddress: rc.IPAddress,
		UserAgent: rc.UserAgent,
		SessionID: rc.SessionID,
		Details:   "login succeeded",
		RiskLevel: domain.RiskLow,
	})
	s.logger.Info("user logged in", zap.String("user_id", user.ID))

	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// ChangePassword rotates the password of targetUserID after verifying the
// current one. The caller must be the account owner or hold a management
// role.
func (s *AuthService) ChangePassword(ctx context.Context, requestingUserID, targetUserID, currentPassword, newPassword string, rc security.RequestContext) error {
	if !s.validator.ValidateModificationAuthorization(ctx, requestingUserID, targetUserID, rc) {
		return util.NewForbidden("insufficient permissions to modify this user")
	}

	user, err := s.data.GetUserByID(ctx, targetUserID)
	if err != nil {
		return err
	}
	if user == nil {
		return util.NewNotFound("user", map[string]any{"id": targetUserID})
	}

	if auth.ComparePassword(user.PasswordHash, currentPassword) != nil {
		s.validator.LogSecurityEvent(domain.SecurityEvent{
			Type:      domain.EventLoginFailed,
			UserID:    targetUserID,
			IPAddress: rc.IPAddress,
			UserAgent: rc.UserAgent,
			SessionID: rc.SessionID,
			Details:   "password change rejected, current password mismatch",
			RiskLevel: domain.RiskMedium,
		})
		return util.NewUnauthorized("current password is incorrect")
	}

	if len(newPassword) < 8 {
		return util.NewValidationError("new password must be at least 8 characters", nil)
	}

	hashed, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return util.NewInternalError(err)
	}

	update := datasource.UpdateUserInput{
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Phone:        user.Phone,
		DateOfBirth:  user.DateOfBirth,
		PasswordHash: hashed,
	}
	if _, err := s.data.UpdateUser(ctx, targetUserID, update); err != nil {
		return err
	}

	s.validator.LogSecurityEvent(domain.SecurityEvent{
		Type:      domain.EventPasswordChanged,
		UserID:    targetUserID,
		IPAddress: rc.IPAddress,
		UserAgent: rc.UserAgent,
		SessionID: rc.SessionID,
		Details:   "password changed",
		RiskLevel: domain.RiskLow,
	})
	return nil
}
