package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/user-sync-service/internal/auth"
	"github.com/spec-kit/user-sync-service/internal/datasource"
	"github.com/spec-kit/user-sync-service/internal/domain"
	"github.com/spec-kit/user-sync-service/internal/events"
	"github.com/spec-kit/user-sync-service/internal/repository"
	"github.com/spec-kit/user-sync-service/internal/security"
	"github.com/spec-kit/user-sync-service/pkg/util"
)

const testBcryptCost = 4

type authFixture struct {
	service *AuthService
	audit   *security.AuditService
	tokens  *auth.TokenManager
	user    domain.User
	rc      security.RequestContext
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	ctx := context.Background()

	primary := repository.NewMemoryUserRepository()
	hash, err := auth.HashPassword("correct horse", testBcryptCost)
	require.NoError(t, err)

	user := domain.User{
		FirstName: "Lia", LastName: "Login", Email: "lia@example.com",
		DateOfBirth: time.Date(1991, 7, 8, 0, 0, 0, 0, time.UTC),
		Role:        domain.RoleUser, IsActive: true, PasswordHash: hash,
	}
	require.NoError(t, primary.Create(ctx, &user))

	data, err := datasource.New(datasource.StrategyPrimaryOnly, primary, nil, false, zap.NewNop())
	require.NoError(t, err)

	audit := security.NewAuditService(zap.NewNop(), events.NewInMemoryDispatcher())
	validator := security.NewValidator(data, audit,
		security.NewSlidingWindowLimiter(100, time.Hour),
		security.NewSlidingWindowLimiter(100, time.Hour),
		zap.NewNop())
	tokens := auth.NewTokenManager("test-secret", 15*time.Minute)

	return &authFixture{
		service: NewAuthService(data, tokens, validator, testBcryptCost, zap.NewNop()),
		audit:   audit,
		tokens:  tokens,
		user:    user,
		rc:      security.RequestContext{IPAddress: "10.0.0.1"},
	}
}

func (f *authFixture) auditedTypes() []domain.SecurityEventType {
	var types []domain.SecurityEventType
	for _, e := range f.audit.Events(time.Time{}, time.Time{}) {
		types = append(types, e.Type)
	}
	return types
}

func TestLoginSuccessIssuesVerifiableToken(t *testing.T) {
	f := newAuthFixture(t)

	result, err := f.service.Login(context.Background(), "lia@example.com", "correct horse", f.rc)
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	assert.True(t, result.ExpiresAt.After(time.Now()))

	claims, err := f.tokens.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, claims.UserID)
	assert.Equal(t, domain.RoleUser, claims.Role)

	assert.Contains(t, f.auditedTypes(), domain.EventLoginSuccess)
}

func TestLoginWrongPasswordAuditedAndOpaque(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.Login(context.Background(), "lia@example.com", "wrong", f.rc)
	require.Error(t, err)
	assert.True(t, util.IsCode(err, "UNAUTHORIZED"))
	assert.Contains(t, f.auditedTypes(), domain.EventLoginFailed)
}

func TestLoginUnknownEmailSameError(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.Login(context.Background(), "nobody@example.com", "whatever", f.rc)
	require.Error(t, err)
	// The reply must not reveal whether the account exists.
	assert.Equal(t, util.ToDomainError(err).Message, "invalid email or password")
	assert.Contains(t, f.auditedTypes(), domain.EventLoginFailed)
}

func TestLoginInactiveAccountRejected(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	primary := repository.NewMemoryUserRepository()
	hash, err := auth.HashPassword("pw12345678", testBcryptCost)
	require.NoError(t, err)
	inactive := domain.User{
		FirstName: "Ina", LastName: "Active", Email: "ina@example.com",
		Role: domain.RoleUser, IsActive: false, PasswordHash: hash,
	}
	require.NoError(t, primary.Create(ctx, &inactive))

	data, err := datasource.New(datasource.StrategyPrimaryOnly, primary, nil, false, zap.NewNop())
	require.NoError(t, err)
	validator := security.NewValidator(data, f.audit,
		security.NewSlidingWindowLimiter(100, time.Hour),
		security.NewSlidingWindowLimiter(100, time.Hour),
		zap.NewNop())
	svc := NewAuthService(data, f.tokens, validator, testBcryptCost, zap.NewNop())

	_, err = svc.Login(ctx, "ina@example.com", "pw12345678", f.rc)
	require.Error(t, err)
	assert.True(t, util.IsCode(err, "UNAUTHORIZED"))
}

func TestChangePasswordRotatesHash(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	err := f.service.ChangePassword(ctx, f.user.ID, f.user.ID, "correct horse", "battery staple", f.rc)
	require.NoError(t, err)

	_, err = f.service.Login(ctx, "lia@example.com", "correct horse", f.rc)
	require.Error(t, err)

	result, err := f.service.Login(ctx, "lia@example.com", "battery staple", f.rc)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	assert.Contains(t, f.auditedTypes(), domain.EventPasswordChanged)
}

func TestChangePasswordRejectsWrongCurrent(t *testing.T) {
	f := newAuthFixture(t)

	err := f.service.ChangePassword(context.Background(), f.user.ID, f.user.ID, "wrong", "battery staple", f.rc)
	require.Error(t, err)
	assert.True(t, util.IsCode(err, "UNAUTHORIZED"))
}

func TestChangePasswordRejectsShortReplacement(t *testing.T) {
	f := newAuthFixture(t)

	err := f.service.ChangePassword(context.Background(), f.user.ID, f.user.ID, "correct horse", "short", f.rc)
	require.Error(t, err)
	assert.True(t, util.IsCode(err, "VALIDATION_FAILED"))
}

func TestChangePasswordForOtherUserRequiresManagementRole(t *testing.T) {
	f := newAuthFixture(t)

	err := f.service.ChangePassword(context.Background(), f.user.ID, "someone-else", "correct horse", "battery staple", f.rc)
	require.Error(t, err)
	assert.True(t, util.IsCode(err, "FORBIDDEN"))
	assert.Contains(t, f.auditedTypes(), domain.EventUnauthorizedUserModification)
}
