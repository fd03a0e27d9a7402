package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/user-sync-service/internal/datasource"
	"github.com/spec-kit/user-sync-service/internal/domain"
	"github.com/spec-kit/user-sync-service/internal/events"
	"github.com/spec-kit/user-sync-service/internal/repository"
	"github.com/spec-kit/user-sync-service/internal/security"
	"github.com/spec-kit/user-sync-service/pkg/util"
)

type userFixture struct {
	service *UserService
	primary *repository.MemoryUserRepository
	created *eventCounter
	admin   domain.User
	regular domain.User
	rc      security.RequestContext
}

type eventCounter struct {
	mu    sync.Mutex
	count int
}

func (c *eventCounter) handle(context.Context, events.Event) error {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
	return nil
}

func (c *eventCounter) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	ctx := context.Background()

	primary := repository.NewMemoryUserRepository()
	admin := domain.User{
		FirstName: "Ada", LastName: "Admin", Email: "ada@example.com",
		DateOfBirth: time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC),
		Role:        domain.RoleAdmin, IsActive: true, PasswordHash: "$2a$10$hash",
	}
	regular := domain.User{
		FirstName: "Reg", LastName: "User", Email: "reg@example.com",
		DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		Role:        domain.RoleUser, IsActive: true, PasswordHash: "$2a$10$hash",
	}
	require.NoError(t, primary.Create(ctx, &admin))
	require.NoError(t, primary.Create(ctx, &regular))

	data, err := datasource.New(datasource.StrategyPrimaryOnly, primary, nil, false, zap.NewNop())
	require.NoError(t, err)

	dispatcher := events.NewInMemoryDispatcher()
	counter := &eventCounter{}
	dispatcher.Subscribe(events.EventUserCreated, counter.handle)

	audit := security.NewAuditService(zap.NewNop(), dispatcher)
	validator := security.NewValidator(data, audit,
		security.NewSlidingWindowLimiter(3, time.Hour),
		security.NewSlidingWindowLimiter(10, time.Hour),
		zap.NewNop())

	return &userFixture{
		service: NewUserService(data, validator, dispatcher, testBcryptCost, zap.NewNop()),
		primary: primary,
		created: counter,
		admin:   admin,
		regular: regular,
		rc:      security.RequestContext{IPAddress: "10.0.0.1"},
	}
}

func validParams(email string) CreateUserParams {
	return CreateUserParams{
		FirstName:   "New",
		LastName:    "Person",
		Email:       email,
		DateOfBirth: time.Date(1995, 6, 1, 0, 0, 0, 0, time.UTC),
		Role:        domain.RoleUser,
		Password:    "pw12345678",
	}
}

func TestCreateUserStoresHashedCredentialAndPublishes(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	user, err := f.service.CreateUser(ctx, f.admin.ID, validParams("new@example.com"), f.rc)
	require.NoError(t, err)
	assert.NotEqual(t, "pw12345678", user.PasswordHash)
	assert.NotEmpty(t, user.PasswordHash)
	assert.True(t, user.IsActive)

	stored, err := f.primary.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 1, f.created.total())
}

func TestCreateUserByRegularUserForbidden(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.service.CreateUser(context.Background(), f.regular.ID, validParams("x@example.com"), f.rc)
	require.Error(t, err)
	assert.True(t, util.IsCode(err, "FORBIDDEN"))
	assert.Equal(t, 0, f.created.total())
}

func TestCreateUserDuplicateEmailConflicts(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.service.CreateUser(context.Background(), f.admin.ID, validParams("reg@example.com"), f.rc)
	require.Error(t, err)
	assert.True(t, util.IsCode(err, "CONFLICT"))
}

func TestCreateUserRateLimitMapsTo429(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.service.CreateUser(ctx, f.admin.ID, validParams("same@example.com"), f.rc)
	}
	_, err := f.service.CreateUser(ctx, f.admin.ID, validParams("fourth@example.com"), f.rc)
	require.Error(t, err)
	assert.True(t, util.IsCode(err, "RATE_LIMITED"))
}

func TestCreateUserMissingPassword(t *testing.T) {
	f := newUserFixture(t)

	params := validParams("nopw@example.com")
	params.Password = ""
	_, err := f.service.CreateUser(context.Background(), f.admin.ID, params, f.rc)
	require.Error(t, err)
	assert.True(t, util.IsCode(err, "VALIDATION_FAILED"))
}

func TestDeleteUserDeactivatesPrimaryRecord(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.DeleteUser(ctx, f.admin.ID, f.regular.ID, f.rc))

	stored, err := f.primary.GetByID(ctx, f.regular.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.False(t, stored.IsActive)
}

func TestDeleteUserByNonManagerForbidden(t *testing.T) {
	f := newUserFixture(t)

	err := f.service.DeleteUser(context.Background(), f.regular.ID, f.admin.ID, f.rc)
	require.Error(t, err)
	assert.True(t, util.IsCode(err, "FORBIDDEN"))
}

func TestUpdateUserSelfAllowed(t *testing.T) {
	f := newUserFixture(t)

	updated, err := f.service.UpdateUser(context.Background(), f.regular.ID, f.regular.ID,
		datasource.UpdateUserInput{FirstName: "Renamed", LastName: f.regular.LastName}, f.rc)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.FirstName)
}

func TestGetUserMissingReturnsNotFound(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.service.GetUser(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, util.IsCode(err, "NOT_FOUND"))
}
