package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/user-sync-service/internal/domain"
	"github.com/spec-kit/user-sync-service/pkg/util"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "staging-users.json")
	return NewStore(path, time.Minute, zap.NewNop())
}

func stagedUser(email string) domain.User {
	return domain.User{
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		DateOfBirth:  time.Date(1990, 5, 15, 0, 0, 0, 0, time.UTC),
		Role:         domain.RoleUser,
		IsActive:     true,
		PasswordHash: "$2a$10$hash",
	}
}

func TestStoreAddAssignsIDAndPersists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Add(ctx, stagedUser("new@example.com"))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	// A fresh store over the same file must see the record.
	reopened := NewStore(store.path, time.Minute, zap.NewNop())
	found, err := reopened.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "new@example.com", found.Email)
}

func TestStoreAddRejectsDuplicateEmailCaseInsensitive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, stagedUser("dup@example.com"))
	require.NoError(t, err)

	_, err = store.Add(ctx, stagedUser("DUP@EXAMPLE.COM"))
	require.Error(t, err)
	assert.True(t, util.IsCode(err, "CONFLICT"))
}

func TestStoreGetByEmailIsCaseInsensitive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, stagedUser("Mixed@Example.com"))
	require.NoError(t, err)

	found, err := store.GetByEmail(ctx, "mixed@example.COM")
	require.NoError(t, err)
	require.NotNil(t, found)
}

func TestStoreGetByIDMissingReturnsNil(t *testing.T) {
	store := newTestStore(t)

	found, err := store.GetByID(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestStoreUpdateKeepsPasswordHashWhenOmitted(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Add(ctx, stagedUser("keep@example.com"))
	require.NoError(t, err)

	updated := *created
	updated.FirstName = "Renamed"
	updated.PasswordHash = ""
	result, err := store.Update(ctx, created.ID, updated)
	require.NoError(t, err)

	assert.Equal(t, "Renamed", result.FirstName)
	assert.Equal(t, created.PasswordHash, result.PasswordHash)
}

func TestStoreUpdateRejectsEmailOfDifferentUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, stagedUser("a@example.com"))
	require.NoError(t, err)
	second, err := store.Add(ctx, stagedUser("b@example.com"))
	require.NoError(t, err)

	conflicting := *second
	conflicting.Email = "a@example.com"
	_, err = store.Update(ctx, second.ID, conflicting)
	require.Error(t, err)
	assert.True(t, util.IsCode(err, "CONFLICT"))
}

func TestStoreUpdateMissingReturnsNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Update(context.Background(), "absent", stagedUser("x@example.com"))
	require.Error(t, err)
	assert.True(t, util.IsCode(err, "NOT_FOUND"))
}

func TestStoreUpdateMissingIDWithTakenEmailReturnsNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, stagedUser("taken@example.com"))
	require.NoError(t, err)

	// Absence of the id wins over the email collision.
	_, err = store.Update(ctx, "absent", stagedUser("taken@example.com"))
	require.Error(t, err)
	assert.True(t, util.IsCode(err, "NOT_FOUND"))
}

func TestStoreUpdateKeepsCacheWhenWriteFails(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Add(ctx, stagedUser("stable@example.com"))
	require.NoError(t, err)

	// A directory at the temp path makes the next write fail.
	require.NoError(t, os.Mkdir(store.path+".tmp", 0o755))

	renamed := *created
	renamed.FirstName = "Renamed"
	_, err = store.Update(ctx, created.ID, renamed)
	require.Error(t, err)
	assert.True(t, util.IsCode(err, "STORE_UNAVAILABLE"))

	found, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Test", found.FirstName)
}

func TestStoreDeleteKeepsCacheWhenWriteFails(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Add(ctx, stagedUser("a@example.com"))
	require.NoError(t, err)
	_, err = store.Add(ctx, stagedUser("b@example.com"))
	require.NoError(t, err)

	require.NoError(t, os.Mkdir(store.path+".tmp", 0o755))

	_, err = store.Delete(ctx, first.ID)
	require.Error(t, err)
	assert.True(t, util.IsCode(err, "STORE_UNAVAILABLE"))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	found, err := store.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
}

func TestStoreDeleteReportsExistence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Add(ctx, stagedUser("gone@example.com"))
	require.NoError(t, err)

	deleted, err := store.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestStoreInitializeDefaultsSeedsOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InitializeDefaults(ctx))

	users, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, users, 4)

	admin, err := store.GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, domain.RoleAdmin, admin.Role)

	// Seeding again must not duplicate or reset records.
	_, err = store.Add(ctx, stagedUser("extra@example.com"))
	require.NoError(t, err)
	require.NoError(t, store.InitializeDefaults(ctx))

	users, err = store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 5)
}

func TestStoreGetAllOnMissingFileReturnsEmpty(t *testing.T) {
	store := newTestStore(t)

	users, err := store.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestStoreRejectsCancelledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Add(ctx, stagedUser("late@example.com"))
	assert.ErrorIs(t, err, context.Canceled)
}
