package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/user-sync-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	manager := NewTokenManager("secret", 10*time.Minute)
	user := &domain.User{ID: "user-1", Role: domain.RoleManager}

	token, expiresAt, err := manager.Issue(user)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := manager.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, domain.RoleManager, claims.Role)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", 10*time.Minute)
	verifier := NewTokenManager("secret-b", 10*time.Minute)

	token, _, err := issuer.Issue(&domain.User{ID: "user-1", Role: domain.RoleUser})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.Error(t, err)
}

func TestTokenRejectsExpired(t *testing.T) {
	manager := NewTokenManager("secret", -time.Minute)

	token, _, err := manager.Issue(&domain.User{ID: "user-1", Role: domain.RoleUser})
	require.NoError(t, err)

	_, err = manager.Verify(token)
	assert.Error(t, err)
}

func TestTokenRejectsGarbage(t *testing.T) {
	manager := NewTokenManager("secret", 10*time.Minute)

	_, err := manager.Verify("not.a.token")
	assert.Error(t, err)
}

func TestHashPasswordClampsCost(t *testing.T) {
	hashed, err := HashPassword("pw12345678", 99)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hashed, "pw12345678"))
	assert.Error(t, ComparePassword(hashed, "different"))
}
