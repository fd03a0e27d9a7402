package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/user-sync-service/internal/domain"
)

// MemoryUserRepository is an in-process primary store used when no
// Postgres DSN is configured, and by tests. It honors the same contract
// as the Postgres implementation: nil result for missing records.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewMemoryUserRepository builds an empty in-memory store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]domain.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return ErrNotFound
	}
	user.UpdatedAt = time.Now().UTC()
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if user, ok := r.users[id]; ok {
		copied := user
		return &copied, nil
	}
	return nil, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			copied := user
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *MemoryUserRepository) Search(_ context.Context, term string) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	term = strings.ToLower(strings.TrimSpace(term))
	var users []domain.User
	for _, user := range r.users {
		if term == "" ||
			strings.Contains(strings.ToLower(user.FirstName), term) ||
			strings.Contains(strings.ToLower(user.LastName), term) ||
			strings.Contains(strings.ToLower(user.Email), term) {
			users = append(users, user)
		}
	}
	return users, nil
}

// Len reports how many records the store holds.
func (r *MemoryUserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
