// Package staging implements the file-backed staging user store: seed and
// fallback data held in a single JSON collection that is rewritten
// wholesale on every mutation.
package staging

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/user-sync-service/internal/domain"
	"github.com/spec-kit/user-sync-service/pkg/util"
)

// Store is a durable key-value style repository of user records backed by
// one JSON file. A per-store mutex serializes read-modify-write cycles;
// reads are served from an in-process cache invalidated after a TTL or
// immediately after any write.
type Store struct {
	path   string
	ttl    time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	cache   []domain.User
	cacheAt time.Time
}

// NewStore builds a store over the given file path. The file is created
// lazily on first write or seed.
func NewStore(path string, cacheTTL time.Duration, logger *zap.Logger) *Store {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Store{path: path, ttl: cacheTTL, logger: logger}
}

// GetAll returns every staged user. Read failures fall back to the last
// good cache, or an empty set; they are never surfaced to the caller.
func (s *Store) GetAll(ctx context.Context) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return copyUsers(s.loadLocked()), nil
}

// GetByID returns the staged user with the given id, or nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*domain.User, error) {
	users, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			return &users[i], nil
		}
	}
	return nil, nil
}

// GetByEmail returns the staged user with the given email, case-insensitively.
func (s *Store) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	users, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].EmailEquals(email) {
			return &users[i], nil
		}
	}
	return nil, nil
}

// Add appends a new user, rejecting duplicate emails with a Conflict.
func (s *Store) Add(ctx context.Context, user domain.User) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users := copyUsers(s.loadLocked())
	for i := range users {
		if users[i].EmailEquals(user.Email) {
			return nil, util.NewConflict(
				fmt.Sprintf("user with email %s already exists", user.Email),
				map[string]any{"email": user.Email})
		}
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	users = append(users, user)
	if err := s.saveLocked(users); err != nil {
		return nil, err
	}
	return &user, nil
}

// Update replaces the stored fields of the user with the given id. The
// new email must not collide with a different user.
func (s *Store) Update(ctx context.Context, id string, updated domain.User) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users := copyUsers(s.loadLocked())
	idx := -1
	for i := range users {
		if users[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, util.NewNotFound("staging user", map[string]any{"id": id})
	}
	for i := range users {
		if i != idx && users[i].EmailEquals(updated.Email) {
			return nil, util.NewConflict(
				fmt.Sprintf("user with email %s already exists", updated.Email),
				map[string]any{"email": updated.Email})
		}
	}

	existing := users[idx]
	existing.FirstName = updated.FirstName
	existing.LastName = updated.LastName
	existing.Email = updated.Email
	existing.Phone = updated.Phone
	existing.DateOfBirth = updated.DateOfBirth
	existing.Role = updated.Role
	existing.IsActive = updated.IsActive
	if updated.PasswordHash != "" {
		existing.PasswordHash = updated.PasswordHash
	}
	existing.UpdatedAt = time.Now().UTC()
	users[idx] = existing

	if err := s.saveLocked(users); err != nil {
		return nil, err
	}
	return &existing, nil
}

// Delete removes the user with the given id, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users := copyUsers(s.loadLocked())
	for i := range users {
		if users[i].ID == id {
			users = append(users[:i], users[i+1:]...)
			if err := s.saveLocked(users); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// Save atomically overwrites the whole collection.
func (s *Store) Save(ctx context.Context, users []domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(copyUsers(users))
}

// InitializeDefaults seeds the sample accounts exactly once: it is a no-op
// whenever the backing file already exists.
func (s *Store) InitializeDefaults(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return util.NewStoreUnavailable("staging", err)
	}

	users := defaultUsers()
	if err := s.saveLocked(users); err != nil {
		return err
	}
	s.logger.Info("seeded staging store defaults",
		zap.Int("count", len(users)), zap.String("path", s.path))
	return nil
}

// loadLocked reads the backing file, preferring a fresh cache. Callers
// must hold s.mu.
func (s *Store) loadLocked() []domain.User {
	if s.cache != nil && time.Since(s.cacheAt) < s.ttl {
		return s.cache
	}

	content, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("failed to read staging store, serving cache", zap.Error(err))
		}
		return s.cache
	}

	var users []domain.User
	if err := json.Unmarshal(content, &users); err != nil {
		s.logger.Error("failed to decode staging store, serving cache", zap.Error(err))
		return s.cache
	}

	s.cache = users
	s.cacheAt = time.Now()
	return s.cache
}

// saveLocked serializes the full collection to a temp file and renames it
// into place, so concurrent readers never observe a partial write.
// Callers must hold s.mu.
func (s *Store) saveLocked(users []domain.User) error {
	if users == nil {
		users = []domain.User{}
	}

	content, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return util.NewStoreUnavailable("staging", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return util.NewStoreUnavailable("staging", err)
		}
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, content, 0o644); err != nil {
		return util.NewStoreUnavailable("staging", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		return util.NewStoreUnavailable("staging", err)
	}

	s.cache = users
	s.cacheAt = time.Now()
	return nil
}

func copyUsers(users []domain.User) []domain.User {
	out := make([]domain.User, len(users))
	copy(out, users)
	return out
}
