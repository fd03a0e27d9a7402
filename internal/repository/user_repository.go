package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/user-sync-service/internal/domain"
)

// ErrNotFound reports an update against a record the primary store does
// not hold. Lookups never return it; they yield a nil user instead.
var ErrNotFound = errors.New("user not found in primary store")

// UserRepository is the adapter over the primary (system-of-record) user
// store. Missing records are reported as a nil user with a nil error;
// errors are reserved for infrastructure failure, except ErrNotFound on
// Update.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Search matches first name, last name and email case-insensitively.
	// An empty term returns every record.
	Search(ctx context.Context, term string) ([]domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, first_name, last_name, email, phone, date_of_birth, role, is_active, password_hash, created_at, updated_at`

// Create inserts the user. A caller-supplied ID is preserved, so records
// migrated from the staging store keep their identity; otherwise the
// database assigns one.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (id, first_name, last_name, email, phone, date_of_birth, role, is_active, password_hash)
        VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.ID,
		user.FirstName,
		user.LastName,
		user.Email,
		user.Phone,
		user.DateOfBirth,
		user.Role,
		user.IsActive,
		user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET first_name=$1, last_name=$2, email=$3, phone=$4,
               date_of_birth=$5, role=$6, is_active=$7, password_hash=$8, updated_at=NOW()
        WHERE id=$9`

	cmd, err := r.pool.Exec(ctx, query,
		user.FirstName,
		user.LastName,
		user.Email,
		user.Phone,
		user.DateOfBirth,
		user.Role,
		user.IsActive,
		user.PasswordHash,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return r.queryOne(ctx, query, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE LOWER(email)=LOWER($1)`
	return r.queryOne(ctx, query, email)
}

func (r *userRepository) Search(ctx context.Context, term string) ([]domain.User, error) {
	const query = `
        SELECT ` + userColumns + ` FROM users
        WHERE $1 = ''
           OR first_name ILIKE '%' || $1 || '%'
           OR last_name ILIKE '%' || $1 || '%'
           OR email ILIKE '%' || $1 || '%'
        ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, strings.TrimSpace(term))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		if err := scanUser(rows, &user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *userRepository) queryOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := scanUser(r.pool.QueryRow(ctx, query, arg), &user); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func scanUser(row pgx.Row, user *domain.User) error {
	return row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.Phone,
		&user.DateOfBirth,
		&user.Role,
		&user.IsActive,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}
