// Package auth_repo provides the PostgreSQL implementation of the user
// repository.
package auth_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"printq/internal/core/apperror"
	"printq/internal/core/id"
	"printq/internal/domain/auth"
	"printq/internal/infrastructure/storage/postgres"
)

const userCols = `id, email, password_hash, full_name, role, is_active,
	last_login_at, failed_login_attempts, locked_until,
	created_at, updated_at, version`

// UserRepo implements auth.Repository.
type UserRepo struct {
	txManager *postgres.TxManager
}

// NewUserRepo creates a new user repository.
func NewUserRepo(txManager *postgres.TxManager) *UserRepo {
	return &UserRepo{txManager: txManager}
}

// Create creates a new user.
func (r *UserRepo) Create(ctx context.Context, user *auth.User) error {
	q := r.txManager.GetQuerier(ctx)

	query := `
		INSERT INTO users (
			id, email, password_hash, full_name, role, is_active,
			created_at, updated_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := q.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FullName,
		user.Role, user.IsActive, user.CreatedAt, user.UpdatedAt, user.Version,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

func (r *UserRepo) getBy(ctx context.Context, cond string, arg any) (*auth.User, error) {
	q := r.txManager.GetQuerier(ctx)

	query := fmt.Sprintf("SELECT %s FROM users WHERE %s", userCols, cond)

	var user auth.User
	err := q.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName,
		&user.Role, &user.IsActive, &user.LastLoginAt,
		&user.FailedLoginAttempts, &user.LockedUntil,
		&user.CreatedAt, &user.UpdatedAt, &user.Version,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NewNotFound("user", fmt.Sprintf("%v", arg))
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	return r.getBy(ctx, "id = $1", userID)
}

// GetByEmail retrieves a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.getBy(ctx, "email = $1", email)
}

// Update updates user data with optimistic locking.
func (r *UserRepo) Update(ctx context.Context, user *auth.User) error {
	q := r.txManager.GetQuerier(ctx)

	query := `
		UPDATE users
		SET email = $2, password_hash = $3, full_name = $4, role = $5,
			is_active = $6, last_login_at = $7, failed_login_attempts = $8,
			locked_until = $9, updated_at = NOW(), version = version + 1
		WHERE id = $1 AND version = $10
	`

	result, err := q.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FullName, user.Role,
		user.IsActive, user.LastLoginAt, user.FailedLoginAttempts,
		user.LockedUntil, user.Version,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("user", user.ID.String())
	}

	user.Version++
	return nil
}

// Exists checks whether an email is taken.
func (r *UserRepo) Exists(ctx context.Context, email string) (bool, error) {
	q := r.txManager.GetQuerier(ctx)

	var exists int
	err := q.QueryRow(ctx, "SELECT 1 FROM users WHERE email = $1 LIMIT 1", email).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query user exists: %w", err)
	}

	return true, nil
}

var _ auth.Repository = (*UserRepo)(nil)
