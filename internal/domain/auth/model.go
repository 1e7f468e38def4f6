// Package auth provides authentication for sellers and supervisors.
package auth

import (
	"context"
	"time"

	"printq/internal/core/apperror"
	"printq/internal/core/id"
	"printq/internal/core/security"
)

// User is a system user. Each user carries exactly one role from the closed
// set sales/supervisor/admin.
type User struct {
	ID                  id.ID         `db:"id" json:"id"`
	Email               string        `db:"email" json:"email"`
	PasswordHash        string        `db:"password_hash" json:"-"`
	FullName            string        `db:"full_name" json:"fullName,omitempty"`
	Role                security.Role `db:"role" json:"role"`
	IsActive            bool          `db:"is_active" json:"isActive"`
	LastLoginAt         *time.Time    `db:"last_login_at" json:"lastLoginAt,omitempty"`
	FailedLoginAttempts int           `db:"failed_login_attempts" json:"-"`
	LockedUntil         *time.Time    `db:"locked_until" json:"-"`
	CreatedAt           time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time     `db:"updated_at" json:"updatedAt"`
	Version             int           `db:"version" json:"version"`
}

// NewUser creates an active user.
func NewUser(email, passwordHash string, role security.Role) *User {
	now := time.Now().UTC()
	return &User{
		ID:           id.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
}

// Validate checks user invariants.
func (u *User) Validate(ctx context.Context) error {
	if u.Email == "" {
		return apperror.NewValidation("email is required").WithDetail("field", "email")
	}
	if _, ok := security.ParseRole(string(u.Role)); !ok {
		return apperror.NewValidation("unknown role").WithDetail("role", string(u.Role))
	}
	return nil
}

// IsLocked reports whether the account is under a login lockout.
func (u *User) IsLocked() bool {
	if u.LockedUntil == nil {
		return false
	}
	return time.Now().Before(*u.LockedUntil)
}

// CanLogin checks whether the account may authenticate at all.
func (u *User) CanLogin() error {
	if !u.IsActive {
		return apperror.NewForbidden("account is disabled")
	}
	if u.IsLocked() {
		return apperror.NewForbidden("account is temporarily locked")
	}
	return nil
}

// RecordFailedLogin increments the failure counter and locks the account
// once the limit is reached.
func (u *User) RecordFailedLogin(maxAttempts int, lockDuration time.Duration) {
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= maxAttempts {
		lockUntil := time.Now().Add(lockDuration)
		u.LockedUntil = &lockUntil
	}
}

// RecordSuccessfulLogin resets the failure counter.
func (u *User) RecordSuccessfulLogin() {
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	now := time.Now().UTC()
	u.LastLoginAt = &now
}

// Token is an issued access token.
type Token struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	TokenType   string    `json:"tokenType"`
}

// Credentials for login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateUserRequest provisions a user (admin operation and seeding).
type CreateUserRequest struct {
	Email    string        `json:"email"`
	Password string        `json:"password"`
	FullName string        `json:"fullName,omitempty"`
	Role     security.Role `json:"role"`
}
