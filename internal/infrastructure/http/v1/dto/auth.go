package dto

import (
	"time"

	"printq/internal/domain/auth"
)

// LoginRequest for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ToCredentials converts to domain credentials.
func (r LoginRequest) ToCredentials() auth.Credentials {
	return auth.Credentials{Email: r.Email, Password: r.Password}
}

// UserResponse is the public user shape.
type UserResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName,omitempty"`
	Role     string `json:"role"`
}

// FromUser creates a UserResponse.
func FromUser(u *auth.User) UserResponse {
	return UserResponse{
		ID:       u.ID.String(),
		Email:    u.Email,
		FullName: u.FullName,
		Role:     string(u.Role),
	}
}

// LoginResponse for successful login.
type LoginResponse struct {
	AccessToken string       `json:"accessToken"`
	TokenType   string       `json:"tokenType"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	User        UserResponse `json:"user"`
}
