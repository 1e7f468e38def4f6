package auth

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"printq/internal/core/apperror"
	"printq/internal/core/id"
	"printq/pkg/logger"
)

// Config holds authentication policy.
type Config struct {
	MaxLoginAttempts  int
	LockoutDuration   time.Duration
	PasswordMinLength int
	BCryptCost        int
}

// DefaultConfig returns default auth policy.
func DefaultConfig() Config {
	return Config{
		MaxLoginAttempts:  5,
		LockoutDuration:   15 * time.Minute,
		PasswordMinLength: 8,
		BCryptCost:        bcrypt.DefaultCost,
	}
}

// Service implements authentication and user provisioning.
type Service struct {
	users  Repository
	tokens *JWTService
	config Config
}

// NewService creates an auth service.
func NewService(users Repository, tokens *JWTService, config Config) *Service {
	if config.MaxLoginAttempts <= 0 {
		config.MaxLoginAttempts = 5
	}
	if config.LockoutDuration <= 0 {
		config.LockoutDuration = 15 * time.Minute
	}
	if config.PasswordMinLength <= 0 {
		config.PasswordMinLength = 8
	}
	if config.BCryptCost <= 0 {
		config.BCryptCost = bcrypt.DefaultCost
	}
	return &Service{users: users, tokens: tokens, config: config}
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, creds Credentials) (*Token, *User, error) {
	user, err := s.verify(ctx, creds.Email, creds.Password)
	if err != nil {
		return nil, nil, err
	}

	token, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, nil, apperror.NewInternal(err)
	}

	logger.Info(ctx, "user logged in", "user_id", user.ID, "role", user.Role)
	return token, user, nil
}

// VerifyCredentials checks an email/password pair without issuing a token.
// Used for supervisor sign-off on discounted quotes.
func (s *Service) VerifyCredentials(ctx context.Context, email, password string) (*User, error) {
	return s.verify(ctx, email, password)
}

func (s *Service) verify(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}

	if err := user.CanLogin(); err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		user.RecordFailedLogin(s.config.MaxLoginAttempts, s.config.LockoutDuration)
		if updErr := s.users.Update(ctx, user); updErr != nil {
			logger.Warn(ctx, "failed to record login failure", "error", updErr)
		}
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	user.RecordSuccessfulLogin()
	if err := s.users.Update(ctx, user); err != nil {
		logger.Warn(ctx, "failed to record login success", "error", err)
	}
	return user, nil
}

// CreateUser provisions a user. Passwords are hashed with bcrypt.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, apperror.NewValidation("email is required").WithDetail("field", "email")
	}
	if len(req.Password) < s.config.PasswordMinLength {
		return nil, apperror.NewValidation("password is too short").
			WithDetail("minLength", s.config.PasswordMinLength)
	}

	taken, err := s.users.Exists(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperror.NewConflict("email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BCryptCost)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	user := NewUser(email, string(hash), req.Role)
	user.FullName = strings.TrimSpace(req.FullName)
	if err := user.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	logger.Info(ctx, "user created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// GetUser returns a user by id.
func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	uid, err := id.Parse(userID)
	if err != nil {
		return nil, apperror.NewValidation("invalid user id")
	}
	return s.users.GetByID(ctx, uid)
}
