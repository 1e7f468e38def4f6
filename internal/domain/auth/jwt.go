package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"printq/internal/core/apperror"
	appctx "printq/internal/core/context"
	"printq/internal/core/security"
)

// Claims carried inside an access token.
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTConfig configures token issuance.
type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
	Issuer         string
}

// DefaultJWTConfig returns sane defaults. The secret must still be provided.
func DefaultJWTConfig() JWTConfig {
	return JWTConfig{
		AccessTokenTTL: 24 * time.Hour,
		Issuer:         "printq",
	}
}

// JWTService issues and validates access tokens.
type JWTService struct {
	config JWTConfig
}

// NewJWTService creates a JWT service.
func NewJWTService(config JWTConfig) (*JWTService, error) {
	if config.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if config.AccessTokenTTL <= 0 {
		config.AccessTokenTTL = 24 * time.Hour
	}
	if config.Issuer == "" {
		config.Issuer = "printq"
	}
	return &JWTService{config: config}, nil
}

// GenerateAccessToken issues a signed token for the user.
func (s *JWTService) GenerateAccessToken(user *User) (*Token, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.AccessTokenTTL)

	claims := Claims{
		UserID: user.ID.String(),
		Email:  user.Email,
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &Token{
		AccessToken: signed,
		ExpiresAt:   expiresAt,
		TokenType:   "Bearer",
	}, nil
}

// ValidateToken parses and validates a token, returning the caller identity.
func (s *JWTService) ValidateToken(tokenString string) (*appctx.UserContext, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithIssuer(s.config.Issuer))
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid or expired token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperror.NewUnauthorized("invalid token claims")
	}

	role, ok := security.ParseRole(claims.Role)
	if !ok {
		return nil, apperror.NewUnauthorized("unknown role in token")
	}

	return &appctx.UserContext{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   role,
	}, nil
}
