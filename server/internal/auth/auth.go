// Package auth issues and validates the session tokens of the subscription API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cinemax-app/subscribe/server/internal/config"
	"github.com/cinemax-app/subscribe/server/internal/store"
)

var ErrUnauthorized = errors.New("unauthorized")

// Claims represents the JWT token claims. Plan is the user's active plan at
// issue time and empty when there is none.
type Claims struct {
	UserID string `json:"uid"`
	Plan   string `json:"plan,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Plan   string
}

// Service handles token operations.
type Service struct {
	jwtSecret []byte
	jwtExpiry time.Duration
	now       func() time.Time
}

// NewService creates a new auth service.
func NewService(cfg config.AuthConfig) *Service {
	return &Service{
		jwtSecret: []byte(cfg.JWTSecret),
		jwtExpiry: cfg.JWTExpiry.Duration,
		now:       time.Now,
	}
}

// IssueToken signs a token for user carrying its current plan.
func (s *Service) IssueToken(user *store.User) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: user.ID,
		Plan:   user.Plan,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken validates a bearer token and returns the caller's Identity.
func (s *Service) ValidateToken(_ context.Context, tokenStr string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrUnauthorized
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrUnauthorized
	}

	return &Identity{UserID: claims.UserID, Plan: claims.Plan}, nil
}
