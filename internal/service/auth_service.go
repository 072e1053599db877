package service

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/xxxsen/compbot/internal/pkg/errors"
	"github.com/xxxsen/compbot/internal/pkg/jwt"
)

// AuthService guards the admin surface (ingestion, index maintenance,
// manual digest runs). There is a single operator account configured with
// a bcrypt password hash; a successful login yields a bearer token.
type AuthService struct {
	adminUser    string
	passwordHash string
	secret       []byte
	ttl          time.Duration
}

func NewAuthService(adminUser, passwordHash string, secret []byte, ttl time.Duration) *AuthService {
	return &AuthService{
		adminUser:    adminUser,
		passwordHash: passwordHash,
		secret:       secret,
		ttl:          ttl,
	}
}

func (s *AuthService) Login(ctx context.Context, user, password string) (string, error) {
	_ = ctx
	if s.adminUser == "" || s.passwordHash == "" {
		return "", errors.ErrUnauthorized
	}
	if user != s.adminUser {
		return "", errors.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		return "", errors.ErrUnauthorized
	}
	return jwt.GenerateToken(user, s.secret, s.ttl)
}
