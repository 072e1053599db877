package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apperr "github.com/xxxsen/compbot/internal/pkg/errors"
	"github.com/xxxsen/compbot/internal/pkg/jwt"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthService("admin", string(hash), []byte("secret"), time.Hour)
}

func TestLogin_IssuesToken(t *testing.T) {
	svc := newTestAuthService(t)
	token, err := svc.Login(context.Background(), "admin", "correct horse")
	require.NoError(t, err)

	claims, err := jwt.ParseToken(token, []byte("secret"))
	require.NoError(t, err)
	require.Equal(t, "admin", claims.Subject)
}

func TestLogin_RejectsBadCredentials(t *testing.T) {
	svc := newTestAuthService(t)

	_, err := svc.Login(context.Background(), "admin", "wrong")
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = svc.Login(context.Background(), "root", "correct horse")
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestLogin_RejectsWhenAdminNotConfigured(t *testing.T) {
	svc := NewAuthService("", "", []byte("secret"), time.Hour)
	_, err := svc.Login(context.Background(), "admin", "anything")
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
}
