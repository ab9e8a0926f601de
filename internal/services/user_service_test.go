package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUserService(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	svc := NewUserService(fx.repo)
	svc.cost = bcrypt.MinCost

	u, err := svc.Register(ctx, "bob", "Bob@Example.com", "correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", u.PasswordHash)

	_, err = svc.Register(ctx, "bob", "other@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = svc.Register(ctx, "carol", "not-an-email", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Register(ctx, "carol", "carol@example.com", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	got, err := svc.Authenticate(ctx, "Bob@Example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "Bob@Example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "wrong", "new password"), ErrInvalidCredentials)
	require.NoError(t, svc.ChangePassword(ctx, u.ID, "correct horse", "battery staple"))

	_, err = svc.Authenticate(ctx, "bob@example.com", "battery staple")
	assert.NoError(t, err)
}
