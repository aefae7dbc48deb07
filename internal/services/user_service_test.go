package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendly/internal/core"
)

func TestUserService_RegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(openStore(t), testLogger())

	u, err := svc.Register(ctx, " ana ", "Ana@Example.com", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, "ana", u.Username)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.NotEqual(t, "s3cret!", u.HashedPassword)

	_, err = svc.Register(ctx, "other", "ana@example.com", "s3cret!")
	assert.ErrorIs(t, err, core.ErrAlreadyExists)
	_, err = svc.Register(ctx, "ana", "new@example.com", "s3cret!")
	assert.ErrorIs(t, err, core.ErrAlreadyExists)
	_, err = svc.Register(ctx, "bob", "bob@example.com", "123")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	got, err := svc.Authenticate(ctx, "ANA@example.com", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "ana@example.com", "wrong")
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	_, err = svc.Authenticate(ctx, "nobody@example.com", "s3cret!")
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	_, err = svc.Get(ctx, 999)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
