package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendly/internal/core"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)

	ok, err := CheckPassword(hash, "s3cret!")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CheckPassword("not-a-hash", "x")
	assert.Error(t, err)
}

func TestIssuer_IssueAndVerify(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)
	token, err := iss.Issue(core.User{ID: 42, Email: "ana@example.com", Username: "ana"})
	require.NoError(t, err)

	id, err := iss.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: 42, Email: "ana@example.com", Username: "ana"}, id)
}

func TestIssuer_RejectsBadTokens(t *testing.T) {
	iss := NewIssuer("test-secret", time.Minute)
	good, err := iss.Issue(core.User{ID: 1, Email: "a@b.c", Username: "a"})
	require.NoError(t, err)

	other := NewIssuer("other-secret", time.Minute)
	_, err = other.Verify(good)
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	expired := NewIssuer("test-secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue(core.User{ID: 1})
	require.NoError(t, err)
	_, err = iss.Verify(old)
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "iss": issuer, "exp": time.Now().Add(time.Hour).Unix()})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = iss.Verify(unsigned)
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	_, err = iss.Verify("garbage")
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UserID: 7})
	id, ok := IdentityFromContext(ctx)
	assert.True(t, ok)
	assert.EqualValues(t, 7, id.UserID)
}
