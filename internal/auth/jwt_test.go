package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	svc, err := NewJWTService("secret")
	require.NoError(t, err)

	token, err := svc.GenerateToken("u1", "ana", time.Hour)
	require.NoError(t, err)

	id, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u1", Username: "ana"}, id)
}

func TestTokenNameFallsBackToSubject(t *testing.T) {
	svc, _ := NewJWTService("secret")
	token, err := svc.GenerateToken("u1", "", 0)
	require.NoError(t, err)
	id, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", id.Username)
}

func TestTokenRejections(t *testing.T) {
	svc, _ := NewJWTService("secret")
	other, _ := NewJWTService("other")

	signed, err := other.GenerateToken("u1", "ana", time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.Error(t, err, "wrong key")

	past := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return past }
	expired, err := svc.GenerateToken("u1", "ana", time.Hour)
	require.NoError(t, err)
	svc.now = time.Now
	_, err = svc.ValidateToken(expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", Issuer: issuer}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(unsigned)
	assert.Error(t, err, "alg none")

	_, err = svc.ValidateToken("garbage")
	assert.Error(t, err)

	_, err = NewJWTService("")
	assert.Error(t, err)
}

func TestIdentityContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
	ctx := WithIdentity(context.Background(), Identity{UserID: "u1"})
	id, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u1", id.UserID)
}
