package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyRoundTrip(t *testing.T) {
	v, err := NewJWTVerifier("s3cret", "https://id.example.com")
	require.NoError(t, err)
	signer := NewSigner("s3cret", "https://id.example.com")

	token, err := signer.Sign(Identity{UserID: 1234, Email: "a@example.com", DisplayName: "Ada"}, time.Hour)
	require.NoError(t, err)

	id, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.EqualValues(t, 1234, id.UserID)
	assert.Equal(t, "a@example.com", id.Email)
	assert.Equal(t, "Ada", id.DisplayName)
}

func TestVerifyRejects(t *testing.T) {
	v, err := NewJWTVerifier("s3cret", "issuer-a")
	require.NoError(t, err)

	expired := NewSigner("s3cret", "issuer-a")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.Sign(Identity{UserID: 1}, time.Hour)
	require.NoError(t, err)

	wrongKey, err := NewSigner("other", "issuer-a").Sign(Identity{UserID: 1}, time.Hour)
	require.NoError(t, err)
	wrongIssuer, err := NewSigner("s3cret", "issuer-b").Sign(Identity{UserID: 1}, time.Hour)
	require.NoError(t, err)
	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-number",
			Issuer:    "issuer-a",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1", Issuer: "issuer-a"},
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	cases := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "  ", ErrMissingToken},
		{"garbage", "abc.def.ghi", ErrInvalidToken},
		{"expired", expiredToken, ErrTokenExpired},
		{"wrong key", wrongKey, ErrInvalidToken},
		{"wrong issuer", wrongIssuer, ErrInvalidToken},
		{"bad subject", badSubject, ErrInvalidToken},
		{"no expiry", noExpiry, ErrInvalidToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tc.token)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestNewJWTVerifierRequiresSecret(t *testing.T) {
	_, err := NewJWTVerifier(" ", "")
	assert.Error(t, err)
}
