package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundtrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := GenerateAccessToken(42, "alice@example.com", "user")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
}

func TestGenerateAccessTokenMissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := GenerateAccessToken(1, "a@b.c", "user")
	assert.Error(t, err)
}

func TestParseAccessTokenMissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	// A token signed with the empty key must not verify when no secret is
	// configured, otherwise anyone could mint valid credentials.
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID: 1,
		Role:   "admin",
	})
	signed, err := forged.SignedString([]byte(""))
	require.NoError(t, err)

	_, err = ParseAccessToken(signed)
	assert.Error(t, err)
}

func TestParseAccessTokenTampered(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := GenerateAccessToken(7, "bob@example.com", "admin")
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "different-secret")
	_, err = ParseAccessToken(token)
	assert.Error(t, err)
}

func TestParseAccessTokenGarbage(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	_, err := ParseAccessToken("not.a.token")
	assert.Error(t, err)
}
