package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptSecretRoundtrip(t *testing.T) {
	t.Setenv("TOKEN_ENCRYPTION_KEY", "unit-test-key")

	sealed, err := EncryptSecret("ya29.provider-access-token")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, secretPrefix))
	assert.NotContains(t, sealed, "provider-access-token")

	plain, err := DecryptSecret(sealed)
	require.NoError(t, err)
	assert.Equal(t, "ya29.provider-access-token", plain)
}

func TestEncryptSecretEmptyInput(t *testing.T) {
	t.Setenv("TOKEN_ENCRYPTION_KEY", "unit-test-key")

	sealed, err := EncryptSecret("")
	require.NoError(t, err)
	assert.Empty(t, sealed)
}

func TestEncryptSecretMissingKey(t *testing.T) {
	t.Setenv("TOKEN_ENCRYPTION_KEY", "")

	_, err := EncryptSecret("anything")
	assert.ErrorIs(t, err, ErrNoEncryptionKey)
}

func TestDecryptSecretLegacyPlaintext(t *testing.T) {
	t.Setenv("TOKEN_ENCRYPTION_KEY", "unit-test-key")

	// Rows written before encryption carry no prefix and pass through.
	plain, err := DecryptSecret("legacy-token")
	require.NoError(t, err)
	assert.Equal(t, "legacy-token", plain)
}

func TestDecryptSecretWrongKey(t *testing.T) {
	t.Setenv("TOKEN_ENCRYPTION_KEY", "key-one")
	sealed, err := EncryptSecret("secret")
	require.NoError(t, err)

	t.Setenv("TOKEN_ENCRYPTION_KEY", "key-two")
	_, err = DecryptSecret(sealed)
	assert.Error(t, err)
}

func TestDecryptSecretCorrupt(t *testing.T) {
	t.Setenv("TOKEN_ENCRYPTION_KEY", "unit-test-key")

	_, err := DecryptSecret(secretPrefix + "not-base64!!!")
	assert.Error(t, err)

	_, err = DecryptSecret(secretPrefix + "AAAA")
	assert.Error(t, err)
}
