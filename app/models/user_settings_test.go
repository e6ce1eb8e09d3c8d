package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserSettingsIssueAPIKey(t *testing.T) {
	us := &UserSettings{UserID: 1}

	key, err := us.IssueAPIKey()
	require.NoError(t, err)
	require.NotEmpty(t, key)

	assert.True(t, strings.HasPrefix(key, "qh_"))
	assert.NotEmpty(t, us.APIKeyHash)
	assert.NotEmpty(t, us.APIKeyPrefix)
	assert.NotNil(t, us.APIKeyCreatedAt)
	assert.Nil(t, us.APIKeyLastUsedAt)
	assert.True(t, us.HasActiveAPIKey())
	assert.Equal(t, HashAPIKey(key), us.APIKeyHash)
}

func TestUserSettingsIssueAPIKeyReplacesOld(t *testing.T) {
	us := &UserSettings{UserID: 1}

	first, err := us.IssueAPIKey()
	require.NoError(t, err)
	second, err := us.IssueAPIKey()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, HashAPIKey(second), us.APIKeyHash)
	assert.NotEqual(t, HashAPIKey(first), us.APIKeyHash)
}

func TestUserSettingsRevokeAPIKey(t *testing.T) {
	us := &UserSettings{UserID: 99}
	_, err := us.IssueAPIKey()
	require.NoError(t, err)

	us.RevokeAPIKey()

	assert.False(t, us.HasActiveAPIKey())
	assert.Equal(t, "", us.APIKeyHash)
	assert.Equal(t, "", us.APIKeyPrefix)
	assert.NotNil(t, us.APIKeyRevokedAt)
}

func TestHashAPIKeyTrimsWhitespace(t *testing.T) {
	assert.Equal(t, HashAPIKey("qh_abc"), HashAPIKey("  qh_abc \n"))
}

func TestMaskedAPIKey(t *testing.T) {
	us := &UserSettings{}
	assert.Equal(t, "", us.MaskedAPIKey())

	_, err := us.IssueAPIKey()
	require.NoError(t, err)
	masked := us.MaskedAPIKey()
	assert.True(t, strings.HasPrefix(masked, "qh_"))
	assert.NotContains(t, masked, us.APIKeyHash)
}
