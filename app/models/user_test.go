package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	u, err := CreateUser("alice", "alice@example.com", "s3cretpw")
	require.NoError(t, err)

	assert.Equal(t, ROLE_USER, u.Role)
	assert.Equal(t, STATUS_INACTIVE, u.Status)
	assert.False(t, u.IsActive())
	assert.NotEqual(t, "s3cretpw", u.Password)
	assert.True(t, u.CheckPassword("s3cretpw"))
	assert.False(t, u.CheckPassword("wrong"))
}

func TestCreateUserValidation(t *testing.T) {
	_, err := CreateUser("al", "alice@example.com", "s3cretpw")
	assert.Error(t, err)

	_, err = CreateUser("alice", "not-an-email", "s3cretpw")
	assert.Error(t, err)

	_, err = CreateUser("alice", "alice@example.com", "short")
	assert.Error(t, err)
}

func TestGenerateActivationToken(t *testing.T) {
	u := &User{}
	require.NoError(t, u.GenerateActivationToken())

	assert.Len(t, u.ActivationToken, 32)
	assert.NotNil(t, u.ActivationSentAt)

	first := u.ActivationToken
	require.NoError(t, u.GenerateActivationToken())
	assert.NotEqual(t, first, u.ActivationToken)
}

func TestSetPassword(t *testing.T) {
	u, err := CreateUser("alice", "alice@example.com", "s3cretpw")
	require.NoError(t, err)

	require.NoError(t, u.SetPassword("newpassword"))
	assert.False(t, u.CheckPassword("s3cretpw"))
	assert.True(t, u.CheckPassword("newpassword"))
}
