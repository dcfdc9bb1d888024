package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret")

	token, err := tm.GenerateToken(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a").GenerateToken(7)
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b").ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	_, err := NewTokenManager("test-secret").ValidateToken("not.a.token")
	assert.Error(t, err)
}
