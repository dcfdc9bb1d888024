package instagram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"object":"instagram","entry":[]}`)

	assert.True(t, VerifySignature("app-secret", body, signBody("app-secret", body)))
	assert.False(t, VerifySignature("app-secret", body, signBody("wrong-secret", body)))
	assert.False(t, VerifySignature("app-secret", body, "sha256=deadbeef"))
	assert.False(t, VerifySignature("app-secret", body, ""))
	assert.False(t, VerifySignature("app-secret", body, "md5=abc"))
}

func TestTokenCipherRoundTrip(t *testing.T) {
	cipher, err := NewTokenCipher("passphrase")
	require.NoError(t, err)

	sealed, err := cipher.Encrypt("IGQVJ-some-long-token")
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "IGQVJ")

	plain, err := cipher.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "IGQVJ-some-long-token", plain)

	other, err := NewTokenCipher("different-passphrase")
	require.NoError(t, err)
	_, err = other.Decrypt(sealed)
	assert.Error(t, err)
}
