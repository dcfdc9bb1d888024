package instagram

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// VerifySignature checks the X-Hub-Signature-256 header Meta sends
// with every webhook delivery: "sha256=" plus the hex HMAC-SHA256 of
// the raw body under the app secret. Comparison is constant time.
func VerifySignature(appSecret string, body []byte, header string) bool {
	if appSecret == "" || header == "" {
		return false
	}

	provided, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}
