package shortlink

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRejectsBadURLs(t *testing.T) {
	svc := NewService(nil)
	ctx := context.Background()

	for _, target := range []string{
		"",
		"not a url",
		"ftp://example.com/file",
		"javascript:alert(1)",
		"https://",
	} {
		_, err := svc.Create(ctx, target, "", nil)
		assert.ErrorIs(t, err, ErrInvalidURL, "target %q", target)
	}
}

func TestCreateRejectsEmptyAlias(t *testing.T) {
	svc := NewService(nil)
	_, err := svc.Create(context.Background(), "https://example.com", "!!!", nil)
	assert.ErrorIs(t, err, ErrInvalidAlias)
}

func TestRandomCodeUsesSafeAlphabet(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := randomCode(codeLength)
		require.NoError(t, err)
		assert.Len(t, code, codeLength)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, c), "char %q", c)
		}
		seen[code] = true
	}
	// 50 draws from a 55^7 space should never collide.
	assert.Len(t, seen, 50)
}
