package license

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateAppSumoHeaders(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fresh := strconv.FormatInt(now.Add(-time.Minute).UnixMilli(), 10)

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, ValidateAppSumoHeaders(fresh, "sig", now))
	})

	t.Run("stale timestamp", func(t *testing.T) {
		stale := strconv.FormatInt(now.Add(-6*time.Minute).UnixMilli(), 10)
		assert.ErrorIs(t, ValidateAppSumoHeaders(stale, "sig", now), ErrBadTimestamp)
	})

	t.Run("future timestamp", func(t *testing.T) {
		future := strconv.FormatInt(now.Add(time.Minute).UnixMilli(), 10)
		assert.ErrorIs(t, ValidateAppSumoHeaders(future, "sig", now), ErrBadTimestamp)
	})

	t.Run("non-numeric timestamp", func(t *testing.T) {
		assert.ErrorIs(t, ValidateAppSumoHeaders("yesterday", "sig", now), ErrBadTimestamp)
	})

	t.Run("missing signature", func(t *testing.T) {
		assert.ErrorIs(t, ValidateAppSumoHeaders(fresh, "", now), ErrBadSignature)
	})
}
