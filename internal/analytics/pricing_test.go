package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppSumoPriceBreakpoints(t *testing.T) {
	early := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	mid := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 3.42, AppSumoPrice(1, early))
	assert.Equal(t, 6.88, AppSumoPrice(1, mid))
	assert.Equal(t, float64(29), AppSumoPrice(1, late))

	// Boundary days fall on the new price.
	assert.Equal(t, 6.88, AppSumoPrice(1, time.Date(2024, 10, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, float64(29), AppSumoPrice(1, time.Date(2025, 2, 13, 0, 0, 0, 0, time.UTC)))

	// Higher tiers are flat regardless of date.
	assert.Equal(t, 29.8, AppSumoPrice(2, early))
	assert.Equal(t, 49.8, AppSumoPrice(3, late))
	assert.Equal(t, float64(29), AppSumoPrice(4, mid))
}

func TestLemonPrice(t *testing.T) {
	assert.Equal(t, float64(799), LemonPrice(363041))
	assert.Equal(t, float64(299), LemonPrice(321751))
	assert.Equal(t, float64(199), LemonPrice(363062))
	assert.Equal(t, 49.99, LemonPrice(328561))
	assert.Equal(t, 49.99, LemonPrice(0))
}

func TestLemonPlanLabel(t *testing.T) {
	assert.Equal(t, "enterprise", LemonPlanLabel(363064))
	assert.Equal(t, "agency", LemonPlanLabel(363063))
	assert.Equal(t, "team", LemonPlanLabel(363040))
	assert.Equal(t, "individual", LemonPlanLabel(285937))
}
