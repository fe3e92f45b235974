package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysUntil(t *testing.T) {
	assert.Equal(t, 0, DaysUntil(time.Now().Add(-time.Hour)))
	assert.Equal(t, 0, DaysUntil(time.Now().Add(time.Hour)))
	assert.Equal(t, 9, DaysUntil(time.Now().Add(10*24*time.Hour-time.Minute)))
}

func TestTimeToUTCPtr(t *testing.T) {
	assert.Nil(t, TimeToUTCPtr(nil))

	local := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3*3600))
	got := TimeToUTCPtr(&local)
	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, got.Equal(local))
}
