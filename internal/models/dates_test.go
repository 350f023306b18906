package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEarliestDateKeyCrossesMonth(t *testing.T) {
	now := time.Date(2026, 10, 31, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "2026-11-01", EarliestDateKey(now, 1))
	assert.Equal(t, "2026-11-03", EarliestDateKey(now, 3))
}

func TestParseDateKey(t *testing.T) {
	_, err := ParseDateKey("2026-02-30")
	assert.Error(t, err)
	d, err := ParseDateKey("2026-10-16")
	require.NoError(t, err)
	assert.Equal(t, time.October, d.Month())
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("16:30")
	require.NoError(t, err)
	assert.Equal(t, 16*60+30, m)
	_, err = ParseClock("4pm")
	assert.Error(t, err)
}
