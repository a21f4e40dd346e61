package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPctChange(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 100.0, PctChange(10, 0))
	assert.Equal(t, 0.0, PctChange(0, 0))
	assert.Equal(t, -50.0, PctChange(5, 10))
	assert.Equal(t, 50.0, PctChange(15, 10))
	assert.Equal(t, -100.0, PctChange(0, 4))
}

func TestTimeframeWindows(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)

	cur := Timeframe30Days.Current(now)
	require.NotNil(t, cur.From)
	assert.Equal(t, now.AddDate(0, 0, -30), *cur.From)

	prev, ok := Timeframe30Days.Previous(now)
	require.True(t, ok)
	assert.Equal(t, now.AddDate(0, 0, -60), *prev.From)
	assert.Equal(t, now.AddDate(0, 0, -30), prev.To)

	all := TimeframeAll.Current(now)
	assert.Nil(t, all.From)
	_, ok = TimeframeAll.Previous(now)
	assert.False(t, ok)
}

func TestParseTimeframe(t *testing.T) {
	t.Parallel()
	tf, err := ParseTimeframe("")
	require.NoError(t, err)
	assert.Equal(t, Timeframe30Days, tf)

	_, err = ParseTimeframe("2weeks")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPerformanceScore(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 90, PerformanceScore(0, 0))
	assert.Equal(t, 100, PerformanceScore(0, 3))
	assert.Equal(t, 60, PerformanceScore(5, 0))
	assert.Equal(t, 85, PerformanceScore(3, 1))
}
