package phrase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		expr string
		want time.Time
	}{
		{"2024-01-01T00:00:00Z", day(2024, 1, 1)},
		{"2024-06-10", day(2024, 6, 10)},
		{"2024-06-10 14:30", time.Date(2024, 6, 10, 14, 30, 0, 0, time.UTC)},
		{"today", day(2024, 3, 1)},
		{"tomorrow", day(2024, 3, 2)},
		{"next monday", day(2024, 3, 4)},
		{"next tuesday", day(2024, 3, 5)},
		{"next friday", day(2024, 3, 8)},
		{"next week", day(2024, 3, 8)},
		{"next month", day(2024, 4, 1)},
		{"next year", day(2025, 1, 1)},
		{"in 3 days", day(2024, 3, 4)},
		{"in two weeks", day(2024, 3, 15)},
		{"march", day(2024, 3, 1)},
		{"february", day(2025, 2, 1)},
		{"feb 2nd", day(2025, 2, 2)},
		{"march 5, 2025", day(2025, 3, 5)},
		{"5 march", day(2024, 3, 5)},
		{"on the 20th of april", day(2024, 4, 20)},
		{"sept 9th", day(2024, 9, 9)},
		{"2 jan 2026", day(2026, 1, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ParseDate(tt.expr, refNow)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "ParseDate(%q) = %v, want %v", tt.expr, got, tt.want)
		})
	}
}

func TestParseDate_KeepsReferenceZone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, tokyo)

	got, err := ParseDate("2024-01-01T00:00:00Z", now)
	require.NoError(t, err)
	assert.Equal(t, tokyo, got.Location())
	assert.Equal(t, 9, got.Hour())

	got, err = ParseDate("tomorrow", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, tokyo), got)
}

func TestParseDate_TimeOfDay(t *testing.T) {
	got, err := ParseDate("tomorrow at 5pm", refNow)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Day())
	assert.Equal(t, 17, got.Hour())
}

func TestParseDate_AcrossDSTChange(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// Clocks go back an hour overnight
	now := time.Date(2024, 11, 3, 0, 30, 0, 0, ny)
	got, err := ParseDate("tomorrow", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 11, 4, 0, 0, 0, 0, ny), got)
}

func TestParseDate_Unrecognized(t *testing.T) {
	for _, expr := range []string{"someday", "march 40", "the day after", "tomorrow or so", "feb 30"} {
		_, err := ParseDate(expr, refNow)
		assert.ErrorIs(t, err, ErrUnrecognizedDate, expr)
	}
}
