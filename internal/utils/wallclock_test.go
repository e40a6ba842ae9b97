package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedOffsetClock(t *testing.T) {
	base := time.Date(2025, 2, 7, 3, 30, 0, 0, time.UTC)
	wc := NewFixedOffsetClock(-6).WithNow(func() time.Time { return base })

	assert.Equal(t, time.Date(2025, 2, 6, 21, 30, 0, 0, time.UTC), wc.Now())

	start, end := wc.Today()
	assert.Equal(t, time.Date(2025, 2, 6, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 2, 6, 23, 59, 59, 999999999, time.UTC), end)
}

func TestLocationClockTracksDaylightSaving(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	summer := time.Date(2025, 7, 1, 15, 0, 0, 0, time.UTC)
	wc := NewLocationClock(loc).WithNow(func() time.Time { return summer })
	assert.Equal(t, time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC), wc.Now())

	fixed := NewFixedOffsetClock(-6).WithNow(func() time.Time { return summer })
	assert.Equal(t, time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC), fixed.Now())
}

func TestParseWallClock(t *testing.T) {
	cases := map[string]time.Time{
		"2025-02-07T10:00:00Z":      time.Date(2025, 2, 7, 10, 0, 0, 0, time.UTC),
		"2025-02-07T10:00:00-06:00": time.Date(2025, 2, 7, 16, 0, 0, 0, time.UTC),
		"2025-02-07T10:00":          time.Date(2025, 2, 7, 10, 0, 0, 0, time.UTC),
		"2025-02-07 10:00:30":       time.Date(2025, 2, 7, 10, 0, 30, 0, time.UTC),
		"2025-02-07":                time.Date(2025, 2, 7, 0, 0, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, err := ParseWallClock(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s: got %s", in, got)
	}

	_, err := ParseWallClock("next tuesday")
	assert.Error(t, err)
	_, err = ParseWallClock("  ")
	assert.Error(t, err)
}

func TestFormatJSDate(t *testing.T) {
	got := FormatJSDate(time.Date(2025, 2, 7, 4, 5, 6, 0, time.UTC))
	assert.Equal(t, "Fri Feb 07 2025 04:05:06 GMT+0000 (Coordinated Universal Time)", got)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héllo", Truncate("héllo wörld", 5))
	assert.Equal(t, "short", Truncate("short", 45))
}

func TestWallClockFromEnv(t *testing.T) {
	t.Setenv("REMINDER_TIMEZONE", "")
	t.Setenv("REMINDER_UTC_OFFSET_HOURS", "-5")
	assert.Equal(t, "fixed-offset:-5h0m0s", WallClockFromEnv(nil).String())

	t.Setenv("REMINDER_TIMEZONE", "Not/AZone")
	t.Setenv("REMINDER_UTC_OFFSET_HOURS", "")
	assert.Equal(t, "fixed-offset:-6h0m0s", WallClockFromEnv(nil).String())
}
