package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/slotter-org/cs-ai-agent/internal/logger"
)

// WallClock reports "local" wall-clock time expressed as a UTC instant, which is
// the frame task datetimes are stored in: 10:00 local is stored as 10:00Z.
type WallClock struct {
	now    func() time.Time
	offset time.Duration
	loc    *time.Location
}

// NewFixedOffsetClock shifts UTC by a constant number of hours. It ignores
// daylight saving; NewLocationClock is zone-aware.
func NewFixedOffsetClock(offsetHours int) *WallClock {
	return &WallClock{now: time.Now, offset: time.Duration(offsetHours) * time.Hour}
}

func NewLocationClock(loc *time.Location) *WallClock {
	return &WallClock{now: time.Now, loc: loc}
}

// WithNow returns a copy of the clock reading the given time source.
func (wc *WallClock) WithNow(now func() time.Time) *WallClock {
	cp := *wc
	cp.now = now
	return &cp
}

func (wc *WallClock) Now() time.Time {
	t := wc.now()
	if wc.loc != nil {
		local := t.In(wc.loc)
		return time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), time.UTC)
	}
	return t.UTC().Add(wc.offset)
}

// Today returns the first and last instant of the current wall-clock day.
func (wc *WallClock) Today() (time.Time, time.Time) {
	now := wc.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24*time.Hour - time.Nanosecond)
}

func (wc *WallClock) String() string {
	if wc.loc != nil {
		return "location:" + wc.loc.String()
	}
	return fmt.Sprintf("fixed-offset:%s", wc.offset)
}

var wallClockLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseWallClock accepts the datetime shapes the assistant and the editors
// produce. Values without a zone are read as UTC.
func ParseWallClock(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty datetime")
	}
	for _, layout := range wallClockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime %q", s)
}

// FormatJSDate renders t the way a JavaScript Date prints itself on a UTC host,
// e.g. "Fri Feb 07 2025 04:00:00 GMT+0000 (Coordinated Universal Time)".
func FormatJSDate(t time.Time) string {
	return t.UTC().Format("Mon Jan 02 2006 15:04:05") + " GMT+0000 (Coordinated Universal Time)"
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// WallClockFromEnv picks REMINDER_TIMEZONE when it names a loadable zone and
// falls back to the REMINDER_UTC_OFFSET_HOURS fixed offset.
func WallClockFromEnv(log *logger.Logger) *WallClock {
	if tz := GetEnv("REMINDER_TIMEZONE", "", log); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err == nil {
			return NewLocationClock(loc)
		}
		if log != nil {
			log.Warn("Unknown REMINDER_TIMEZONE, using fixed offset", "timezone", tz, "error", err)
		}
	}
	return NewFixedOffsetClock(GetEnvAsInt("REMINDER_UTC_OFFSET_HOURS", -6, log))
}
