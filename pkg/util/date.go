package util

import (
	"strconv"
	"time"
)

const DayKeyLayout = "2006-01-02"

// DayKey returns the UTC calendar date key (YYYY-MM-DD) for a timestamp.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayKeyLayout)
}

// DayKeyFromMillis returns the UTC date key for an epoch-millisecond timestamp.
func DayKeyFromMillis(ms int64) string {
	return DayKey(time.UnixMilli(ms))
}

// AddMonths shifts a (year, month) pair by delta calendar months. The result
// is normalized, so the arithmetic never depends on a day-of-month.
func AddMonths(year int, month time.Month, delta int) (int, time.Month) {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, delta, 0)
	return t.Year(), t.Month()
}

// DaysInMonth returns the number of days in the given calendar month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthRange returns the UTC epoch-millisecond bounds of a calendar month:
// the first instant of its first day and the last millisecond of its last day.
func MonthRange(year int, month time.Month) (startMs, endMs int64) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return start.UnixMilli(), end.UnixMilli()
}

// IsWeekend reports whether the date falls on Saturday or Sunday (UTC).
func IsWeekend(t time.Time) bool {
	wd := t.UTC().Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// ParseTime tries RFC3339, the day-key layout, and unix seconds.
// Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(DayKeyLayout, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}
