package util

import (
	"strconv"
	"testing"
	"time"
)

func TestDayKeyUTC(t *testing.T) {
	// 2024-01-15 23:30 in UTC-5 is already the 16th in UTC.
	loc := time.FixedZone("EST", -5*3600)
	got := DayKey(time.Date(2024, 1, 15, 23, 30, 0, 0, loc))
	if got != "2024-01-16" {
		t.Fatalf("expected 2024-01-16, got %s", got)
	}
}

func TestDayKeyFromMillis(t *testing.T) {
	ms := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	if got := DayKeyFromMillis(ms); got != "2024-03-01" {
		t.Fatalf("unexpected key %s", got)
	}
}

func TestAddMonthsInverse(t *testing.T) {
	// Navigating next then prev from any month must return to it, even when
	// the starting day-of-month (e.g. Jan 31) has no counterpart next month.
	y, m := AddMonths(2024, time.January, 1)
	if y != 2024 || m != time.February {
		t.Fatalf("expected 2024-02, got %d-%02d", y, m)
	}
	y, m = AddMonths(y, m, -1)
	if y != 2024 || m != time.January {
		t.Fatalf("expected 2024-01, got %d-%02d", y, m)
	}
}

func TestAddMonthsYearBoundary(t *testing.T) {
	y, m := AddMonths(2023, time.December, 1)
	if y != 2024 || m != time.January {
		t.Fatalf("expected 2024-01, got %d-%02d", y, m)
	}
	y, m = AddMonths(2024, time.January, -1)
	if y != 2023 || m != time.December {
		t.Fatalf("expected 2023-12, got %d-%02d", y, m)
	}
}

func TestDaysInMonth(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2024, time.February, 29},
		{2023, time.February, 28},
		{2024, time.April, 30},
		{2024, time.January, 31},
	}
	for _, c := range cases {
		if got := DaysInMonth(c.year, c.month); got != c.want {
			t.Errorf("DaysInMonth(%d, %v) = %d, want %d", c.year, c.month, got, c.want)
		}
	}
}

func TestMonthRange(t *testing.T) {
	start, end := MonthRange(2024, time.April)
	if DayKeyFromMillis(start) != "2024-04-01" {
		t.Fatalf("unexpected start %d", start)
	}
	if DayKeyFromMillis(end) != "2024-04-30" {
		t.Fatalf("unexpected end %d", end)
	}
	if end <= start {
		t.Fatalf("end must follow start")
	}
}

func TestIsWeekend(t *testing.T) {
	sat := time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)
	mon := time.Date(2024, 1, 22, 12, 0, 0, 0, time.UTC)
	if !IsWeekend(sat) {
		t.Error("saturday should be weekend")
	}
	if IsWeekend(mon) {
		t.Error("monday should not be weekend")
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDayKey(t *testing.T) {
	got, ok := ParseTime("2024-01-15")
	if !ok {
		t.Fatalf("expected ok")
	}
	if DayKey(got) != "2024-01-15" {
		t.Fatalf("unexpected time %v", got)
	}
}
