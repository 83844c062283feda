package calendar

import (
	"strings"
	"time"

	"leaveflow/internal/platform/apperror"
)

const dateLayout = "2006-01-02"

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EndOfDay is the last instant of t's calendar date.
func EndOfDay(t time.Time) time.Time {
	return DateOnly(t).Add(24*time.Hour - time.Nanosecond)
}

// ParseDate accepts "YYYY-MM-DD" or RFC3339. A bare date read as an end bound
// covers the whole day.
func ParseDate(value string, endOfDay bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, apperror.Wrapf(ErrInvalidDate, "got %q", value)
	}
	if endOfDay {
		return EndOfDay(t), nil
	}
	return t, nil
}

// CalculateDays returns the inclusive calendar day count between start and end.
func CalculateDays(start, end time.Time) (float64, error) {
	start, end = DateOnly(start), DateOnly(end)
	if end.Before(start) {
		return 0, ErrInvalidRange
	}
	return end.Sub(start).Hours()/24 + 1, nil
}

// HoursBetween returns the fractional hours from start to end, clamped at zero.
func HoursBetween(start, end time.Time) float64 {
	hours := end.Sub(start).Hours()
	if hours < 0 {
		return 0
	}
	return hours
}

// ParseClock parses an "HH:MM" time of day onto the given date.
func ParseClock(date time.Time, clock string) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, ErrInvalidClock
	}
	day := DateOnly(date)
	return day.Add(time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute), nil
}
