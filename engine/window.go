package engine

import (
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// MINUTE OF DAY - Clock strings to minutes since midnight
// =============================================================================

const minutesPerDay = 24 * 60

// ParseMinuteOfDay converts an "HH:MM" or "HH:MM:SS" string to minutes
// since midnight. Seconds, when present, are ignored. Returns a
// FormatError if the string has fewer than two colon-separated numeric
// fields or a field is not numeric.
func ParseMinuteOfDay(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 {
		return 0, &FormatError{Input: s}
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, &FormatError{Input: s}
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, &FormatError{Input: s}
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, &FormatError{Input: s}
	}
	return hour*60 + minute, nil
}

// MinuteOfDayOrNone is the hot-path variant of ParseMinuteOfDay: instead
// of returning an error it returns -1 for malformed input, so UI render
// paths never have to branch on an error they cannot act on.
func MinuteOfDayOrNone(s string) int {
	m, err := ParseMinuteOfDay(s)
	if err != nil {
		return -1
	}
	return m
}

// MinuteOf returns the minute-of-day of a timestamp in its own location.
func MinuteOf(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// =============================================================================
// ELIGIBILITY WINDOW - Recurring daily time range
// =============================================================================

// EligibilityWindow is a recurring daily window during which a specific
// claim action is permitted (e.g., prayer time + 20 minutes).
// Windows that cross midnight are not supported: a window with
// OpensAtMinute+DurationMinutes > 1440 is a configuration error.
type EligibilityWindow struct {
	OpensAtMinute   int
	DurationMinutes int
	Timezone        string
}

// Validate reports whether the window is well-formed.
func (w EligibilityWindow) Validate() error {
	if w.OpensAtMinute < 0 || w.OpensAtMinute >= minutesPerDay {
		return ErrInvalidWindow
	}
	if w.DurationMinutes <= 0 {
		return ErrInvalidWindow
	}
	if w.OpensAtMinute+w.DurationMinutes > minutesPerDay {
		return ErrInvalidWindow
	}
	return nil
}

// Contains reports whether a minute-of-day falls within the window,
// inclusive on both ends: opens <= m <= opens+duration.
// A misconfigured window that would cross midnight is clamped to the end
// of the calendar day rather than wrapping.
func (w EligibilityWindow) Contains(minuteOfDay int) bool {
	if minuteOfDay < 0 {
		return false
	}
	closes := w.OpensAtMinute + w.DurationMinutes
	if closes > minutesPerDay-1 {
		closes = minutesPerDay - 1
	}
	return w.OpensAtMinute <= minuteOfDay && minuteOfDay <= closes
}

// WithinWindow reports whether now falls inside the window.
func WithinWindow(now time.Time, w EligibilityWindow) bool {
	return w.Contains(MinuteOf(now))
}

// WithinWindowClock is WithinWindow for an "HH:MM[:SS]" clock string.
func WithinWindowClock(clock string, w EligibilityWindow) (bool, error) {
	m, err := ParseMinuteOfDay(clock)
	if err != nil {
		return false, err
	}
	return w.Contains(m), nil
}

// =============================================================================
// CALENDAR BOUNDARIES - Pure local-calendar arithmetic
// =============================================================================

// DateOf truncates a timestamp to midnight in its own location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// MondayOfWeek returns the Monday of the week containing t.
// Weeks are Monday-start, Sunday-end.
func MondayOfWeek(t time.Time) time.Time {
	d := DateOf(t)
	// time.Weekday has Sunday=0; shift so Monday=0.
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// SundayOfWeek returns the Sunday ending the week containing t.
func SundayOfWeek(t time.Time) time.Time {
	return MondayOfWeek(t).AddDate(0, 0, 6)
}

// StartOfMonth returns the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// EndOfMonth returns the last day of t's month.
func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, -1)
}

// =============================================================================
// PERIOD KEY FORMATTING
// =============================================================================

// FormatPeriodKey derives the deterministic period key for a timestamp.
// Any instant within the same day/week/month yields the same key.
func FormatPeriodKey(kind PeriodKind, t time.Time) PeriodKey {
	switch kind {
	case PeriodDaily:
		return PeriodKey("daily:" + DateOf(t).Format("2006-01-02"))
	case PeriodWeekly:
		start := MondayOfWeek(t)
		end := start.AddDate(0, 0, 6)
		return PeriodKey("weekly:" + start.Format("2006-01-02") + "-" + end.Format("2006-01-02"))
	case PeriodMonthly:
		return PeriodKey("monthly:" + t.Format("2006-01"))
	default:
		return PeriodKey(string(kind) + ":" + DateOf(t).Format("2006-01-02"))
	}
}
