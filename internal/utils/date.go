package utils

import (
	"strings"
	"time"

	"github.com/julianstephens/restreak/internal/constants"
)

// FormatDate renders t's calendar day in its own location as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(constants.DateFormat)
}

// Today returns the canonical key of the clock's current local day.
// Both "is completed today" checks and completion writes must use this.
func Today(c Clock) string {
	return FormatDate(c.Now())
}

// ParseDate parses a YYYY-MM-DD key into midnight UTC of that day.
func ParseDate(day string) (time.Time, error) {
	return time.Parse(constants.DateFormat, day)
}

// ValidDate reports whether day is a well-formed canonical key.
func ValidDate(day string) bool {
	t, err := ParseDate(day)
	return err == nil && FormatDate(t) == day
}

// CompareDates orders two canonical keys. Lexicographic order on the zero
// padded form is chronological order.
func CompareDates(a, b string) int {
	return strings.Compare(a, b)
}

// DateKey builds the canonical key for a year, month and day without
// touching any timezone.
func DateKey(year int, month time.Month, day int) string {
	return FormatDate(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MondayOffset converts a weekday into a Monday-first column index (Mon=0 .. Sun=6).
func MondayOffset(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// ParseMonth parses YYYY-MM.
func ParseMonth(s string) (int, time.Month, error) {
	t, err := time.Parse(constants.MonthFormat, s)
	if err != nil {
		return 0, 0, err
	}
	return t.Year(), t.Month(), nil
}

// ShiftMonth moves a year/month pair by offset months.
func ShiftMonth(year int, month time.Month, offset int) (int, time.Month) {
	t := time.Date(year, month+time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), t.Month()
}

// WholeDaysBetween returns floor((to - from) / 24h); negative spans return 0.
func WholeDaysBetween(from, to time.Time) int {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}
