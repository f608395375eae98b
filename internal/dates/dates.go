package dates

import (
	"fmt"
	"time"
)

// Layout is the wire format for calendar dates ("2006-01-02").
// All dates in this service are naive calendar dates in the user's
// local day, never instants; comparing them is string comparison.
const Layout = "2006-01-02"

// Format renders t as a calendar date.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Parse parses a calendar date string.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid calendar date %q: %w", s, err)
	}
	return t, nil
}

// Valid reports whether s is a well-formed calendar date.
func Valid(s string) bool {
	_, err := time.Parse(Layout, s)
	return err == nil
}

// Yesterday returns the calendar date one day before t.
func Yesterday(t time.Time) string {
	return t.AddDate(0, 0, -1).Format(Layout)
}

// MonthKey returns the "<year>-<month>" key used for per-month
// progress logs, zero-padded ("2025-03").
func MonthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// MonthBounds returns the first and last calendar dates of a month.
func MonthBounds(year int, month time.Month) (first, last string) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return Format(start), Format(end)
}

// SameMonth reports whether the calendar date t falls in the given month.
func SameMonth(t time.Time, year int, month time.Month) bool {
	return t.Year() == year && t.Month() == month
}
