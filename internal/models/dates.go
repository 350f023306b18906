package models

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date used for date keys.
const DateLayout = "2006-01-02"

// ParseDateKey validates an ISO date key.
func ParseDateKey(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return t, nil
}

// EarliestDateKey returns the first date key that is at least minNoticeDays after now's calendar day.
func EarliestDateKey(now time.Time, minNoticeDays int) string {
	y, m, d := now.Date()
	return time.Date(y, m, d+minNoticeDays, 0, 0, 0, 0, now.Location()).Format(DateLayout)
}

// ParseClock parses an HH:MM time of day into minutes after midnight.
func ParseClock(raw string) (int, error) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	return t.Hour()*60 + t.Minute(), nil
}
