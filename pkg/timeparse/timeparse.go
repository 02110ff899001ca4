// Package timeparse turns human reminder-time input into absolute
// timestamps.
//
// Accepted forms (case-insensitive):
//
//	"in 30 minutes", "in 2 hours", "in 1 day"
//	"tomorrow at 15:00"
//	"at 15:00", "at 9"
//	"02.01.2006 15:04", "02.01 15:04", "15:04"
//
// The result is in the caller's "now" location. Whether the time is in the
// future is the caller's concern, not the parser's.
package timeparse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrUnrecognized = errors.New("unrecognized time format")

// Parse interprets input relative to now.
func Parse(input string, now time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return time.Time{}, ErrUnrecognized
	}

	switch {
	case strings.HasPrefix(s, "in "):
		return parseRelative(s, now)
	case strings.Contains(s, "tomorrow"):
		return parseTomorrow(s, now)
	case strings.HasPrefix(s, "at "):
		h, m, err := parseClock(strings.TrimPrefix(s, "at "))
		if err != nil {
			return time.Time{}, err
		}
		return atClock(now, 0, h, m), nil
	default:
		return parseLayouts(s, now)
	}
}

func parseRelative(s string, now time.Time) (time.Time, error) {
	parts := strings.Fields(s)
	if len(parts) < 3 {
		return time.Time{}, ErrUnrecognized
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil || n <= 0 {
		return time.Time{}, fmt.Errorf("invalid amount %q", parts[1])
	}
	unit := parts[2]
	switch {
	case strings.HasPrefix(unit, "min"):
		return now.Add(time.Duration(n) * time.Minute), nil
	case strings.HasPrefix(unit, "hour"), strings.HasPrefix(unit, "hr"):
		return now.Add(time.Duration(n) * time.Hour), nil
	case strings.HasPrefix(unit, "day"):
		return now.AddDate(0, 0, n), nil
	default:
		return time.Time{}, fmt.Errorf("unknown time unit %q", unit)
	}
}

func parseTomorrow(s string, now time.Time) (time.Time, error) {
	// Default to the morning when no clock time is given.
	h, m := 9, 0
	if i := strings.Index(s, "at "); i >= 0 {
		var err error
		h, m, err = parseClock(s[i+len("at "):])
		if err != nil {
			return time.Time{}, err
		}
	}
	return atClock(now, 1, h, m), nil
}

func parseLayouts(s string, now time.Time) (time.Time, error) {
	loc := now.Location()
	for _, layout := range []string{"02.01.2006 15:04", "02.01 15:04", "15:04"} {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			continue
		}
		switch layout {
		case "15:04":
			return atClock(now, 0, t.Hour(), t.Minute()), nil
		case "02.01 15:04":
			return time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
		default:
			return t, nil
		}
	}
	return time.Time{}, ErrUnrecognized
}

// parseClock reads "15:04" or a bare hour "15".
func parseClock(s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)
	hs, ms, hasMinute := strings.Cut(s, ":")
	hour, err = strconv.Atoi(strings.TrimSpace(hs))
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	if hasMinute {
		minute, err = strconv.Atoi(strings.TrimSpace(ms))
		if err != nil || minute < 0 || minute > 59 {
			return 0, 0, fmt.Errorf("invalid minute in %q", s)
		}
	}
	return hour, minute, nil
}

func atClock(now time.Time, addDays, hour, minute int) time.Time {
	d := now.AddDate(0, 0, addDays)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, now.Location())
}
