// Package timeslot implements the half-hour slot arithmetic shared by the
// availability ledger and the appointment scheduler.
package timeslot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format used in all record files.
const DateLayout = "02-01-06" // DD-MM-YY

var rangePattern = regexp.MustCompile(`^\d{2}:\d{2}-\d{2}:\d{2}$`)

// ParseDate parses a DD-MM-YY date strictly: impossible calendar dates such
// as 31-02-24 are rejected rather than normalized.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a date in the record-file layout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ParseClock parses a bare HH:MM time.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("invalid time format %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return Clock{}, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return Clock{}, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("time %q out of range", s)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

// Normalize converts a bare HH:MM input into the canonical half-hour range.
// On the hour the range is HH:00-HH:30; for any other minute the start is
// kept as typed and the end snaps to the next hour, wrapping 23:xx to 00:00.
func Normalize(input string) (string, error) {
	c, err := ParseClock(input)
	if err != nil {
		return "", err
	}

	var end Clock
	if c.Minute == 0 {
		end = Clock{Hour: c.Hour, Minute: 30}
	} else {
		end = Clock{Hour: (c.Hour + 1) % 24, Minute: 0}
	}

	r := fmt.Sprintf("%s-%s", c, end)
	if !rangePattern.MatchString(r) {
		return "", fmt.Errorf("normalized range %q is malformed", r)
	}
	return r, nil
}

// ValidRange reports whether s looks like an HH:MM-HH:MM range.
func ValidRange(s string) bool {
	return rangePattern.MatchString(s)
}

// HalfHourRanges expands a working window into consecutive half-hour ranges,
// e.g. 09:00..11:00 -> [09:00-09:30 09:30-10:00 10:00-10:30 10:30-11:00].
// The window must start on :00 or :30 and from must precede to.
func HalfHourRanges(from, to Clock) ([]string, error) {
	if from.Minute != 0 && from.Minute != 30 {
		return nil, fmt.Errorf("window start %s must be on the hour or half hour", from)
	}
	if to.Minute != 0 && to.Minute != 30 {
		return nil, fmt.Errorf("window end %s must be on the hour or half hour", to)
	}
	start := from.Hour*60 + from.Minute
	end := to.Hour*60 + to.Minute
	if start >= end {
		return nil, fmt.Errorf("window %s-%s is empty", from, to)
	}

	var ranges []string
	for m := start; m+30 <= end; m += 30 {
		a := Clock{Hour: m / 60, Minute: m % 60}
		b := Clock{Hour: (m + 30) / 60 % 24, Minute: (m + 30) % 60}
		ranges = append(ranges, fmt.Sprintf("%s-%s", a, b))
	}
	return ranges, nil
}
