// Package timeofday holds the interval arithmetic every availability and
// booking check is built on.  Times of day are "HH:MM" strings (24h) and are
// converted to minutes since midnight before any comparison.  Intervals are
// half-open: [start, end).
package timeofday

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTimeFormat is returned when a value is not a valid "HH:MM" string.
var ErrInvalidTimeFormat = errors.New("invalid time format")

// ErrInvalidDate is returned when a value is not a valid "YYYY-MM-DD" date.
var ErrInvalidDate = errors.New("invalid date")

// DateLayout is the layout used for booking dates.
const DateLayout = "2006-01-02"

// MinutesPerDay is the exclusive upper bound for minute offsets.
const MinutesPerDay = 24 * 60

// ToMinutes parses "HH:MM" into minutes since midnight.  Seconds are accepted
// and ignored ("HH:MM:SS") because MySQL TIME columns come back in that form.
func ToMinutes(hhmm string) (int, error) {
	if len(hhmm) != 5 && len(hhmm) != 8 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, hhmm)
	}
	if hhmm[2] != ':' || (len(hhmm) == 8 && hhmm[5] != ':') {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, hhmm)
	}
	h, ok1 := twoDigits(hhmm[0], hhmm[1])
	m, ok2 := twoDigits(hhmm[3], hhmm[4])
	if !ok1 || !ok2 || h > 23 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, hhmm)
	}
	if len(hhmm) == 8 {
		if s, ok := twoDigits(hhmm[6], hhmm[7]); !ok || s > 59 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, hhmm)
		}
	}
	return h*60 + m, nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// MustMinutes is ToMinutes for values that were already validated.  It
// panics on malformed input.
func MustMinutes(hhmm string) int {
	m, err := ToMinutes(hhmm)
	if err != nil {
		panic(err)
	}
	return m
}

// ToHHMM formats minutes since midnight as a zero-padded "HH:MM" string.
// Values past midnight are not wrapped: 1500 formats as "25:00" so callers
// comparing against a close time still see the overflow.
func ToHHMM(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Overlaps reports whether [startA, endA) and [startB, endB) intersect.
// Touching endpoints do not overlap.
func Overlaps(startA, endA, startB, endB int) bool {
	return startA < endB && endA > startB
}

// Within reports whether [start, end) lies entirely inside [winStart, winEnd).
func Within(start, end, winStart, winEnd int) bool {
	return winStart <= start && end <= winEnd
}

// ParseDate validates a "YYYY-MM-DD" date.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return t, nil
}

// Weekday returns the day of week for a booking date, 0 = Sunday.
func Weekday(date string) (int, error) {
	t, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	return int(t.Weekday()), nil
}
