package availability

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DateFormat = "2006-01-02"

	secondsPerDay = 24 * 60 * 60
)

var (
	ErrInvalidClock = errors.New("invalid time of day")
	ErrInvalidDate  = errors.New("invalid calendar date")
)

// Clock is a wall-clock time of day stored as seconds since midnight.
// 24:00:00 is representable so a window can close at end of day.
type Clock int

// ParseClock accepts H:MM, HH:MM and HH:MM:SS. It is the single place where
// loosely formatted times become canonical.
func ParseClock(s string) (Clock, error) {
	raw := strings.TrimSpace(s)
	parts := strings.Split(raw, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	if len(parts[0]) < 1 || len(parts[0]) > 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	hour, err := parseDigits(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	if len(parts[1]) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	minute, err := parseDigits(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	second := 0
	if len(parts) == 3 {
		if len(parts[2]) != 2 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
		second, err = parseDigits(parts[2])
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
	}

	if minute > 59 || second > 59 || hour > 24 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	if hour == 24 && (minute != 0 || second != 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	return Clock(hour*3600 + minute*60 + second), nil
}

// MustParseClock panics on malformed input. Intended for literals.
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func parseDigits(s string) (int, error) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", int(c)/3600, int(c)%3600/60, int(c)%60)
}

// AddMinutes returns c shifted by the given number of minutes.
func (c Clock) AddMinutes(minutes int) Clock {
	return c + Clock(minutes*60)
}

func (c Clock) valid() bool {
	return c >= 0 && c <= secondsPerDay
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// On returns the instant c falls at on date's calendar day in loc. Wall-clock
// fields are normalized by time.Date, so DST shifts land on the right instant.
func (c Clock) On(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, int(c), 0, loc)
}

// DateOf drops the time-of-day and location of t, keeping its calendar date.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateFormat, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}
