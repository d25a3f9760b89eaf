package availability

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// DefaultCapacity is the per-slot booking limit used when a Config leaves it unset.
const DefaultCapacity = 1

var ErrInvalidConfig = errors.New("invalid business hours configuration")

// Window is an open-close interval within a single day.
type Window struct {
	Open  Clock `json:"open"`
	Close Clock `json:"close"`
}

// Override replaces the weekly windows for one calendar date. A closed
// override, or one without windows, closes the whole day.
type Override struct {
	Closed  bool     `json:"closed"`
	Windows []Window `json:"windows,omitempty"`
	Notes   string   `json:"notes,omitempty"`
}

// Config is an agent's fully resolved business hours.
type Config struct {
	SlotDuration int                  `json:"slotDuration"` // minutes
	BufferTime   int                  `json:"bufferTime"`   // minutes
	Capacity     int                  `json:"capacity"`
	Weekly       map[Weekday][]Window `json:"businessHours"`
	Overrides    map[string]Override  `json:"overrides,omitempty"` // keyed by YYYY-MM-DD
}

// DayPlan is the outcome of resolving a single date against a Config.
type DayPlan struct {
	Windows    []Window
	IsOverride bool
	Closed     bool
	Notes      string
}

// Validate rejects configurations the calculator cannot use.
func (c Config) Validate() error {
	if c.SlotDuration <= 0 {
		return fmt.Errorf("%w: slot duration must be positive, got %d", ErrInvalidConfig, c.SlotDuration)
	}
	if c.BufferTime < 0 {
		return fmt.Errorf("%w: buffer time cannot be negative, got %d", ErrInvalidConfig, c.BufferTime)
	}
	if c.Capacity < 0 {
		return fmt.Errorf("%w: capacity cannot be negative, got %d", ErrInvalidConfig, c.Capacity)
	}

	for day, windows := range c.Weekly {
		if !day.Valid() {
			return fmt.Errorf("%w: weekday %d out of range", ErrInvalidConfig, int(day))
		}
		if err := validateWindows(day.String(), windows); err != nil {
			return err
		}
	}

	for key, o := range c.Overrides {
		if _, err := ParseDate(key); err != nil {
			return fmt.Errorf("%w: override key %q is not a date", ErrInvalidConfig, key)
		}
		if o.Closed {
			continue
		}
		if err := validateWindows(key, o.Windows); err != nil {
			return err
		}
	}

	return nil
}

func validateWindows(label string, windows []Window) error {
	for i, w := range windows {
		if !w.Open.valid() || !w.Close.valid() {
			return fmt.Errorf("%w: %s window %d is outside the day", ErrInvalidConfig, label, i+1)
		}
		if w.Close <= w.Open {
			return fmt.Errorf("%w: %s window %d closes at %s, not after opening at %s",
				ErrInvalidConfig, label, i+1, w.Close, w.Open)
		}
	}

	sorted := sortedWindows(windows)
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Open < sorted[i-1].Close {
			return fmt.Errorf("%w: %s windows %s-%s and %s-%s overlap", ErrInvalidConfig, label,
				sorted[i-1].Open, sorted[i-1].Close, sorted[i].Open, sorted[i].Close)
		}
	}
	return nil
}

func sortedWindows(windows []Window) []Window {
	out := make([]Window, len(windows))
	copy(out, windows)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Open < out[j].Open
	})
	return out
}

// EffectiveCapacity returns Capacity, or DefaultCapacity when unset.
func (c Config) EffectiveCapacity() int {
	if c.Capacity <= 0 {
		return DefaultCapacity
	}
	return c.Capacity
}

// Resolve picks the windows that apply on date: the date override when one
// exists, the weekday's recurring windows otherwise.
func (c Config) Resolve(date time.Time) DayPlan {
	date = DateOf(date)

	if o, ok := c.Overrides[FormatDate(date)]; ok {
		if o.Closed || len(o.Windows) == 0 {
			return DayPlan{IsOverride: true, Closed: true, Notes: o.Notes}
		}
		return DayPlan{Windows: sortedWindows(o.Windows), IsOverride: true, Notes: o.Notes}
	}

	windows := c.Weekly[WeekdayOf(date)]
	if len(windows) == 0 {
		return DayPlan{Closed: true}
	}
	return DayPlan{Windows: sortedWindows(windows)}
}

// Starts steps from Open in slotDuration increments while a whole slot still
// fits before Close.
func (w Window) Starts(slotDuration int) []Clock {
	if slotDuration <= 0 {
		return nil
	}
	var starts []Clock
	for t := w.Open; t.AddMinutes(slotDuration) <= w.Close; t = t.AddMinutes(slotDuration) {
		starts = append(starts, t)
	}
	return starts
}

// SlotStarts lists every slot start time offered on date, ascending.
func (c Config) SlotStarts(date time.Time) []Clock {
	var starts []Clock
	for _, w := range c.Resolve(date).Windows {
		starts = append(starts, w.Starts(c.SlotDuration)...)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })
	return starts
}

// Offers reports whether t is a slot start on date.
func (c Config) Offers(date time.Time, t Clock) bool {
	for _, s := range c.SlotStarts(date) {
		if s == t {
			return true
		}
	}
	return false
}
