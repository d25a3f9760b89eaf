package availability

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// MaxRangeDays bounds a single availability query.
const MaxRangeDays = 92

var ErrInvalidRange = errors.New("invalid date range")

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no-show"
)

// Valid reports whether s is one of the known appointment statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// HoldsCapacity is false only for cancelled appointments.
func (s Status) HoldsCapacity() bool {
	return s != StatusCancelled
}

// Appointment is the slice of a booking the calculator needs.
type Appointment struct {
	Date   time.Time
	Time   Clock
	Status Status
}

type Slot struct {
	Time      Clock `json:"time"`
	Capacity  int   `json:"capacity"`
	Booked    int   `json:"booked"`
	Available bool  `json:"available"`
}

type Metadata struct {
	Notes        string `json:"notes,omitempty"`
	SpecialHours bool   `json:"specialHours"`
}

// AvailableSlot is one calendar date of availability.
type AvailableSlot struct {
	Date      string    `json:"date"`
	DayOfWeek Weekday   `json:"dayOfWeek"`
	Slots     []Slot    `json:"slots"`
	Metadata  *Metadata `json:"metadata,omitempty"`
}

// NormalizeRange applies the single-day default for a zero end date and
// checks ordering and span.
func NormalizeRange(start, end time.Time) (time.Time, time.Time, error) {
	if start.IsZero() {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start date is required", ErrInvalidRange)
	}
	start = DateOf(start)
	if end.IsZero() {
		end = start
	}
	end = DateOf(end)

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end %s is before start %s",
			ErrInvalidRange, FormatDate(end), FormatDate(start))
	}
	if days := daysBetween(start, end) + 1; days > MaxRangeDays {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %d days requested, at most %d allowed",
			ErrInvalidRange, days, MaxRangeDays)
	}
	return start, end, nil
}

func daysBetween(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}

// Compute lists, for every date in [start, end], the slots produced by cfg
// together with how many non-cancelled appointments occupy each one.
// A zero end means a single-day query. Nothing is returned on error.
func Compute(start, end time.Time, cfg Config, appointments []Appointment) ([]AvailableSlot, error) {
	start, end, err := NormalizeRange(start, end)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	capacity := cfg.EffectiveCapacity()
	booked := countBooked(appointments)

	result := make([]AvailableSlot, 0, daysBetween(start, end)+1)
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		plan := cfg.Resolve(date)
		dateKey := FormatDate(date)

		day := AvailableSlot{
			Date:      dateKey,
			DayOfWeek: WeekdayOf(date),
			Slots:     []Slot{},
		}
		if plan.IsOverride {
			day.Metadata = &Metadata{Notes: plan.Notes, SpecialHours: true}
		}

		for _, w := range plan.Windows {
			for _, t := range w.Starts(cfg.SlotDuration) {
				n := booked[slotKey(dateKey, t)]
				day.Slots = append(day.Slots, Slot{
					Time:      t,
					Capacity:  capacity,
					Booked:    n,
					Available: n < capacity,
				})
			}
		}

		sort.SliceStable(day.Slots, func(i, j int) bool {
			return day.Slots[i].Time < day.Slots[j].Time
		})
		result = append(result, day)
	}

	return result, nil
}

func countBooked(appointments []Appointment) map[string]int {
	counts := make(map[string]int, len(appointments))
	for _, a := range appointments {
		if !a.Status.HoldsCapacity() {
			continue
		}
		counts[slotKey(FormatDate(DateOf(a.Date)), a.Time)]++
	}
	return counts
}

func slotKey(date string, t Clock) string {
	return date + "T" + t.String()
}
