package availability

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func window(open, close string) Window {
	return Window{Open: MustParseClock(open), Close: MustParseClock(close)}
}

// 2024-01-03 is a Wednesday.
func wednesdayMorning() Config {
	return Config{
		SlotDuration: 60,
		Weekly: map[Weekday][]Window{
			Wednesday: {window("09:00", "12:00")},
		},
	}
}

func TestCompute_NoBookings(t *testing.T) {
	day := mustDate(t, "2024-01-03")

	got, err := Compute(day, day, wednesdayMorning(), nil)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 day, got %d", len(got))
	}

	want := []Slot{
		{Time: MustParseClock("09:00"), Capacity: 1, Booked: 0, Available: true},
		{Time: MustParseClock("10:00"), Capacity: 1, Booked: 0, Available: true},
		{Time: MustParseClock("11:00"), Capacity: 1, Booked: 0, Available: true},
	}
	if !reflect.DeepEqual(got[0].Slots, want) {
		t.Fatalf("unexpected slots: %+v", got[0].Slots)
	}
	if got[0].DayOfWeek != Wednesday {
		t.Fatalf("expected wednesday, got %s", got[0].DayOfWeek)
	}
	if got[0].Metadata != nil {
		t.Fatalf("expected no metadata for a regular day, got %+v", got[0].Metadata)
	}
}

func TestCompute_CancelledDoesNotCount(t *testing.T) {
	day := mustDate(t, "2024-01-03")
	appts := []Appointment{
		{Date: day, Time: MustParseClock("10:00"), Status: StatusConfirmed},
		{Date: day, Time: MustParseClock("11:00"), Status: StatusCancelled},
	}

	got, err := Compute(day, day, wednesdayMorning(), appts)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}

	slots := got[0].Slots
	if slots[1].Time.String() != "10:00:00" || slots[1].Booked != 1 || slots[1].Available {
		t.Fatalf("expected 10:00:00 booked=1 unavailable, got %+v", slots[1])
	}
	if slots[2].Time.String() != "11:00:00" || slots[2].Booked != 0 || !slots[2].Available {
		t.Fatalf("expected 11:00:00 booked=0 available, got %+v", slots[2])
	}
}

func TestCompute_EveryNonCancelledStatusHoldsCapacity(t *testing.T) {
	day := mustDate(t, "2024-01-03")
	cfg := wednesdayMorning()
	cfg.Capacity = 10

	var appts []Appointment
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusNoShow, StatusCancelled} {
		appts = append(appts, Appointment{Date: day, Time: MustParseClock("09:00:00"), Status: s})
	}

	got, err := Compute(day, day, cfg, appts)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if got[0].Slots[0].Booked != 4 {
		t.Fatalf("expected 4 bookings to count, got %d", got[0].Slots[0].Booked)
	}
	if !got[0].Slots[0].Available {
		t.Fatalf("expected slot to stay available below capacity")
	}
}

func TestCompute_ClosedWeekday(t *testing.T) {
	// 2024-01-01 is a Monday with nothing configured.
	day := mustDate(t, "2024-01-01")

	got, err := Compute(day, day, wednesdayMorning(), nil)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 day, got %d", len(got))
	}
	if got[0].Slots == nil || len(got[0].Slots) != 0 {
		t.Fatalf("expected empty, non-nil slots, got %#v", got[0].Slots)
	}
	if got[0].DayOfWeek != Monday {
		t.Fatalf("expected monday, got %s", got[0].DayOfWeek)
	}
}

func TestCompute_ZeroEndIsSingleDay(t *testing.T) {
	day := mustDate(t, "2024-01-03")

	got, err := Compute(day, time.Time{}, wednesdayMorning(), nil)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if len(got) != 1 || got[0].Date != "2024-01-03" {
		t.Fatalf("expected single day 2024-01-03, got %+v", got)
	}
}

func TestCompute_OneEntryPerDateAscending(t *testing.T) {
	start := mustDate(t, "2024-02-26")
	end := mustDate(t, "2024-03-03")

	got, err := Compute(start, end, wednesdayMorning(), nil)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}

	want := []string{"2024-02-26", "2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01", "2024-03-02", "2024-03-03"}
	if len(got) != len(want) {
		t.Fatalf("expected %d days, got %d", len(want), len(got))
	}
	for i, d := range want {
		if got[i].Date != d {
			t.Fatalf("day %d: expected %s, got %s", i, d, got[i].Date)
		}
	}
}

func TestCompute_InvalidRange(t *testing.T) {
	_, err := Compute(mustDate(t, "2024-01-02"), mustDate(t, "2024-01-01"), wednesdayMorning(), nil)
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}

	start := mustDate(t, "2024-01-01")
	_, err = Compute(start, start.AddDate(0, 0, MaxRangeDays), wednesdayMorning(), nil)
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for oversized range, got %v", err)
	}

	_, err = Compute(start, start.AddDate(0, 0, MaxRangeDays-1), wednesdayMorning(), nil)
	if err != nil {
		t.Fatalf("expected max-sized range to pass, got %v", err)
	}
}

func TestCompute_InvalidConfig(t *testing.T) {
	day := mustDate(t, "2024-01-03")

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "zero slot duration", cfg: Config{SlotDuration: 0}},
		{name: "negative slot duration", cfg: Config{SlotDuration: -15}},
		{name: "negative buffer", cfg: Config{SlotDuration: 30, BufferTime: -5}},
		{
			name: "close before open",
			cfg: Config{SlotDuration: 30, Weekly: map[Weekday][]Window{
				Monday: {window("12:00", "09:00")},
			}},
		},
		{
			name: "close equals open",
			cfg: Config{SlotDuration: 30, Weekly: map[Weekday][]Window{
				Monday: {window("09:00", "09:00")},
			}},
		},
		{
			name: "overlapping windows",
			cfg: Config{SlotDuration: 30, Weekly: map[Weekday][]Window{
				Friday: {window("09:00", "12:00"), window("11:00", "14:00")},
			}},
		},
		{
			name: "bad override window",
			cfg: Config{SlotDuration: 30, Overrides: map[string]Override{
				"2024-01-03": {Windows: []Window{window("15:00", "10:00")}},
			}},
		},
		{
			name: "override key not a date",
			cfg: Config{SlotDuration: 30, Overrides: map[string]Override{
				"next tuesday": {Closed: true},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(day, day, tt.cfg, nil)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
			if got != nil {
				t.Fatalf("expected no partial result, got %+v", got)
			}
		})
	}
}

func TestCompute_WindowShorterThanSlot(t *testing.T) {
	day := mustDate(t, "2024-01-03")
	cfg := Config{
		SlotDuration: 60,
		Weekly: map[Weekday][]Window{
			Wednesday: {window("09:00", "09:45"), window("13:00", "14:30")},
		},
	}

	got, err := Compute(day, day, cfg, nil)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if len(got[0].Slots) != 1 || got[0].Slots[0].Time.String() != "13:00:00" {
		t.Fatalf("expected only 13:00:00, got %+v", got[0].Slots)
	}
}

func TestCompute_WindowsSortedAcrossDay(t *testing.T) {
	day := mustDate(t, "2024-01-03")
	cfg := Config{
		SlotDuration: 30,
		Weekly: map[Weekday][]Window{
			Wednesday: {window("14:00", "15:00"), window("09:00", "10:00")},
		},
	}

	got, err := Compute(day, day, cfg, nil)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}

	var times []string
	for _, s := range got[0].Slots {
		times = append(times, s.Time.String())
	}
	want := []string{"09:00:00", "09:30:00", "14:00:00", "14:30:00"}
	if !reflect.DeepEqual(times, want) {
		t.Fatalf("expected %v, got %v", want, times)
	}
}

func TestCompute_BufferDoesNotSuppressSlots(t *testing.T) {
	day := mustDate(t, "2024-01-03")
	cfg := wednesdayMorning()
	cfg.BufferTime = 30
	appts := []Appointment{{Date: day, Time: MustParseClock("09:00"), Status: StatusConfirmed}}

	got, err := Compute(day, day, cfg, appts)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if len(got[0].Slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(got[0].Slots))
	}
	if !got[0].Slots[1].Available {
		t.Fatalf("expected 10:00:00 to remain listed as available")
	}
}

func TestCompute_ClosedOverride(t *testing.T) {
	day := mustDate(t, "2024-01-03")
	cfg := wednesdayMorning()
	cfg.Overrides = map[string]Override{
		"2024-01-03": {Closed: true, Notes: "Office holiday"},
	}

	got, err := Compute(day, day, cfg, nil)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if len(got[0].Slots) != 0 {
		t.Fatalf("expected no slots, got %+v", got[0].Slots)
	}
	if got[0].Metadata == nil || !got[0].Metadata.SpecialHours {
		t.Fatalf("expected specialHours metadata, got %+v", got[0].Metadata)
	}
	if got[0].Metadata.Notes != "Office holiday" {
		t.Fatalf("expected notes to be carried, got %q", got[0].Metadata.Notes)
	}
}

func TestCompute_SpecialHoursOverride(t *testing.T) {
	// Override opens a Saturday that is normally closed.
	day := mustDate(t, "2024-01-06")
	cfg := wednesdayMorning()
	cfg.Overrides = map[string]Override{
		"2024-01-06": {Windows: []Window{window("10:00", "12:00")}},
	}

	got, err := Compute(day, day, cfg, nil)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if len(got[0].Slots) != 2 {
		t.Fatalf("expected 2 slots, got %+v", got[0].Slots)
	}
	if got[0].Metadata == nil || !got[0].Metadata.SpecialHours {
		t.Fatalf("expected specialHours metadata")
	}
}

func TestCompute_AvailableMatchesCapacity(t *testing.T) {
	start := mustDate(t, "2024-01-01")
	end := mustDate(t, "2024-01-14")
	cfg := Config{
		SlotDuration: 30,
		Capacity:     2,
		Weekly: map[Weekday][]Window{
			Monday:    {window("09:00", "17:00")},
			Wednesday: {window("09:00", "12:00"), window("13:00", "18:00")},
			Friday:    {window("10:00", "14:00")},
		},
	}
	var appts []Appointment
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		appts = append(appts,
			Appointment{Date: d, Time: MustParseClock("09:00"), Status: StatusConfirmed},
			Appointment{Date: d, Time: MustParseClock("09:00"), Status: StatusPending},
			Appointment{Date: d, Time: MustParseClock("10:00"), Status: StatusPending},
		)
	}

	got, err := Compute(start, end, cfg, appts)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	for _, day := range got {
		for _, s := range day.Slots {
			if s.Available != (s.Booked < s.Capacity) {
				t.Fatalf("%s %s: available=%v booked=%d capacity=%d", day.Date, s.Time, s.Available, s.Booked, s.Capacity)
			}
		}
	}
}

func TestCompute_Deterministic(t *testing.T) {
	start := mustDate(t, "2024-01-01")
	end := mustDate(t, "2024-01-31")
	cfg := wednesdayMorning()
	cfg.Overrides = map[string]Override{"2024-01-17": {Closed: true}}
	appts := []Appointment{
		{Date: mustDate(t, "2024-01-10"), Time: MustParseClock("9:00"), Status: StatusConfirmed},
	}

	first, err := Compute(start, end, cfg, appts)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	second, err := Compute(start, end, cfg, appts)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results for identical input")
	}
}

func TestAvailableSlot_JSON(t *testing.T) {
	day := mustDate(t, "2024-01-03")
	appts := []Appointment{{Date: day, Time: MustParseClock("10:00"), Status: StatusConfirmed}}

	got, err := Compute(day, day, wednesdayMorning(), appts)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}

	data, err := json.Marshal(got[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"date":"2024-01-03","dayOfWeek":"wednesday","slots":[` +
		`{"time":"09:00:00","capacity":1,"booked":0,"available":true},` +
		`{"time":"10:00:00","capacity":1,"booked":1,"available":false},` +
		`{"time":"11:00:00","capacity":1,"booked":0,"available":true}]}`
	if string(data) != want {
		t.Fatalf("unexpected JSON:\n got %s\nwant %s", data, want)
	}
}
