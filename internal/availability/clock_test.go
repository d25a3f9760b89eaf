package availability

import (
	"errors"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "09:00", want: "09:00:00"},
		{in: "9:00", want: "09:00:00"},
		{in: "09:00:00", want: "09:00:00"},
		{in: " 17:30 ", want: "17:30:00"},
		{in: "23:59:59", want: "23:59:59"},
		{in: "00:00", want: "00:00:00"},
		{in: "24:00", want: "24:00:00"},
		{in: "24:01", wantErr: true},
		{in: "25:00", wantErr: true},
		{in: "09:60", wantErr: true},
		{in: "09:00:60", wantErr: true},
		{in: "09-00", wantErr: true},
		{in: "9", wantErr: true},
		{in: "09:0", wantErr: true},
		{in: "+9:00", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidClock) {
					t.Fatalf("expected ErrInvalidClock, got %v (%s)", err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseClock(%q) error: %v", tt.in, err)
			}
			if got.String() != tt.want {
				t.Fatalf("ParseClock(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestClock_EqualityIsCanonical(t *testing.T) {
	a := MustParseClock("10:00")
	b := MustParseClock("10:00:00")
	if a != b || a.String() != b.String() {
		t.Fatalf("expected %s and %s to be equal", a, b)
	}
}

func TestClock_TextRoundTrip(t *testing.T) {
	var c Clock
	if err := c.UnmarshalText([]byte("8:15")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	text, err := c.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	if string(text) != "08:15:00" {
		t.Fatalf("expected 08:15:00, got %s", text)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Weekday() != time.Thursday {
		t.Fatalf("expected thursday, got %s", d.Weekday())
	}

	for _, bad := range []string{"2024-02-30", "02/01/2024", "", "2024-1-1"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("ParseDate(%q): expected ErrInvalidDate, got %v", bad, err)
		}
	}
}

func TestDateOf_DropsLocationAndTime(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	in := time.Date(2024, 3, 10, 23, 30, 0, 0, loc)
	got := DateOf(in)
	if FormatDate(got) != "2024-03-10" || got.Location() != time.UTC || got.Hour() != 0 {
		t.Fatalf("unexpected DateOf result: %s", got)
	}
}

func TestParseWeekday(t *testing.T) {
	for i, name := range []string{"Sunday", "monday", " TUESDAY ", "wednesday", "thursday", "friday", "saturday"} {
		d, err := ParseWeekday(name)
		if err != nil {
			t.Fatalf("ParseWeekday(%q): %v", name, err)
		}
		if int(d) != i {
			t.Fatalf("ParseWeekday(%q) = %d, want %d", name, d, i)
		}
	}
	if _, err := ParseWeekday("funday"); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestWindowStarts(t *testing.T) {
	w := window("09:00", "10:30")
	starts := w.Starts(30)
	if len(starts) != 3 || starts[2].String() != "10:00:00" {
		t.Fatalf("unexpected starts: %v", starts)
	}
	if got := w.Starts(0); got != nil {
		t.Fatalf("expected nil for zero duration, got %v", got)
	}
	if got := window("23:00", "24:00").Starts(60); len(got) != 1 {
		t.Fatalf("expected a slot ending at midnight, got %v", got)
	}
}

func TestConfigOffers(t *testing.T) {
	cfg := wednesdayMorning()
	day, _ := ParseDate("2024-01-03")

	if !cfg.Offers(day, MustParseClock("11:00")) {
		t.Fatalf("expected 11:00 to be offered")
	}
	if cfg.Offers(day, MustParseClock("11:30")) {
		t.Fatalf("expected 11:30 not to be offered")
	}
	if cfg.Offers(day.AddDate(0, 0, 1), MustParseClock("09:00")) {
		t.Fatalf("expected thursday to be closed")
	}
}

func TestClockOn(t *testing.T) {
	day, _ := ParseDate("2030-01-16")
	mexico := time.FixedZone("CST", -6*60*60)

	tests := []struct {
		name  string
		clock string
		loc   *time.Location
		want  time.Time
	}{
		{"utc", "11:00", time.UTC, time.Date(2030, 1, 16, 11, 0, 0, 0, time.UTC)},
		{"nil location is utc", "09:30", nil, time.Date(2030, 1, 16, 9, 30, 0, 0, time.UTC)},
		{"local zone", "11:00", mexico, time.Date(2030, 1, 16, 17, 0, 0, 0, time.UTC)},
		{"end of day rolls over", "24:00", time.UTC, time.Date(2030, 1, 17, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MustParseClock(tt.clock).On(day, tt.loc)
			if !got.Equal(tt.want) {
				t.Fatalf("On() = %s, want %s", got, tt.want)
			}
		})
	}
}
