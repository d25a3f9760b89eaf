package businesshours

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hackgods/agent-scheduling/internal/availability"
	"github.com/hackgods/agent-scheduling/internal/config"
)

func intPtr(v int) *int { return &v }

func TestDefaultsApply(t *testing.T) {
	d := DefaultsFromConfig(config.Config{DefaultSlotDuration: 60, DefaultBufferTime: 0, DefaultSlotCapacity: 1})

	cfg := d.apply(nil, nil, nil)
	if cfg.SlotDuration != 60 || cfg.BufferTime != 0 || cfg.Capacity != 1 {
		t.Fatalf("defaults = %+v", cfg)
	}
	if len(cfg.Weekly) != 0 {
		t.Fatalf("expected no weekly windows, got %v", cfg.Weekly)
	}
	day, _ := availability.ParseDate("2024-05-15")
	if plan := cfg.Resolve(day); !plan.Closed {
		t.Fatalf("agent without hours should be closed, got %+v", plan)
	}

	cfg = d.apply(intPtr(30), intPtr(10), intPtr(3))
	if cfg.SlotDuration != 30 || cfg.BufferTime != 10 || cfg.Capacity != 3 {
		t.Fatalf("stored settings not applied: %+v", cfg)
	}
}

func TestParseWindow(t *testing.T) {
	w, err := parseWindow("9:00", "17:30:00")
	if err != nil {
		t.Fatalf("parseWindow() error = %v", err)
	}
	if w.Open.String() != "09:00:00" || w.Close.String() != "17:30:00" {
		t.Fatalf("window = %s-%s", w.Open, w.Close)
	}

	for _, bad := range [][2]string{{"nine", "17:00"}, {"09:00", "25:00"}} {
		if _, err := parseWindow(bad[0], bad[1]); !errors.Is(err, availability.ErrInvalidConfig) {
			t.Errorf("parseWindow(%q, %q) error = %v, want ErrInvalidConfig", bad[0], bad[1], err)
		}
	}
}

func TestOverrideWindowsJSON(t *testing.T) {
	data, err := encodeWindows(nil)
	if err != nil {
		t.Fatalf("encodeWindows(nil) error = %v", err)
	}
	if string(data) != "[]" {
		t.Fatalf("encodeWindows(nil) = %s, want []", data)
	}

	data, err = encodeWindows([]availability.Window{{
		Open:  availability.MustParseClock("10:00"),
		Close: availability.MustParseClock("14:00"),
	}})
	if err != nil {
		t.Fatalf("encodeWindows() error = %v", err)
	}
	if want := `[{"open":"10:00:00","close":"14:00:00"}]`; string(data) != want {
		t.Fatalf("encodeWindows() = %s, want %s", data, want)
	}

	windows, err := decodeWindows([]byte(`[{"open":"10:00","close":"14:00"}]`))
	if err != nil {
		t.Fatalf("decodeWindows() error = %v", err)
	}
	if len(windows) != 1 || windows[0].Close.String() != "14:00:00" {
		t.Fatalf("decodeWindows() = %+v", windows)
	}

	if windows, err := decodeWindows([]byte(`[]`)); err != nil || windows != nil {
		t.Fatalf("decodeWindows([]) = %v, %v", windows, err)
	}
	if _, err := decodeWindows([]byte(`[{"open":"noon"}]`)); !errors.Is(err, availability.ErrInvalidConfig) {
		t.Fatalf("decodeWindows(bad) error = %v, want ErrInvalidConfig", err)
	}
}

func TestMapWriteError(t *testing.T) {
	fk := fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23503"})
	if err := mapWriteError("save", fk); !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("foreign key violation = %v, want ErrAgentNotFound", err)
	}

	other := &pgconn.PgError{Code: "23514"}
	err := mapWriteError("save", other)
	if errors.Is(err, ErrAgentNotFound) || !errors.As(err, new(*pgconn.PgError)) {
		t.Fatalf("check violation = %v, want wrapped pg error", err)
	}
}
