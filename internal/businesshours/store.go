package businesshours

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/agent-scheduling/internal/availability"
	"github.com/hackgods/agent-scheduling/internal/config"
)

var (
	ErrAgentNotFound    = errors.New("agent not found")
	ErrOverrideNotFound = errors.New("override not found")
)

// Defaults is what an agent without stored hours gets: the configured slot
// settings and no weekly windows, so every day is closed until hours are saved.
type Defaults struct {
	SlotDuration int
	BufferTime   int
	Capacity     int
}

func DefaultsFromConfig(cfg config.Config) Defaults {
	return Defaults{
		SlotDuration: cfg.DefaultSlotDuration,
		BufferTime:   cfg.DefaultBufferTime,
		Capacity:     cfg.DefaultSlotCapacity,
	}
}

// apply builds an empty configuration, taking each stored setting when present.
func (d Defaults) apply(duration, buffer, capacity *int) availability.Config {
	cfg := availability.Config{
		SlotDuration: d.SlotDuration,
		BufferTime:   d.BufferTime,
		Capacity:     d.Capacity,
		Weekly:       map[availability.Weekday][]availability.Window{},
		Overrides:    map[string]availability.Override{},
	}
	if duration != nil {
		cfg.SlotDuration = *duration
	}
	if buffer != nil {
		cfg.BufferTime = *buffer
	}
	if capacity != nil {
		cfg.Capacity = *capacity
	}
	return cfg
}

type PgStore struct {
	pool     *pgxpool.Pool
	defaults Defaults
}

func NewPgStore(pool *pgxpool.Pool, defaults Defaults) *PgStore {
	return &PgStore{pool: pool, defaults: defaults}
}

// Load assembles the agent's configuration from its settings row, weekly
// windows and date overrides. Stored rows that fail validation are reported
// as availability.ErrInvalidConfig.
func (s *PgStore) Load(ctx context.Context, agentID uuid.UUID) (availability.Config, error) {
	var duration, buffer, capacity *int
	err := s.pool.QueryRow(ctx, `
		SELECT h.slot_duration, h.buffer_time, h.capacity
		FROM agents a
		LEFT JOIN agent_hours h ON h.agent_id = a.id
		WHERE a.id = $1
	`, agentID).Scan(&duration, &buffer, &capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return availability.Config{}, ErrAgentNotFound
		}
		return availability.Config{}, fmt.Errorf("load agent hours: %w", err)
	}
	cfg := s.defaults.apply(duration, buffer, capacity)

	rows, err := s.pool.Query(ctx, `
		SELECT weekday, open_time, close_time
		FROM agent_hours_windows
		WHERE agent_id = $1
		ORDER BY weekday, open_time
	`, agentID)
	if err != nil {
		return availability.Config{}, fmt.Errorf("load agent windows: %w", err)
	}
	for rows.Next() {
		var day int16
		var openAt, closeAt string
		if err := rows.Scan(&day, &openAt, &closeAt); err != nil {
			rows.Close()
			return availability.Config{}, fmt.Errorf("scan agent window: %w", err)
		}
		w, err := parseWindow(openAt, closeAt)
		if err != nil {
			rows.Close()
			return availability.Config{}, err
		}
		wd := availability.Weekday(day)
		cfg.Weekly[wd] = append(cfg.Weekly[wd], w)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return availability.Config{}, fmt.Errorf("load agent windows: %w", err)
	}

	rows, err = s.pool.Query(ctx, `
		SELECT date, closed, notes, windows
		FROM agent_hours_overrides
		WHERE agent_id = $1
		ORDER BY date
	`, agentID)
	if err != nil {
		return availability.Config{}, fmt.Errorf("load agent overrides: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		date, o, err := scanOverride(rows)
		if err != nil {
			return availability.Config{}, err
		}
		cfg.Overrides[availability.FormatDate(date)] = o
	}
	if err := rows.Err(); err != nil {
		return availability.Config{}, fmt.Errorf("load agent overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return availability.Config{}, fmt.Errorf("agent %s: %w", agentID, err)
	}
	return cfg, nil
}

func (s *PgStore) Resolve(ctx context.Context, agentID uuid.UUID, date time.Time) (availability.DayPlan, error) {
	cfg, err := s.Load(ctx, agentID)
	if err != nil {
		return availability.DayPlan{}, err
	}
	return cfg.Resolve(date), nil
}

// Save replaces the agent's settings, weekly windows and overrides in one
// transaction.
func (s *PgStore) Save(ctx context.Context, agentID uuid.UUID, cfg availability.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save hours: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO agent_hours (agent_id, slot_duration, buffer_time, capacity, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (agent_id) DO UPDATE
		SET slot_duration = EXCLUDED.slot_duration,
		    buffer_time = EXCLUDED.buffer_time,
		    capacity = EXCLUDED.capacity,
		    updated_at = now()
	`, agentID, cfg.SlotDuration, cfg.BufferTime, cfg.EffectiveCapacity())
	if err != nil {
		return mapWriteError("save agent hours", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM agent_hours_windows WHERE agent_id = $1`, agentID); err != nil {
		return fmt.Errorf("clear agent windows: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM agent_hours_overrides WHERE agent_id = $1`, agentID); err != nil {
		return fmt.Errorf("clear agent overrides: %w", err)
	}

	batch := &pgx.Batch{}
	for _, day := range availability.Weekdays {
		for _, w := range cfg.Weekly[day] {
			batch.Queue(`
				INSERT INTO agent_hours_windows (agent_id, weekday, open_time, close_time)
				VALUES ($1, $2, $3, $4)
			`, agentID, int16(day), w.Open.String(), w.Close.String())
		}
	}
	for key, o := range cfg.Overrides {
		date, _ := availability.ParseDate(key)
		windows, err := encodeWindows(o.Windows)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO agent_hours_overrides (agent_id, date, closed, notes, windows)
			VALUES ($1, $2, $3, $4, $5)
		`, agentID, date, o.Closed, o.Notes, windows)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("save agent windows: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save hours: %w", err)
	}
	return nil
}

// SetOverride creates or replaces the override for one date.
func (s *PgStore) SetOverride(ctx context.Context, agentID uuid.UUID, date time.Time, o availability.Override) error {
	check := availability.Config{
		SlotDuration: 1,
		Overrides:    map[string]availability.Override{availability.FormatDate(date): o},
	}
	if err := check.Validate(); err != nil {
		return err
	}

	windows, err := encodeWindows(o.Windows)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO agent_hours_overrides (agent_id, date, closed, notes, windows)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (agent_id, date) DO UPDATE
		SET closed = EXCLUDED.closed,
		    notes = EXCLUDED.notes,
		    windows = EXCLUDED.windows
	`, agentID, availability.DateOf(date), o.Closed, o.Notes, windows)
	if err != nil {
		return mapWriteError("save override", err)
	}
	return nil
}

func (s *PgStore) DeleteOverride(ctx context.Context, agentID uuid.UUID, date time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM agent_hours_overrides
		WHERE agent_id = $1 AND date = $2
	`, agentID, availability.DateOf(date))
	if err != nil {
		return fmt.Errorf("delete override: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOverrideNotFound
	}
	return nil
}

func scanOverride(row pgx.Row) (time.Time, availability.Override, error) {
	var date time.Time
	var o availability.Override
	var raw []byte

	if err := row.Scan(&date, &o.Closed, &o.Notes, &raw); err != nil {
		return time.Time{}, availability.Override{}, fmt.Errorf("scan override: %w", err)
	}

	windows, err := decodeWindows(raw)
	if err != nil {
		return time.Time{}, availability.Override{}, fmt.Errorf("override %s: %w", availability.FormatDate(date), err)
	}
	o.Windows = windows
	return availability.DateOf(date), o, nil
}

func parseWindow(openAt, closeAt string) (availability.Window, error) {
	o, err := availability.ParseClock(openAt)
	if err != nil {
		return availability.Window{}, fmt.Errorf("%w: stored open time: %w", availability.ErrInvalidConfig, err)
	}
	c, err := availability.ParseClock(closeAt)
	if err != nil {
		return availability.Window{}, fmt.Errorf("%w: stored close time: %w", availability.ErrInvalidConfig, err)
	}
	return availability.Window{Open: o, Close: c}, nil
}

func encodeWindows(windows []availability.Window) ([]byte, error) {
	if windows == nil {
		windows = []availability.Window{}
	}
	data, err := json.Marshal(windows)
	if err != nil {
		return nil, fmt.Errorf("encode override windows: %w", err)
	}
	return data, nil
}

func decodeWindows(raw []byte) ([]availability.Window, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var windows []availability.Window
	if err := json.Unmarshal(raw, &windows); err != nil {
		return nil, fmt.Errorf("%w: stored override windows: %w", availability.ErrInvalidConfig, err)
	}
	if len(windows) == 0 {
		return nil, nil
	}
	return windows, nil
}

// mapWriteError turns a foreign key violation on agent_id into ErrAgentNotFound.
func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrAgentNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
