package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/agent-scheduling/internal/appointment"
	"github.com/hackgods/agent-scheduling/internal/availability"
	"github.com/hackgods/agent-scheduling/internal/businesshours"
	"github.com/hackgods/agent-scheduling/internal/config"
	"github.com/hackgods/agent-scheduling/internal/db"
	"github.com/hackgods/agent-scheduling/internal/logger"
)

const (
	agentCount   = 25
	seedDays     = 14
	bookingRatio = 0.3
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	gofakeit.Seed(time.Now().UnixNano())

	repo := appointment.NewPgRepository(pool)
	hours := businesshours.NewPgStore(pool, businesshours.DefaultsFromConfig(cfg))

	booked := 0
	for i := 0; i < agentCount; i++ {
		n, err := seedAgent(ctx, repo, hours)
		if err != nil {
			log.Fatal("seed agent", zap.Int("index", i), zap.Error(err))
		}
		booked += n
	}

	log.Info("seed complete", zap.Int("agents", agentCount), zap.Int("appointments", booked))
}

func seedAgent(ctx context.Context, repo *appointment.PgRepository, hours *businesshours.PgStore) (int, error) {
	email := gofakeit.Email()
	phone := gofakeit.Phone()
	agent, err := repo.CreateAgent(ctx, appointment.Agent{
		Name:  gofakeit.Name(),
		Email: &email,
		Phone: &phone,
	})
	if err != nil {
		return 0, fmt.Errorf("create agent: %w", err)
	}

	cfg := randomHours()
	if err := hours.Save(ctx, agent.ID, cfg); err != nil {
		return 0, fmt.Errorf("save hours: %w", err)
	}

	today := availability.DateOf(time.Now())

	// one special day per agent
	special := today.AddDate(0, 0, gofakeit.Number(1, seedDays))
	override := availability.Override{Closed: true, Notes: "Out of office"}
	if gofakeit.Bool() {
		override = availability.Override{
			Windows: []availability.Window{{
				Open:  availability.MustParseClock("10:00"),
				Close: availability.MustParseClock("14:00"),
			}},
			Notes: "Open house at " + gofakeit.Street(),
		}
	}
	if err := hours.SetOverride(ctx, agent.ID, special, override); err != nil {
		return 0, fmt.Errorf("set override: %w", err)
	}
	cfg.Overrides = map[string]availability.Override{availability.FormatDate(special): override}

	booked := 0
	for d := 1; d <= seedDays; d++ {
		date := today.AddDate(0, 0, d)
		for _, t := range cfg.SlotStarts(date) {
			if gofakeit.Float64Range(0, 1) > bookingRatio {
				continue
			}
			if _, err := repo.CreateAppointment(ctx, randomAppointment(agent.ID, date, t)); err != nil {
				return booked, fmt.Errorf("create appointment: %w", err)
			}
			booked++
		}
	}
	return booked, nil
}

// randomHours gives weekdays a morning and afternoon block and sometimes a
// Saturday morning.
func randomHours() availability.Config {
	durations := []int{30, 45, 60}
	morning := availability.Window{Open: availability.MustParseClock("09:00"), Close: availability.MustParseClock("13:00")}
	afternoon := availability.Window{Open: availability.MustParseClock("14:00"), Close: availability.MustParseClock("18:00")}

	weekly := map[availability.Weekday][]availability.Window{}
	for _, day := range []availability.Weekday{availability.Monday, availability.Tuesday, availability.Wednesday, availability.Thursday, availability.Friday} {
		weekly[day] = []availability.Window{morning, afternoon}
	}
	if gofakeit.Bool() {
		weekly[availability.Saturday] = []availability.Window{{
			Open:  availability.MustParseClock("10:00"),
			Close: availability.MustParseClock("14:00"),
		}}
	}

	return availability.Config{
		SlotDuration: durations[gofakeit.Number(0, len(durations)-1)],
		BufferTime:   0,
		Capacity:     gofakeit.Number(1, 2),
		Weekly:       weekly,
	}
}

func randomAppointment(agentID uuid.UUID, date time.Time, t availability.Clock) appointment.Appointment {
	statuses := []availability.Status{
		availability.StatusConfirmed,
		availability.StatusConfirmed,
		availability.StatusCancelled,
	}
	property := fmt.Sprintf("EB-%05d", gofakeit.Number(1, 99999))
	phone := gofakeit.Phone()

	return appointment.Appointment{
		AgentID:     agentID,
		PropertyID:  &property,
		ClientName:  gofakeit.Name(),
		ClientEmail: gofakeit.Email(),
		ClientPhone: &phone,
		Notes:       "Interested in " + gofakeit.Street(),
		Date:        date,
		Time:        t,
		Status:      statuses[gofakeit.Number(0, len(statuses)-1)],
	}
}
