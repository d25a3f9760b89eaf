package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/agent-scheduling/internal/appointment"
	"github.com/hackgods/agent-scheduling/internal/availability"
	"github.com/hackgods/agent-scheduling/internal/validation"
)

type AppointmentService interface {
	Availability(ctx context.Context, agentID uuid.UUID, start, end time.Time) ([]availability.AvailableSlot, error)
	Book(ctx context.Context, req appointment.BookRequest) (*appointment.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID, start, end time.Time) ([]appointment.Appointment, error)
	Confirm(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	Complete(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	MarkNoShow(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
}

type BusinessHoursStore interface {
	Load(ctx context.Context, agentID uuid.UUID) (availability.Config, error)
	Save(ctx context.Context, agentID uuid.UUID, cfg availability.Config) error
	SetOverride(ctx context.Context, agentID uuid.UUID, date time.Time, o availability.Override) error
	DeleteOverride(ctx context.Context, agentID uuid.UUID, date time.Time) error
}

type RouterConfig struct {
	Service   AppointmentService
	Hours     BusinessHoursStore
	Validator *validation.Validator
	Logger    *zap.Logger

	PostgresPing PingFunc
	RedisPing    PingFunc

	RateLimitPerMinute int
	RateLimitBurst     int

	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoveryMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PostgresPing, cfg.RedisPing, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/api", func(r chi.Router) {
		// Appointment endpoints
		r.Get("/appointments/available", availableSlotsHandler(cfg.Service))
		r.With(RateLimitMiddleware(cfg.RateLimitPerMinute, cfg.RateLimitBurst, cfg.Logger)).
			Post("/appointments", bookAppointmentHandler(cfg.Service, cfg.Validator))
		r.Get("/appointments", listAppointmentsHandler(cfg.Service))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
		r.Post("/appointments/{id}/confirm", appointmentAction(cfg.Service.Confirm))
		r.Post("/appointments/{id}/cancel", appointmentAction(cfg.Service.Cancel))
		r.Post("/appointments/{id}/complete", appointmentAction(cfg.Service.Complete))
		r.Post("/appointments/{id}/no-show", appointmentAction(cfg.Service.MarkNoShow))

		// Business hours endpoints
		r.Get("/agents/{id}/business-hours", getBusinessHoursHandler(cfg.Hours))
		r.Put("/agents/{id}/business-hours", putBusinessHoursHandler(cfg.Hours, cfg.Validator))
		r.Put("/agents/{id}/overrides/{date}", putOverrideHandler(cfg.Hours, cfg.Validator))
		r.Delete("/agents/{id}/overrides/{date}", deleteOverrideHandler(cfg.Hours))
	})

	return r
}
