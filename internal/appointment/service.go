package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/agent-scheduling/internal/availability"
	"github.com/hackgods/agent-scheduling/internal/config"
	"github.com/hackgods/agent-scheduling/internal/events"
	redisclient "github.com/hackgods/agent-scheduling/internal/redis"
)

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventAppointmentNoShow    = "APPOINTMENT_NO_SHOW"
	EventAppointmentExpired   = "APPOINTMENT_EXPIRED"
)

var (
	ErrSlotNotOffered          = errors.New("time is not an offered slot for that date")
	ErrSlotInPast              = errors.New("slot has already started")
	ErrSlotFull                = errors.New("slot is fully booked")
	ErrBufferConflict          = errors.New("slot conflicts with the buffer around another appointment")
	ErrSlotBeingBooked         = errors.New("agent schedule is currently being booked, please retry")
	ErrAppointmentExpired      = errors.New("appointment hold has expired")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// HoursStore provides an agent's business hours configuration.
type HoursStore interface {
	Load(ctx context.Context, agentID uuid.UUID) (availability.Config, error)
}

type Service struct {
	repo      Repository
	hours     HoursStore
	locker    redisclient.Locker
	publisher events.Publisher
	cfg       config.Config
	log       *zap.Logger
	now       func() time.Time
}

func NewService(repo Repository, hours HoursStore, locker redisclient.Locker, publisher events.Publisher, cfg config.Config, log *zap.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		repo:      repo,
		hours:     hours,
		locker:    locker,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Availability computes the agent's open slots for the inclusive date range.
// A zero end means the single day start.
func (s *Service) Availability(ctx context.Context, agentID uuid.UUID, start, end time.Time) ([]availability.AvailableSlot, error) {
	start, end, err := availability.NormalizeRange(start, end)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetAgentByID(ctx, agentID); err != nil {
		if errors.Is(err, ErrAgentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load agent: %w", ErrStoreUnavailable, err)
	}

	hours, err := s.hours.Load(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("load business hours: %w", err)
	}

	appts, err := s.repo.FetchAppointments(ctx, agentID, start, end)
	if err != nil {
		return nil, err
	}

	return availability.Compute(start, end, hours, appts)
}

// Book places a pending hold on a slot. The check against existing bookings
// and the insert run under the agent-day locks so concurrent requests cannot
// both see the slot as free.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	if _, err := s.repo.GetAgentByID(ctx, req.AgentID); err != nil {
		if errors.Is(err, ErrAgentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load agent: %w", err)
	}

	hours, err := s.hours.Load(ctx, req.AgentID)
	if err != nil {
		return nil, fmt.Errorf("load business hours: %w", err)
	}
	if err := hours.Validate(); err != nil {
		return nil, err
	}

	date := availability.DateOf(req.Date)
	if !hours.Offers(date, req.Time) {
		return nil, ErrSlotNotOffered
	}
	now := s.now()
	if req.Time.On(date, s.cfg.TimeLocation()).Before(now) {
		return nil, ErrSlotInPast
	}

	days := bufferDays(date, req.Time, slotSpan(hours))
	var created *Appointment

	err = s.withDayLocks(ctx, req.AgentID, days, func(lockCtx context.Context) error {
		// Re-read inside the critical section
		existing, err := s.repo.ListAppointments(lockCtx, req.AgentID, days[0], days[len(days)-1])
		if err != nil {
			return fmt.Errorf("%w: list appointments: %w", ErrStoreUnavailable, err)
		}
		if err := checkSlot(hours, date, existing, req.Time); err != nil {
			return err
		}

		expiresAt := now.Add(s.cfg.AppointmentTTL)
		appt, err := s.repo.CreateAppointment(lockCtx, Appointment{
			AgentID:     req.AgentID,
			PropertyID:  req.PropertyID,
			ClientName:  req.ClientName,
			ClientEmail: req.ClientEmail,
			ClientPhone: req.ClientPhone,
			Notes:       req.Notes,
			Date:        date,
			Time:        req.Time,
			Status:      availability.StatusPending,
			ExpiresAt:   &expiresAt,
		})
		if err != nil {
			return fmt.Errorf("create pending appointment: %w", err)
		}

		created = appt
		s.record(lockCtx, appt, EventAppointmentBooked, map[string]any{
			"date":       availability.FormatDate(date),
			"time":       req.Time.String(),
			"expires_at": expiresAt,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return created, nil
}

const secondsPerDay = 24 * 60 * 60

func slotSpan(hours availability.Config) availability.Clock {
	return availability.Clock((hours.SlotDuration + hours.BufferTime) * 60)
}

// bufferDays lists, in ascending order, the dates whose bookings can fall
// within span of t on date. A span reaching past midnight pulls in the
// neighbouring day.
func bufferDays(date time.Time, t, span availability.Clock) []time.Time {
	days := make([]time.Time, 0, 3)
	if t < span {
		days = append(days, date.AddDate(0, 0, -1))
	}
	days = append(days, date)
	if t+span > secondsPerDay {
		days = append(days, date.AddDate(0, 0, 1))
	}
	return days
}

// withDayLocks runs fn holding the agent-day lock of every date in days.
// Locks are taken in date order.
func (s *Service) withDayLocks(ctx context.Context, agentID uuid.UUID, days []time.Time, fn func(ctx context.Context) error) error {
	if len(days) == 0 {
		return fn(ctx)
	}
	return s.locker.WithAgentDayLock(ctx, agentID, days[0], func(lockCtx context.Context) error {
		return s.withDayLocks(lockCtx, agentID, days[1:], fn)
	})
}

// checkSlot enforces capacity at t on date and the buffer around every other
// appointment that still holds capacity. Appointments on neighbouring dates
// are placed relative to date's midnight.
func checkSlot(hours availability.Config, date time.Time, existing []Appointment, t availability.Clock) error {
	span := slotSpan(hours)

	booked := 0
	for _, e := range existing {
		if !e.Status.HoldsCapacity() {
			continue
		}
		dayOffset := int(availability.DateOf(e.Date).Sub(date) / (24 * time.Hour))
		at := e.Time + availability.Clock(dayOffset*secondsPerDay)
		if at == t {
			booked++
			continue
		}
		if t < at+span && at < t+span {
			return ErrBufferConflict
		}
	}
	if booked >= hours.EffectiveCapacity() {
		return ErrSlotFull
	}
	return nil
}

// Confirm moves a pending appointment to confirmed
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if appt.Status == availability.StatusPending && appt.ExpiresAt != nil && appt.ExpiresAt.Before(s.now()) {
		s.expire(ctx, appt, "confirm_after_expiry")
		return nil, ErrAppointmentExpired
	}

	return s.transition(ctx, appt, []availability.Status{availability.StatusPending}, availability.StatusConfirmed, EventAppointmentConfirmed)
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transitionByID(ctx, id,
		[]availability.Status{availability.StatusPending, availability.StatusConfirmed},
		availability.StatusCancelled, EventAppointmentCancelled)
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transitionByID(ctx, id,
		[]availability.Status{availability.StatusConfirmed},
		availability.StatusCompleted, EventAppointmentCompleted)
}

func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transitionByID(ctx, id,
		[]availability.Status{availability.StatusConfirmed},
		availability.StatusNoShow, EventAppointmentNoShow)
}

func (s *Service) transitionByID(ctx context.Context, id uuid.UUID, from []availability.Status, to availability.Status, eventType string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	return s.transition(ctx, appt, from, to, eventType)
}

func (s *Service) transition(ctx context.Context, appt *Appointment, from []availability.Status, to availability.Status, eventType string) (*Appointment, error) {
	if !slices.Contains(from, appt.Status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, appt.Status, to)
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, from, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// status changed underneath us
			return nil, fmt.Errorf("%w: %s changed concurrently", ErrInvalidStatusTransition, appt.ID)
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	s.record(ctx, updated, eventType, map[string]any{
		"from": string(appt.Status),
		"to":   string(to),
	})

	return updated, nil
}

// Get returns a single appointment
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

// ListByAgent lists the agent's appointments in the inclusive date range.
func (s *Service) ListByAgent(ctx context.Context, agentID uuid.UUID, start, end time.Time) ([]Appointment, error) {
	start, end, err := availability.NormalizeRange(start, end)
	if err != nil {
		return nil, err
	}

	appts, err := s.repo.ListAppointments(ctx, agentID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list appointments by agent: %w", err)
	}
	return appts, nil
}

// ExpirePendingAppointments releases holds that were never confirmed. It is
// intended to be called by the worker periodically and returns how many
// appointments it cancelled.
func (s *Service) ExpirePendingAppointments(ctx context.Context) (int, error) {
	candidates, err := s.repo.FindExpiredPending(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("find expired pending appointments: %w", err)
	}

	expired := 0
	for i := range candidates {
		if s.expire(ctx, &candidates[i], "worker") {
			expired++
		}
	}

	return expired, nil
}

func (s *Service) expire(ctx context.Context, appt *Appointment, reason string) bool {
	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID,
		[]availability.Status{availability.StatusPending}, availability.StatusCancelled)
	if err != nil {
		if !errors.Is(err, ErrAppointmentNotFound) {
			s.log.Error("failed to expire appointment",
				zap.String("appointment_id", appt.ID.String()), zap.Error(err))
		}
		return false
	}

	s.record(ctx, updated, EventAppointmentExpired, map[string]any{"reason": reason})
	return true
}

// record writes the event log row and publishes the event. Neither failure
// undoes the state change that caused it.
func (s *Service) record(ctx context.Context, appt *Appointment, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("failed to marshal event payload", zap.String("event_type", eventType), zap.Error(err))
		data = nil
	}

	apptID := appt.ID
	now := s.now()

	if err := s.repo.InsertEvent(ctx, EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     now,
	}); err != nil {
		s.log.Error("failed to insert event log",
			zap.String("event_type", eventType),
			zap.String("appointment_id", apptID.String()),
			zap.Error(err))
	}

	if err := s.publisher.Publish(ctx, events.Event{
		ID:            uuid.New(),
		Type:          eventType,
		AgentID:       appt.AgentID,
		AppointmentID: apptID,
		OccurredAt:    now,
		Payload:       payload,
	}); err != nil {
		s.log.Warn("failed to publish event",
			zap.String("event_type", eventType),
			zap.String("appointment_id", apptID.String()),
			zap.Error(err))
	}
}
