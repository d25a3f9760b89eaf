package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/agent-scheduling/internal/availability"
)

var (
	ErrAgentNotFound       = errors.New("agent not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrStoreUnavailable    = errors.New("appointment store unavailable")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetAgentByID(ctx context.Context, id uuid.UUID) (*Agent, error)
	CreateAgent(ctx context.Context, a Agent) (*Agent, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// ListAppointments returns every appointment of the agent in the inclusive
	// date range, ordered by date and time, cancelled ones included.
	ListAppointments(ctx context.Context, agentID uuid.UUID, start, end time.Time) ([]Appointment, error)

	// FetchAppointments feeds the availability calculator. Backend failures
	// are wrapped with ErrStoreUnavailable.
	FetchAppointments(ctx context.Context, agentID uuid.UUID, start, end time.Time) ([]availability.Appointment, error)

	// Creation and updates
	CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from []availability.Status, to availability.Status) (*Appointment, error)

	// Expiry worker
	FindExpiredPending(ctx context.Context, now time.Time) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
