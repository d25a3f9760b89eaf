package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/agent-scheduling/internal/availability"
)

type Agent struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment is a showing booked with an agent. Date is a UTC midnight and
// Time the canonical slot start on that date.
type Appointment struct {
	ID          uuid.UUID
	AgentID     uuid.UUID
	PropertyID  *string
	ClientName  string
	ClientEmail string
	ClientPhone *string
	Notes       string
	Date        time.Time
	Time        availability.Clock
	Status      availability.Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ExpiresAt   *time.Time
}

// Booking strips an appointment down to what the availability calculator reads.
func (a Appointment) Booking() availability.Appointment {
	return availability.Appointment{Date: a.Date, Time: a.Time, Status: a.Status}
}

type BookRequest struct {
	AgentID     uuid.UUID
	PropertyID  *string
	Date        time.Time
	Time        availability.Clock
	ClientName  string
	ClientEmail string
	ClientPhone *string
	Notes       string
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
