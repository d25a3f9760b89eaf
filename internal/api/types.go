package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/agent-scheduling/internal/appointment"
	"github.com/hackgods/agent-scheduling/internal/availability"
)

type BookAppointmentRequest struct {
	AgentID     string  `json:"agent_id" validate:"required,uuid"`
	PropertyID  *string `json:"property_id,omitempty" validate:"omitempty,max=64"`
	Date        string  `json:"date" validate:"required,isodate"`
	Time        string  `json:"time" validate:"required,clock"`
	ClientName  string  `json:"client_name" validate:"required,min=2,max=120"`
	ClientEmail string  `json:"client_email" validate:"required,email"`
	ClientPhone *string `json:"client_phone,omitempty" validate:"omitempty,e164"`
	Notes       string  `json:"notes" validate:"max=1000"`
}

type WindowRequest struct {
	Open  string `json:"open" validate:"required,clock"`
	Close string `json:"close" validate:"required,clock"`
}

type OverrideRequest struct {
	Closed  bool            `json:"closed"`
	Windows []WindowRequest `json:"windows" validate:"dive"`
	Notes   string          `json:"notes" validate:"max=500"`
}

type BusinessHoursRequest struct {
	SlotDuration  int                        `json:"slotDuration" validate:"required,min=5,max=480"`
	BufferTime    int                        `json:"bufferTime" validate:"min=0,max=240"`
	Capacity      int                        `json:"capacity" validate:"omitempty,min=1,max=100"`
	BusinessHours map[string][]WindowRequest `json:"businessHours" validate:"dive,keys,weekday,endkeys,dive"`
	Overrides     map[string]OverrideRequest `json:"overrides" validate:"dive,keys,isodate,endkeys"`
}

type AppointmentResponse struct {
	ID          uuid.UUID  `json:"id"`
	AgentID     uuid.UUID  `json:"agent_id"`
	PropertyID  *string    `json:"property_id,omitempty"`
	ClientName  string     `json:"client_name"`
	ClientEmail string     `json:"client_email"`
	ClientPhone *string    `json:"client_phone,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	Date        string     `json:"date"`
	Time        string     `json:"time"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID,
		AgentID:     a.AgentID,
		PropertyID:  a.PropertyID,
		ClientName:  a.ClientName,
		ClientEmail: a.ClientEmail,
		ClientPhone: a.ClientPhone,
		Notes:       a.Notes,
		Date:        availability.FormatDate(a.Date),
		Time:        a.Time.String(),
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt,
		ExpiresAt:   a.ExpiresAt,
	}
}

// toConfig converts a validated request. Clock and date strings have
// already passed their validate tags.
func (req BusinessHoursRequest) toConfig() (availability.Config, error) {
	cfg := availability.Config{
		SlotDuration: req.SlotDuration,
		BufferTime:   req.BufferTime,
		Capacity:     req.Capacity,
		Weekly:       map[availability.Weekday][]availability.Window{},
		Overrides:    map[string]availability.Override{},
	}

	for name, windows := range req.BusinessHours {
		day, err := availability.ParseWeekday(name)
		if err != nil {
			return availability.Config{}, err
		}
		converted, err := toWindows(windows)
		if err != nil {
			return availability.Config{}, err
		}
		cfg.Weekly[day] = append(cfg.Weekly[day], converted...)
	}

	for key, o := range req.Overrides {
		date, err := availability.ParseDate(key)
		if err != nil {
			return availability.Config{}, err
		}
		override, err := o.toOverride()
		if err != nil {
			return availability.Config{}, err
		}
		cfg.Overrides[availability.FormatDate(date)] = override
	}

	return cfg, nil
}

func (o OverrideRequest) toOverride() (availability.Override, error) {
	windows, err := toWindows(o.Windows)
	if err != nil {
		return availability.Override{}, err
	}
	return availability.Override{Closed: o.Closed, Windows: windows, Notes: o.Notes}, nil
}

func toWindows(in []WindowRequest) ([]availability.Window, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]availability.Window, 0, len(in))
	for _, w := range in {
		open, err := availability.ParseClock(w.Open)
		if err != nil {
			return nil, err
		}
		closeAt, err := availability.ParseClock(w.Close)
		if err != nil {
			return nil, err
		}
		out = append(out, availability.Window{Open: open, Close: closeAt})
	}
	return out, nil
}
