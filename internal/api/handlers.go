package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/agent-scheduling/internal/appointment"
	"github.com/hackgods/agent-scheduling/internal/availability"
	"github.com/hackgods/agent-scheduling/internal/businesshours"
	"github.com/hackgods/agent-scheduling/internal/validation"
)

// availableSlotsHandler serves GET /api/appointments/available. Every failure,
// bad input included, is reported as 500 with the error message.
func availableSlotsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		agentID, err := uuid.Parse(q.Get("agent_id"))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "agent_id must be a valid UUID"})
			return
		}
		start, end, err := parseRange(q.Get("start"), q.Get("end"))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}

		days, err := svc.Availability(r.Context(), agentID, start, end)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, days)
	}
}

func bookAppointmentHandler(svc AppointmentService, v *validation.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := v.Struct(&req); err != nil {
			writeValidationError(w, err)
			return
		}

		// validate tags guarantee these parse
		agentID, _ := uuid.Parse(req.AgentID)
		date, _ := availability.ParseDate(req.Date)
		clock, _ := availability.ParseClock(req.Time)

		appt, err := svc.Book(r.Context(), appointment.BookRequest{
			AgentID:     agentID,
			PropertyID:  req.PropertyID,
			Date:        date,
			Time:        clock,
			ClientName:  req.ClientName,
			ClientEmail: req.ClientEmail,
			ClientPhone: req.ClientPhone,
			Notes:       req.Notes,
		})
		if err != nil {
			handleBookError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		agentID, err := uuid.Parse(q.Get("agent_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_agent_id", "agent_id must be a valid UUID")
			return
		}
		start, end, err := parseRange(q.Get("start"), q.Get("end"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}

		appts, err := svc.ListByAgent(r.Context(), agentID, start, end)
		if err != nil {
			if errors.Is(err, availability.ErrInvalidRange) {
				writeError(w, http.StatusBadRequest, "invalid_range", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return appointmentAction(svc.Get)
}

// appointmentAction adapts a service call keyed by the {id} URL param.
func appointmentAction(action func(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := action(r.Context(), id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func getBusinessHoursHandler(store BusinessHoursStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, ok := agentParam(w, r)
		if !ok {
			return
		}

		cfg, err := store.Load(r.Context(), agentID)
		if err != nil {
			handleHoursError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

func putBusinessHoursHandler(store BusinessHoursStore, v *validation.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, ok := agentParam(w, r)
		if !ok {
			return
		}

		var req BusinessHoursRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := v.Struct(&req); err != nil {
			writeValidationError(w, err)
			return
		}

		cfg, err := req.toConfig()
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid_business_hours", err.Error())
			return
		}
		if err := store.Save(r.Context(), agentID, cfg); err != nil {
			handleHoursError(w, err)
			return
		}

		saved, err := store.Load(r.Context(), agentID)
		if err != nil {
			handleHoursError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func putOverrideHandler(store BusinessHoursStore, v *validation.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, ok := agentParam(w, r)
		if !ok {
			return
		}
		date, err := availability.ParseDate(chi.URLParam(r, "date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}

		var req OverrideRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := v.Struct(&req); err != nil {
			writeValidationError(w, err)
			return
		}

		override, err := req.toOverride()
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid_override", err.Error())
			return
		}
		if err := store.SetOverride(r.Context(), agentID, date, override); err != nil {
			handleHoursError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, override)
	}
}

func deleteOverrideHandler(store BusinessHoursStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, ok := agentParam(w, r)
		if !ok {
			return
		}
		date, err := availability.ParseDate(chi.URLParam(r, "date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}

		if err := store.DeleteOverride(r.Context(), agentID, date); err != nil {
			handleHoursError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func agentParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_agent_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// parseRange reads start (required) and end (optional, zero when absent).
func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	if startStr == "" {
		return time.Time{}, time.Time{}, errors.New("start date is required")
	}
	start, err := availability.ParseDate(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if endStr == "" {
		return start, time.Time{}, nil
	}
	end, err := availability.ParseDate(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func writeValidationError(w http.ResponseWriter, err error) {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", verrs)
		return
	}
	writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
}

func handleBookError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrAgentNotFound):
		writeError(w, http.StatusNotFound, "agent_not_found", err.Error())
	case errors.Is(err, appointment.ErrSlotNotOffered):
		writeError(w, http.StatusConflict, "slot_not_offered", err.Error())
	case errors.Is(err, appointment.ErrSlotInPast):
		writeError(w, http.StatusConflict, "slot_in_past", err.Error())
	case errors.Is(err, appointment.ErrSlotFull):
		writeError(w, http.StatusConflict, "slot_full", err.Error())
	case errors.Is(err, appointment.ErrBufferConflict):
		writeError(w, http.StatusConflict, "buffer_conflict", err.Error())
	case errors.Is(err, appointment.ErrSlotBeingBooked):
		writeError(w, http.StatusConflict, "slot_being_booked", "agent schedule is currently being booked, please retry shortly")
	case errors.Is(err, availability.ErrInvalidConfig):
		writeError(w, http.StatusInternalServerError, "invalid_business_hours", err.Error())
	case errors.Is(err, appointment.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleAppointmentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentExpired):
		writeError(w, http.StatusConflict, "appointment_expired", err.Error())
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleHoursError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, businesshours.ErrAgentNotFound):
		writeError(w, http.StatusNotFound, "agent_not_found", err.Error())
	case errors.Is(err, businesshours.ErrOverrideNotFound):
		writeError(w, http.StatusNotFound, "override_not_found", err.Error())
	case errors.Is(err, availability.ErrInvalidConfig):
		writeError(w, http.StatusUnprocessableEntity, "invalid_business_hours", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
