package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/camvanclinic/booking/internal/booking"
	"github.com/camvanclinic/booking/internal/schedule"
)

func listAppointmentsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := booking.ListFilter{
			Limit:  queryInt(q.Get("limit"), 50),
			Offset: queryInt(q.Get("offset"), 0),
			Search: q.Get("search"),
			Status: booking.AppointmentStatus(q.Get("status")),
		}

		appts, total, err := svc.ListAppointments(r.Context(), f)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, AppointmentListResponse{
			Appointments: toAppointmentResponses(appts),
			Total:        total,
		})
	}
}

func dayAppointmentsHandler(svc *booking.Service, daysAhead int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := svc.Today().AddDays(daysAhead)

		appts, err := svc.AppointmentsOn(r.Context(), date)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, AppointmentListResponse{
			Appointments: toAppointmentResponses(appts),
			Total:        len(appts),
		})
	}
}

func getAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleAdminError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func updateStatusHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		var req UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.SetStatus(r.Context(), id, booking.AppointmentStatus(req.Status))
		if err != nil {
			handleAdminError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func updateNoteHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		var req UpdateNoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.SetNote(r.Context(), id, req.Note)
		if err != nil {
			handleAdminError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func updateInfoHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		var req UpdateInfoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.SetPatientInfo(r.Context(), id, booking.PatientInfo{
			Name:       req.PatientName,
			DOB:        req.PatientDOB,
			ParentName: req.ParentName,
			Address:    req.PatientAddress,
			Phone:      req.PatientPhone,
		})
		if err != nil {
			handleAdminError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func deleteAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		if err := svc.DeleteAppointment(r.Context(), id); err != nil {
			handleAdminError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func statsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.DashboardStats(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func appointmentsByDateHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		before := queryInt(q.Get("before"), 15)
		after := queryInt(q.Get("after"), 15)

		series, err := svc.AppointmentsByDate(r.Context(), before, after)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, series)
	}
}

func listBlockedSlotsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slots, err := svc.ListBlockedSlots(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		out := make([]BlockedSlotResponse, 0, len(slots))
		for i := range slots {
			out = append(out, toBlockedSlotResponse(&slots[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func addBlockedSlotHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, date, ok := decodeBlockedSlot(w, r)
		if !ok {
			return
		}

		slot, err := svc.AddBlockedSlot(r.Context(), date, req.Time, req.Reason)
		if err != nil {
			handleAdminError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toBlockedSlotResponse(slot))
	}
}

func updateBlockedSlotHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		req, date, ok := decodeBlockedSlot(w, r)
		if !ok {
			return
		}

		slot, err := svc.UpdateBlockedSlot(r.Context(), id, date, req.Time, req.Reason)
		if err != nil {
			handleAdminError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toBlockedSlotResponse(slot))
	}
}

func deleteBlockedSlotHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		if err := svc.DeleteBlockedSlot(r.Context(), id); err != nil {
			handleAdminError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Helpers

func handleAdminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrBlockedSlotNotFound):
		writeError(w, http.StatusNotFound, "blocked_slot_not_found", err.Error())
	case errors.Is(err, booking.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, booking.ErrBlockedSlotExists):
		writeError(w, http.StatusConflict, "blocked_slot_exists", err.Error())
	case errors.Is(err, booking.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func decodeBlockedSlot(w http.ResponseWriter, r *http.Request) (BlockedSlotRequest, schedule.Date, bool) {
	var req BlockedSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return req, schedule.Date{}, false
	}

	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "blocked_date must be YYYY-MM-DD")
		return req, schedule.Date{}, false
	}
	return req, date, true
}

func queryInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func toAppointmentResponses(appts []booking.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		out = append(out, toAppointmentResponse(&appts[i]))
	}
	return out
}
