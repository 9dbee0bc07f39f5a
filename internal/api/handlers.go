package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/camvanclinic/booking/internal/booking"
	"github.com/camvanclinic/booking/internal/schedule"
)

func availabilityHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dateStr := r.URL.Query().Get("date")
		if dateStr == "" {
			writeError(w, http.StatusBadRequest, "missing_date", "date query parameter is required (YYYY-MM-DD)")
			return
		}

		date, err := schedule.ParseDate(dateStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slots, err := svc.AvailableSlots(r.Context(), date)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if slots == nil {
			slots = []time.Time{}
		}

		writeJSON(w, http.StatusOK, AvailabilityResponse{
			Date:    date,
			Slots:   slots,
			Reasons: svc.Reasons(),
		})
	}
}

func submitAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubmitAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		slotAt, err := time.Parse(time.RFC3339, req.SlotAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_at", "slot_at must be RFC 3339")
			return
		}
		slotAt = slotAt.In(svc.Location())

		sub := booking.Submission{
			Patient: booking.PatientInfo{
				Name:       req.PatientName,
				DOB:        req.PatientDOB,
				ParentName: req.ParentName,
				Address:    req.PatientAddress,
				Phone:      req.PatientPhone,
			},
			Reason: req.Reason,
			SlotAt: slotAt,
		}

		// Advisory pre-check set, mirroring the booked cache a client
		// session would hold. Failures here fall back to the empty set;
		// the unique index still has the final word.
		var known []time.Time
		if occ, err := svc.OccupancyFor(r.Context(), schedule.DateOf(slotAt)); err == nil {
			known = occ.Booked
		}

		appt, err := svc.Submit(r.Context(), sub, known)
		if err != nil {
			handleSubmitError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func handleSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrMissingFields),
		errors.Is(err, booking.ErrMissingField),
		errors.Is(err, booking.ErrUnknownReason):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, booking.ErrStaleSlot):
		writeError(w, http.StatusConflict, "stale_slot", "the chosen slot is in the past, please pick another one")
	case errors.Is(err, booking.ErrLocalConflict),
		errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", "this slot has just been booked, please pick another one")
	default:
		writeError(w, http.StatusBadGateway, "submission_failed", "could not save the booking, please try again")
	}
}
