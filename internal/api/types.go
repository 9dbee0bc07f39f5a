package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/camvanclinic/booking/internal/booking"
	"github.com/camvanclinic/booking/internal/schedule"
)

type SubmitAppointmentRequest struct {
	PatientName    string `json:"patient_name"`
	PatientDOB     string `json:"patient_dob"`
	ParentName     string `json:"parent_name"`
	PatientAddress string `json:"patient_address"`
	PatientPhone   string `json:"patient_phone"`
	Reason         string `json:"reason"`
	SlotAt         string `json:"slot_at"` // RFC 3339
}

type AppointmentResponse struct {
	ID             uuid.UUID `json:"id"`
	PatientName    string    `json:"patient_name"`
	PatientDOB     string    `json:"patient_dob"`
	ParentName     string    `json:"parent_name,omitempty"`
	PatientAddress string    `json:"patient_address,omitempty"`
	PatientPhone   string    `json:"patient_phone"`
	Reason         string    `json:"reason"`
	SlotAt         time.Time `json:"slot_at"`
	Status         string    `json:"status"`
	Note           string    `json:"note,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:             a.ID,
		PatientName:    a.Patient.Name,
		PatientDOB:     a.Patient.DOB,
		ParentName:     a.Patient.ParentName,
		PatientAddress: a.Patient.Address,
		PatientPhone:   a.Patient.Phone,
		Reason:         a.Reason,
		SlotAt:         a.SlotAt,
		Status:         string(a.Status),
		Note:           a.Note,
		CreatedAt:      a.CreatedAt,
	}
}

type AvailabilityResponse struct {
	Date    schedule.Date `json:"date"`
	Slots   []time.Time   `json:"slots"`
	Reasons []string      `json:"reasons"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type UpdateNoteRequest struct {
	Note string `json:"note"`
}

type UpdateInfoRequest struct {
	PatientName    string `json:"patient_name"`
	PatientDOB     string `json:"patient_dob"`
	ParentName     string `json:"parent_name"`
	PatientAddress string `json:"patient_address"`
	PatientPhone   string `json:"patient_phone"`
}

type BlockedSlotRequest struct {
	Date   string `json:"blocked_date"` // YYYY-MM-DD
	Time   string `json:"blocked_time"` // HH:MM
	Reason string `json:"reason"`
}

type BlockedSlotResponse struct {
	ID        uuid.UUID     `json:"id"`
	Date      schedule.Date `json:"blocked_date"`
	Time      string        `json:"blocked_time"`
	Reason    string        `json:"reason,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

func toBlockedSlotResponse(b *booking.BlockedSlot) BlockedSlotResponse {
	return BlockedSlotResponse{
		ID:        b.ID,
		Date:      b.Date,
		Time:      b.Time,
		Reason:    b.Reason,
		CreatedAt: b.CreatedAt,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
