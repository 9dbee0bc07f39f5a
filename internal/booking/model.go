package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/camvanclinic/booking/internal/schedule"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// ValidStatus reports whether s is one of the known lifecycle states.
func ValidStatus(s AppointmentStatus) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// PatientInfo is the contact block captured by the booking form. Only
// Name, DOB and Phone are required; the rest is free text.
type PatientInfo struct {
	Name       string `json:"patient_name" validate:"required"`
	DOB        string `json:"patient_dob" validate:"required"`
	ParentName string `json:"parent_name"`
	Address    string `json:"patient_address"`
	Phone      string `json:"patient_phone" validate:"required"`
}

// Appointment is one booked visit occupying a single slot instant.
type Appointment struct {
	ID        uuid.UUID
	Patient   PatientInfo
	Reason    string
	SlotAt    time.Time
	Status    AppointmentStatus
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Submission is the booking form payload handed to Service.Submit.
type Submission struct {
	Patient PatientInfo `validate:"required"`
	Reason  string      `validate:"required"`
	SlotAt  time.Time   `validate:"required"`
}

// BlockedSlot marks one slot administratively unavailable regardless of
// booking state. Time is "HH:MM" on the blocked date.
type BlockedSlot struct {
	ID        uuid.UUID
	Date      schedule.Date
	Time      string
	Reason    string
	CreatedAt time.Time
}

// DashboardStats is the admin dashboard counter block.
type DashboardStats struct {
	Total   int `json:"total"`
	Today   int `json:"today"`
	Month   int `json:"month"`
	Pending int `json:"pending"`
}

// DateCount is one point of the appointments-per-day series.
type DateCount struct {
	Date  schedule.Date `json:"date"`
	Count int           `json:"count"`
}
