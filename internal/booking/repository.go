package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/camvanclinic/booking/internal/schedule"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrBlockedSlotNotFound = errors.New("blocked slot not found")

	// ErrSlotTaken is the authoritative double-booking signal: the store's
	// unique index on the slot instant rejected the insert.
	ErrSlotTaken = errors.New("slot already booked")

	// ErrBlockedSlotExists is returned when the same date+time is blocked
	// twice.
	ErrBlockedSlotExists = errors.New("slot already blocked")

	// ErrMissingField is the storage-layer backstop for required fields the
	// form should already have validated.
	ErrMissingField = errors.New("required field missing")
)

// ListFilter narrows admin appointment listings. Search matches patient
// name, parent name or phone; Status empty means all non-deleted rows.
type ListFilter struct {
	Limit  int
	Offset int
	Search string
	Status AppointmentStatus
}

// Repository contains all store interactions needed by the service.
type Repository interface {
	// Booking write path.
	CreateAppointment(ctx context.Context, sub Submission) (*Appointment, error)

	// Availability read paths.
	BookedInstants(ctx context.Context, from, to time.Time) ([]time.Time, error)
	BlockedSlotsInRange(ctx context.Context, from, to schedule.Date) ([]BlockedSlot, error)

	// Admin appointment lifecycle.
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context, f ListFilter) ([]Appointment, int, error)
	AppointmentsBetween(ctx context.Context, from, to time.Time) ([]Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)
	UpdateAppointmentNote(ctx context.Context, id uuid.UUID, note string) (*Appointment, error)
	UpdateAppointmentInfo(ctx context.Context, id uuid.UUID, info PatientInfo) (*Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error

	// Dashboard.
	DashboardStats(ctx context.Context, now time.Time) (DashboardStats, error)
	CountByDate(ctx context.Context, from, to time.Time) (map[string]int, error)

	// Blocked slot lifecycle.
	ListBlockedSlots(ctx context.Context) ([]BlockedSlot, error)
	AddBlockedSlot(ctx context.Context, date schedule.Date, clock, reason string) (*BlockedSlot, error)
	UpdateBlockedSlot(ctx context.Context, id uuid.UUID, date schedule.Date, clock, reason string) (*BlockedSlot, error)
	DeleteBlockedSlot(ctx context.Context, id uuid.UUID) error
}
