package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/camvanclinic/booking/internal/availability"
	"github.com/camvanclinic/booking/internal/config"
	redisclient "github.com/camvanclinic/booking/internal/redis"
	"github.com/camvanclinic/booking/internal/schedule"
)

var (
	// ErrMissingFields is a user-correctable validation failure: required
	// submission fields are absent.
	ErrMissingFields = errors.New("required fields missing")

	// ErrUnknownReason rejects a reason outside the configured list.
	ErrUnknownReason = errors.New("unknown visit reason")

	// ErrStaleSlot means the chosen slot moved into the past while the
	// form was being filled in.
	ErrStaleSlot = errors.New("chosen slot is no longer in the future")

	// ErrLocalConflict means the chosen instant already appears in the
	// session's known booked set.
	ErrLocalConflict = errors.New("slot already taken")

	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	cfg      config.Config
	log      zerolog.Logger
	validate *validator.Validate
	now      func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		cfg:      cfg,
		log:      log,
		validate: validator.New(),
		now:      time.Now,
	}
}

// WithClock overrides the service clock. Tests use this to pin "now".
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Reasons() []string { return s.cfg.Reasons }

func (s *Service) Location() *time.Location { return s.cfg.Clinic }

// Today is the current calendar date in the clinic's zone.
func (s *Service) Today() schedule.Date {
	return schedule.DateOf(s.now().In(s.cfg.Clinic))
}

// OccupancyFor loads the booked and blocked instants for one date. Errors
// propagate; fail-open handling is the caller's policy.
func (s *Service) OccupancyFor(ctx context.Context, date schedule.Date) (availability.Occupancy, error) {
	loc := s.cfg.Clinic
	dayStart := date.StartOfDay(loc)
	dayEnd := date.Next().StartOfDay(loc)

	booked, err := s.repo.BookedInstants(ctx, dayStart, dayEnd)
	if err != nil {
		return availability.Occupancy{}, fmt.Errorf("booked instants for %s: %w", date, err)
	}

	rows, err := s.repo.BlockedSlotsInRange(ctx, date, date)
	if err != nil {
		return availability.Occupancy{}, fmt.Errorf("blocked slots for %s: %w", date, err)
	}

	blocked := make([]time.Time, 0, len(rows))
	for _, b := range rows {
		t, err := availability.ResolveBlocked(b.Date, b.Time, loc)
		if err != nil {
			// A malformed row should not hide the rest of the day.
			s.log.Warn().Err(err).Str("blocked_slot_id", b.ID.String()).Msg("skipping malformed blocked slot")
			continue
		}
		blocked = append(blocked, t)
	}

	return availability.Occupancy{Booked: booked, Blocked: blocked}, nil
}

// AvailableSlots returns the bookable slots for a date: the schedule grid
// minus past slots, booked instants and blocked instants. Occupancy lookup
// failures are logged and treated as empty sets so the booking page still
// renders.
func (s *Service) AvailableSlots(ctx context.Context, date schedule.Date) ([]time.Time, error) {
	candidates, err := availability.Slots(s.cfg.Schedule, s.cfg.SlotMinutes, date, s.now(), s.cfg.Clinic)
	if err != nil {
		return nil, err
	}

	occ, err := s.OccupancyFor(ctx, date)
	if err != nil {
		s.log.Warn().Err(err).Stringer("date", date).Msg("occupancy lookup failed, showing unfiltered grid")
		occ = availability.Occupancy{}
	}

	return availability.Filter(candidates, occ.Booked, occ.Blocked), nil
}

// Submit runs the booking submission flow in order: field validation, the
// stale-slot guard, the local conflict check against the session's known
// booked set, and finally the lock-guarded persist. Only the persist step
// touches the store; the first three reject locally without I/O.
func (s *Service) Submit(ctx context.Context, sub Submission, knownBooked []time.Time) (*Appointment, error) {
	if err := s.validate.Struct(sub); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingFields, err)
	}
	if !s.knownReason(sub.Reason) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownReason, sub.Reason)
	}

	// Second, later-timestamp check: a slot valid when the picker loaded
	// can be in the past by submit time.
	if !sub.SlotAt.After(s.now()) {
		return nil, ErrStaleSlot
	}

	for _, t := range knownBooked {
		if t.Truncate(time.Minute).Equal(sub.SlotAt.Truncate(time.Minute)) {
			return nil, ErrLocalConflict
		}
	}

	var created *Appointment
	err := s.locker.WithSlotLock(ctx, sub.SlotAt, func(lockCtx context.Context) error {
		appt, err := s.repo.CreateAppointment(lockCtx, sub)
		if err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			// Someone else is persisting this instant right now; to the
			// submitter that is the same outcome as losing the race.
			return nil, ErrSlotTaken
		}
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Time("slot_at", created.SlotAt).
		Str("reason", created.Reason).
		Msg("appointment booked")

	return created, nil
}

func (s *Service) knownReason(reason string) bool {
	for _, r := range s.cfg.Reasons {
		if r == reason {
			return true
		}
	}
	return false
}

// Admin operations

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointment(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context, f ListFilter) ([]Appointment, int, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 200 {
		f.Limit = 200
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, 0, fmt.Errorf("unknown status %q", f.Status)
	}
	return s.repo.ListAppointments(ctx, f)
}

// SetStatus moves an appointment through its lifecycle. Allowed moves are
// pending→confirmed and pending/confirmed→cancelled.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, to AppointmentStatus) (*Appointment, error) {
	if !ValidStatus(to) {
		return nil, fmt.Errorf("unknown status %q", to)
	}

	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(appt.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, appt.Status, to)
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, appt.Status, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Status changed underneath us between read and update.
			return nil, fmt.Errorf("%w: concurrent update", ErrInvalidStatusTransition)
		}
		return nil, err
	}
	return updated, nil
}

func transitionAllowed(from, to AppointmentStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCancelled
	}
	return false
}

func (s *Service) SetNote(ctx context.Context, id uuid.UUID, note string) (*Appointment, error) {
	return s.repo.UpdateAppointmentNote(ctx, id, note)
}

func (s *Service) SetPatientInfo(ctx context.Context, id uuid.UUID, info PatientInfo) (*Appointment, error) {
	if err := s.validate.Struct(info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingFields, err)
	}
	return s.repo.UpdateAppointmentInfo(ctx, id, info)
}

func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteAppointment(ctx, id)
}

// AppointmentsOn lists the appointments of a single calendar day.
func (s *Service) AppointmentsOn(ctx context.Context, date schedule.Date) ([]Appointment, error) {
	loc := s.cfg.Clinic
	return s.repo.AppointmentsBetween(ctx, date.StartOfDay(loc), date.Next().StartOfDay(loc))
}

func (s *Service) DashboardStats(ctx context.Context) (DashboardStats, error) {
	return s.repo.DashboardStats(ctx, s.now().In(s.cfg.Clinic))
}

// AppointmentsByDate returns a contiguous per-day appointment count series
// around today, zero-filling days with no bookings.
func (s *Service) AppointmentsByDate(ctx context.Context, daysBefore, daysAfter int) ([]DateCount, error) {
	loc := s.cfg.Clinic
	today := schedule.DateOf(s.now().In(loc))
	first := today.AddDays(-daysBefore)
	last := today.AddDays(daysAfter)

	counts, err := s.repo.CountByDate(ctx, first.StartOfDay(loc), last.Next().StartOfDay(loc))
	if err != nil {
		return nil, err
	}

	var series []DateCount
	for d := first; !last.Before(d); d = d.Next() {
		series = append(series, DateCount{Date: d, Count: counts[d.String()]})
	}
	return series, nil
}

// Blocked slot lifecycle

func (s *Service) ListBlockedSlots(ctx context.Context) ([]BlockedSlot, error) {
	return s.repo.ListBlockedSlots(ctx)
}

func (s *Service) AddBlockedSlot(ctx context.Context, date schedule.Date, clock, reason string) (*BlockedSlot, error) {
	if _, err := availability.ResolveBlocked(date, clock, s.cfg.Clinic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingFields, err)
	}
	return s.repo.AddBlockedSlot(ctx, date, clock, reason)
}

func (s *Service) UpdateBlockedSlot(ctx context.Context, id uuid.UUID, date schedule.Date, clock, reason string) (*BlockedSlot, error) {
	if _, err := availability.ResolveBlocked(date, clock, s.cfg.Clinic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingFields, err)
	}
	return s.repo.UpdateBlockedSlot(ctx, id, date, clock, reason)
}

func (s *Service) DeleteBlockedSlot(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteBlockedSlot(ctx, id)
}
