package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/camvanclinic/booking/internal/schedule"
)

// DB is the subset of pgxpool.Pool the repository uses. Narrowing to an
// interface lets tests substitute pgxmock.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

const appointmentColumns = `id, patient_name, patient_dob, parent_name, patient_address, patient_phone,
		       reason, slot_at, status, note, created_at, updated_at`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var address, note *string

	err := row.Scan(
		&a.ID,
		&a.Patient.Name,
		&a.Patient.DOB,
		&a.Patient.ParentName,
		&address,
		&a.Patient.Phone,
		&a.Reason,
		&a.SlotAt,
		&a.Status,
		&note,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if address != nil {
		a.Patient.Address = *address
	}
	if note != nil {
		a.Note = *note
	}
	return &a, nil
}

func scanBlockedSlot(row pgx.Row) (*BlockedSlot, error) {
	var b BlockedSlot
	var day time.Time
	var reason *string

	err := row.Scan(
		&b.ID,
		&day,
		&b.Time,
		&reason,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlockedSlotNotFound
		}
		return nil, err
	}

	b.Date = schedule.DateOf(day)
	if reason != nil {
		b.Reason = *reason
	}
	return &b, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Interface methods

func (r *PgRepository) CreateAppointment(ctx context.Context, sub Submission) (*Appointment, error) {
	// Defense in depth: the form validates these too, but the store never
	// accepts an appointment missing its required contact fields.
	switch {
	case strings.TrimSpace(sub.Patient.Name) == "":
		return nil, fmt.Errorf("%w: patient_name", ErrMissingField)
	case strings.TrimSpace(sub.Patient.DOB) == "":
		return nil, fmt.Errorf("%w: patient_dob", ErrMissingField)
	case strings.TrimSpace(sub.Patient.Phone) == "":
		return nil, fmt.Errorf("%w: patient_phone", ErrMissingField)
	case sub.SlotAt.IsZero():
		return nil, fmt.Errorf("%w: slot_at", ErrMissingField)
	}

	id := uuid.New()

	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_name, patient_dob, parent_name, patient_address,
		                          patient_phone, reason, slot_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', now(), now())
		RETURNING `+appointmentColumns+`
	`, id, sub.Patient.Name, sub.Patient.DOB, sub.Patient.ParentName, nullable(sub.Patient.Address),
		sub.Patient.Phone, sub.Reason, sub.SlotAt)

	appt, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return appt, nil
}

func (r *PgRepository) BookedInstants(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	rows, err := r.db.Query(ctx, `
		SELECT slot_at
		FROM appointments
		WHERE slot_at >= $1
		  AND slot_at < $2
		  AND status <> 'cancelled'
		ORDER BY slot_at
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (r *PgRepository) BlockedSlotsInRange(ctx context.Context, from, to schedule.Date) ([]BlockedSlot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, blocked_date, blocked_time, reason, created_at
		FROM blocked_slots
		WHERE blocked_date >= $1
		  AND blocked_date <= $2
		ORDER BY blocked_date, blocked_time
	`, from.String(), to.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBlockedSlots(rows)
}

func collectBlockedSlots(rows pgx.Rows) ([]BlockedSlot, error) {
	var result []BlockedSlot
	for rows.Next() {
		b, err := scanBlockedSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, f ListFilter) ([]Appointment, int, error) {
	where := []string{"1=1"}
	args := []any{}

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		p := fmt.Sprintf("$%d", len(args))
		where = append(where, fmt.Sprintf(
			"(patient_name ILIKE %s OR parent_name ILIKE %s OR patient_phone ILIKE %s)", p, p, p))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx,
		"SELECT count(*) FROM appointments WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM appointments
		WHERE %s
		ORDER BY slot_at DESC
		LIMIT $%d OFFSET $%d
	`, appointmentColumns, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *a)
	}
	return result, total, rows.Err()
}

func (r *PgRepository) AppointmentsBetween(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE slot_at >= $1
		  AND slot_at < $2
		ORDER BY slot_at
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentNote(ctx context.Context, id uuid.UUID, note string) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET note = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, nullable(note))
	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentInfo(ctx context.Context, id uuid.UUID, info PatientInfo) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET patient_name = $2,
		    patient_dob = $3,
		    parent_name = $4,
		    patient_address = $5,
		    patient_phone = $6,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, info.Name, info.DOB, info.ParentName, nullable(info.Address), info.Phone)
	return scanAppointment(row)
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) DashboardStats(ctx context.Context, now time.Time) (DashboardStats, error) {
	loc := now.Location()
	today := schedule.DateOf(now).StartOfDay(loc)
	tomorrow := today.AddDate(0, 0, 1)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	nextMonth := monthStart.AddDate(0, 1, 0)

	var stats DashboardStats
	err := r.db.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE slot_at >= $1 AND slot_at < $2),
		       count(*) FILTER (WHERE slot_at >= $3 AND slot_at < $4),
		       count(*) FILTER (WHERE status = 'pending')
		FROM appointments
	`, today, tomorrow, monthStart, nextMonth).Scan(
		&stats.Total, &stats.Today, &stats.Month, &stats.Pending)
	if err != nil {
		return DashboardStats{}, err
	}
	return stats, nil
}

func (r *PgRepository) CountByDate(ctx context.Context, from, to time.Time) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT slot_at
		FROM appointments
		WHERE slot_at >= $1
		  AND slot_at <= $2
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loc := from.Location()
	counts := make(map[string]int)
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		counts[schedule.DateOf(t.In(loc)).String()]++
	}
	return counts, rows.Err()
}

func (r *PgRepository) ListBlockedSlots(ctx context.Context) ([]BlockedSlot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, blocked_date, blocked_time, reason, created_at
		FROM blocked_slots
		ORDER BY blocked_date, blocked_time
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBlockedSlots(rows)
}

func (r *PgRepository) AddBlockedSlot(ctx context.Context, date schedule.Date, clock, reason string) (*BlockedSlot, error) {
	id := uuid.New()

	row := r.db.QueryRow(ctx, `
		INSERT INTO blocked_slots (id, blocked_date, blocked_time, reason, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, blocked_date, blocked_time, reason, created_at
	`, id, date.String(), clock, nullable(reason))

	b, err := scanBlockedSlot(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrBlockedSlotExists
		}
		return nil, err
	}
	return b, nil
}

func (r *PgRepository) UpdateBlockedSlot(ctx context.Context, id uuid.UUID, date schedule.Date, clock, reason string) (*BlockedSlot, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE blocked_slots
		SET blocked_date = $2,
		    blocked_time = $3,
		    reason = $4
		WHERE id = $1
		RETURNING id, blocked_date, blocked_time, reason, created_at
	`, id, date.String(), clock, nullable(reason))

	b, err := scanBlockedSlot(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrBlockedSlotExists
		}
		return nil, err
	}
	return b, nil
}

func (r *PgRepository) DeleteBlockedSlot(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM blocked_slots WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBlockedSlotNotFound
	}
	return nil
}
