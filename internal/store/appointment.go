package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/counseldesk/apiserver/types"
)

const appointmentColumns = `id, counselor_id, kind, status, starts_at, ends_at, reason, created_at, updated_at`

// AppointmentRepository handles persistence for appointments and attendees.
type AppointmentRepository struct {
	db *sql.DB
}

func NewAppointmentRepository(db *sql.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func scanAppointment(row rowScanner) (types.Appointment, error) {
	var a types.Appointment
	err := row.Scan(
		&a.ID,
		&a.CounselorID,
		&a.Kind,
		&a.Status,
		&a.StartsAt,
		&a.EndsAt,
		&a.Reason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

// Create inserts the appointment and its attendee rows together.
func (r *AppointmentRepository) Create(ctx context.Context, appointment types.Appointment) (types.Appointment, error) {
	now := time.Now()
	appointment.CreatedAt = now
	appointment.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Appointment{}, err
	}
	defer tx.Rollback()

	const insertAppointment = `
		INSERT INTO appointments (counselor_id, kind, status, starts_at, ends_at, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		insertAppointment,
		appointment.CounselorID,
		appointment.Kind,
		appointment.Status,
		appointment.StartsAt,
		appointment.EndsAt,
		appointment.Reason,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	).Scan(&appointment.ID); err != nil {
		return types.Appointment{}, err
	}

	const insertAttendee = `
		INSERT INTO appointment_attendees (appointment_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`
	for _, attendeeID := range appointment.AttendeeIDs {
		if _, err := tx.ExecContext(ctx, insertAttendee, appointment.ID, attendeeID); err != nil {
			return types.Appointment{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return types.Appointment{}, err
	}
	return appointment, nil
}

func (r *AppointmentRepository) Get(ctx context.Context, id int) (types.Appointment, error) {
	const query = `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE id = $1`
	appointment, err := scanAppointment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Appointment{}, ErrNotFound
		}
		return types.Appointment{}, err
	}

	attendeeIDs, err := r.AttendeeIDs(ctx, id)
	if err != nil {
		return types.Appointment{}, err
	}
	appointment.AttendeeIDs = attendeeIDs
	return appointment, nil
}

// ListForUser returns appointments the user hosts or attends, soonest first.
func (r *AppointmentRepository) ListForUser(ctx context.Context, userID int) ([]types.Appointment, error) {
	const query = `
		SELECT DISTINCT a.id, a.counselor_id, a.kind, a.status, a.starts_at, a.ends_at, a.reason, a.created_at, a.updated_at
		FROM appointments a
		LEFT JOIN appointment_attendees att ON att.appointment_id = a.id
		WHERE a.counselor_id = $1 OR att.user_id = $1
		ORDER BY a.starts_at`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appointments []types.Appointment
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return appointments, nil
}

// Cancel marks the appointment cancelled. The status filter is the guard:
// an already-cancelled or completed appointment affects zero rows.
func (r *AppointmentRepository) Cancel(ctx context.Context, id int) (types.Appointment, error) {
	const query = `
		UPDATE appointments
		SET status = 'cancelled', updated_at = $2
		WHERE id = $1 AND status IN ('scheduled', 'rescheduled')
		RETURNING ` + appointmentColumns
	return r.conditionalUpdate(ctx, id, query, id, time.Now())
}

// Reschedule moves the appointment to a new slot under the same guard as Cancel.
func (r *AppointmentRepository) Reschedule(ctx context.Context, id int, startsAt, endsAt time.Time) (types.Appointment, error) {
	const query = `
		UPDATE appointments
		SET status = 'rescheduled', starts_at = $2, ends_at = $3, updated_at = $4
		WHERE id = $1 AND status IN ('scheduled', 'rescheduled')
		RETURNING ` + appointmentColumns
	return r.conditionalUpdate(ctx, id, query, id, startsAt, endsAt, time.Now())
}

// Complete marks a past appointment as completed.
func (r *AppointmentRepository) Complete(ctx context.Context, id int) (types.Appointment, error) {
	const query = `
		UPDATE appointments
		SET status = 'completed', updated_at = $2
		WHERE id = $1 AND status IN ('scheduled', 'rescheduled')
		RETURNING ` + appointmentColumns
	return r.conditionalUpdate(ctx, id, query, id, time.Now())
}

func (r *AppointmentRepository) conditionalUpdate(ctx context.Context, id int, query string, args ...any) (types.Appointment, error) {
	appointment, err := scanAppointment(r.db.QueryRowContext(ctx, query, args...))
	if err == nil {
		attendeeIDs, attErr := r.AttendeeIDs(ctx, id)
		if attErr != nil {
			return types.Appointment{}, attErr
		}
		appointment.AttendeeIDs = attendeeIDs
		return appointment, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return types.Appointment{}, err
	}

	var status string
	existsErr := r.db.QueryRowContext(ctx, `SELECT status FROM appointments WHERE id = $1`, id).Scan(&status)
	if errors.Is(existsErr, sql.ErrNoRows) {
		return types.Appointment{}, ErrNotFound
	}
	if existsErr != nil {
		return types.Appointment{}, existsErr
	}
	return types.Appointment{}, ErrConflict
}

// AttendeeIDs returns the user ids attending the appointment.
func (r *AppointmentRepository) AttendeeIDs(ctx context.Context, appointmentID int) ([]int, error) {
	const query = `
		SELECT user_id FROM appointment_attendees
		WHERE appointment_id = $1
		ORDER BY user_id`
	rows, err := r.db.QueryContext(ctx, query, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
