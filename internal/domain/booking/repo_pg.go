package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/pkg/caltime"
)

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

const apptCols = `id, practitioner_id, patient_id, service_id, appointment_date,
	start_time, end_time, status, notes, created_at, updated_at`

// occupying is the SQL form of Status.Occupies.
const occupying = `status NOT IN ('cancelled', 'no_show')`

func scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PractitionerID, &a.PatientID, &a.ServiceID, &a.Date,
		&a.Interval.Start, &a.Interval.End, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *appointmentRepoPG) ListActive(ctx context.Context, practitionerID uuid.UUID, date caltime.Date, excludeID *uuid.UUID) ([]ExistingAppointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, practitioner_id, appointment_date, start_time, end_time, status
		FROM appointment
		WHERE practitioner_id = $1 AND appointment_date = $2 AND `+occupying+`
			AND ($3::uuid IS NULL OR id <> $3)
		ORDER BY start_time`,
		practitionerID, date, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExistingAppointment
	for rows.Next() {
		var e ExistingAppointment
		if err := rows.Scan(&e.ID, &e.PractitionerID, &e.Date, &e.Interval.Start, &e.Interval.End, &e.Status); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// Commit serializes writers per practitioner and date with a transaction
// scoped advisory lock, re-checks overlap under the lock, then writes. The
// appointment_no_overlap exclusion constraint backs this up; its violation is
// reported as ErrCommitConflict too.
func (r *appointmentRepoPG) Commit(ctx context.Context, a *Appointment, excludeID *uuid.UUID) error {
	err := db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		q := r.conn(ctx)
		if _, err := q.Exec(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1::text || '/' || $2::text, 0))`,
			a.PractitionerID.String(), a.Date.String()); err != nil {
			return fmt.Errorf("acquire slot lock: %w", err)
		}

		var clash bool
		if err := q.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM appointment
				WHERE practitioner_id = $1 AND appointment_date = $2 AND `+occupying+`
					AND ($3::uuid IS NULL OR id <> $3)
					AND start_time < $5 AND $4 < end_time)`,
			a.PractitionerID, a.Date, excludeID, a.Interval.Start, a.Interval.End,
		).Scan(&clash); err != nil {
			return fmt.Errorf("re-check overlap: %w", err)
		}
		if clash {
			return ErrCommitConflict
		}

		if excludeID == nil {
			return r.insert(ctx, q, a)
		}
		return r.move(ctx, q, a, *excludeID)
	})
	if db.IsExclusionViolation(err) {
		return ErrCommitConflict
	}
	return err
}

func (r *appointmentRepoPG) insert(ctx context.Context, q db.Querier, a *Appointment) error {
	a.ID = uuid.New()
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	err := q.QueryRow(ctx, `
		INSERT INTO appointment (id, practitioner_id, patient_id, service_id, appointment_date,
			start_time, end_time, status, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		a.ID, a.PractitionerID, a.PatientID, a.ServiceID, a.Date,
		a.Interval.Start, a.Interval.End, a.Status, a.Notes,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepoPG) move(ctx context.Context, q db.Querier, a *Appointment, id uuid.UUID) error {
	moved, err := scanAppt(q.QueryRow(ctx, `
		UPDATE appointment
		SET practitioner_id = $2, appointment_date = $3, start_time = $4, end_time = $5, updated_at = NOW()
		WHERE id = $1 AND `+occupying+`
		RETURNING `+apptCols,
		id, a.PractitionerID, a.Date, a.Interval.Start, a.Interval.End))
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return err
		}
		return fmt.Errorf("reschedule appointment: %w", err)
	}
	*a = *moved
	return nil
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppt(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (r *appointmentRepoPG) ListByPractitioner(ctx context.Context, practitionerID uuid.UUID, from, to caltime.Date, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM appointment
		WHERE practitioner_id = $1 AND appointment_date BETWEEN $2 AND $3`,
		practitionerID, from, to).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+apptCols+` FROM appointment
		WHERE practitioner_id = $1 AND appointment_date BETWEEN $2 AND $3
		ORDER BY appointment_date, start_time LIMIT $4 OFFSET $5`,
		practitionerID, from, to, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectAppts(rows)
	return items, total, err
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+apptCols+` FROM appointment
		WHERE patient_id = $1
		ORDER BY appointment_date DESC, start_time DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectAppts(rows)
	return items, total, err
}

func collectAppts(rows pgx.Rows) ([]*Appointment, error) {
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppt(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
