package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/pkg/caltime"
)

// =========== Weekly Availability Repository ===========

type weeklyRepoPG struct{ pool *pgxpool.Pool }

func NewWeeklyRepoPG(pool *pgxpool.Pool) WeeklyRepository { return &weeklyRepoPG{pool: pool} }

func (r *weeklyRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

const weeklyCols = `id, practitioner_id, day_of_week, work_start, work_end,
	break_start, break_end, active, created_at, updated_at`

func scanWeekly(row pgx.Row) (*WeeklyAvailability, error) {
	var (
		w      WeeklyAvailability
		day    int16
		bs, be pgtype.Time
	)
	if err := row.Scan(&w.ID, &w.PractitionerID, &day, &w.Work.Start, &w.Work.End,
		&bs, &be, &w.Active, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	w.DayOfWeek = time.Weekday(day)
	brk, err := caltime.IntervalFromPg(bs, be)
	if err != nil {
		return nil, fmt.Errorf("weekly availability %s break: %w", w.ID, err)
	}
	w.Break = brk
	return &w, nil
}

func (r *weeklyRepoPG) GetWeeklyAvailability(ctx context.Context, practitionerID uuid.UUID, day time.Weekday) (*WeeklyAvailability, error) {
	return scanWeekly(r.conn(ctx).QueryRow(ctx,
		`SELECT `+weeklyCols+` FROM weekly_availability
		WHERE practitioner_id = $1 AND day_of_week = $2 AND active`,
		practitionerID, int16(day)))
}

const weeklyLockSQL = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`

// weeklyLockKey names the advisory lock serializing writers of one
// practitioner's weekday.
func weeklyLockKey(practitionerID uuid.UUID, day time.Weekday) string {
	return fmt.Sprintf("weekly/%s/%d", practitionerID, int(day))
}

// Upsert replaces the active row for the practitioner and weekday. Writers
// for the same key queue on an advisory lock so the deactivate step always
// sees the row a concurrent writer inserted.
func (r *weeklyRepoPG) Upsert(ctx context.Context, w *WeeklyAvailability) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		q := r.conn(ctx)
		if _, err := q.Exec(ctx, weeklyLockSQL, weeklyLockKey(w.PractitionerID, w.DayOfWeek)); err != nil {
			return fmt.Errorf("acquire weekly availability lock: %w", err)
		}
		if _, err := q.Exec(ctx, `
			UPDATE weekly_availability SET active = FALSE, updated_at = NOW()
			WHERE practitioner_id = $1 AND day_of_week = $2 AND active`,
			w.PractitionerID, int16(w.DayOfWeek)); err != nil {
			return fmt.Errorf("deactivate previous weekly availability: %w", err)
		}

		w.ID = uuid.New()
		w.Active = true
		bs, be := caltime.PgTimes(w.Break)
		err := q.QueryRow(ctx, `
			INSERT INTO weekly_availability (id, practitioner_id, day_of_week, work_start, work_end,
				break_start, break_end, active)
			VALUES ($1,$2,$3,$4,$5,$6,$7,TRUE)
			RETURNING created_at, updated_at`,
			w.ID, w.PractitionerID, int16(w.DayOfWeek), w.Work.Start, w.Work.End, bs, be,
		).Scan(&w.CreatedAt, &w.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert weekly availability: %w", err)
		}
		return nil
	})
}

func (r *weeklyRepoPG) ListByPractitioner(ctx context.Context, practitionerID uuid.UUID, includeInactive bool) ([]*WeeklyAvailability, error) {
	query := `SELECT ` + weeklyCols + ` FROM weekly_availability WHERE practitioner_id = $1`
	if !includeInactive {
		query += ` AND active`
	}
	query += ` ORDER BY day_of_week, active DESC, created_at DESC`

	rows, err := r.conn(ctx).Query(ctx, query, practitionerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*WeeklyAvailability
	for rows.Next() {
		w, err := scanWeekly(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

func (r *weeklyRepoPG) Deactivate(ctx context.Context, practitionerID uuid.UUID, day time.Weekday) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE weekly_availability SET active = FALSE, updated_at = NOW()
		WHERE practitioner_id = $1 AND day_of_week = $2 AND active`,
		practitionerID, int16(day))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =========== Blocked Date Repository ===========

type blockedRepoPG struct{ pool *pgxpool.Pool }

func NewBlockedDateRepoPG(pool *pgxpool.Pool) BlockedDateRepository {
	return &blockedRepoPG{pool: pool}
}

func (r *blockedRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

const blockedCols = `id, practitioner_id, blocked_on, window_start, window_end, reason, active, created_at`

func scanBlocked(row pgx.Row) (*BlockedDate, error) {
	var (
		b      BlockedDate
		ws, we pgtype.Time
	)
	if err := row.Scan(&b.ID, &b.PractitionerID, &b.Date, &ws, &we, &b.Reason, &b.Active, &b.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	win, err := caltime.IntervalFromPg(ws, we)
	if err != nil {
		return nil, fmt.Errorf("blocked date %s window: %w", b.ID, err)
	}
	b.Window = win
	return &b, nil
}

func (r *blockedRepoPG) FindBlocks(ctx context.Context, practitionerID uuid.UUID, from, to caltime.Date) ([]*BlockedDate, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+blockedCols+` FROM blocked_date
		WHERE practitioner_id = $1 AND blocked_on BETWEEN $2 AND $3 AND active
		ORDER BY blocked_on, window_start NULLS FIRST, reason`,
		practitionerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*BlockedDate
	for rows.Next() {
		b, err := scanBlocked(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

func (r *blockedRepoPG) Create(ctx context.Context, b *BlockedDate) error {
	b.ID = uuid.New()
	b.Active = true
	ws, we := caltime.PgTimes(b.Window)
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO blocked_date (id, practitioner_id, blocked_on, window_start, window_end, reason, active)
		VALUES ($1,$2,$3,$4,$5,$6,TRUE)
		RETURNING created_at`,
		b.ID, b.PractitionerID, b.Date, ws, we, b.Reason,
	).Scan(&b.CreatedAt)
}

func (r *blockedRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*BlockedDate, error) {
	return scanBlocked(r.conn(ctx).QueryRow(ctx, `SELECT `+blockedCols+` FROM blocked_date WHERE id = $1`, id))
}

func (r *blockedRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE blocked_date SET active = FALSE WHERE id = $1 AND active`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
