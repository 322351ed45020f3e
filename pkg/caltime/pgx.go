package caltime

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const microsPerMinute = int64(time.Minute / time.Microsecond)

// TimeValue encodes t as a PostgreSQL TIME.
func (t TimeOfDay) TimeValue() (pgtype.Time, error) {
	if !t.Valid() {
		return pgtype.Time{}, fmt.Errorf("time of day %d out of range", int(t))
	}
	return pgtype.Time{Microseconds: int64(t) * microsPerMinute, Valid: true}, nil
}

// ScanTime decodes a PostgreSQL TIME, truncating to the minute.
func (t *TimeOfDay) ScanTime(v pgtype.Time) error {
	if !v.Valid {
		return fmt.Errorf("cannot scan NULL into caltime.TimeOfDay")
	}
	*t = TimeOfDay(v.Microseconds / microsPerMinute)
	return nil
}

// DateValue encodes d as a PostgreSQL DATE.
func (d Date) DateValue() (pgtype.Date, error) {
	return pgtype.Date{Time: d.time(), Valid: true}, nil
}

// ScanDate decodes a PostgreSQL DATE.
func (d *Date) ScanDate(v pgtype.Date) error {
	if !v.Valid {
		return fmt.Errorf("cannot scan NULL into caltime.Date")
	}
	if v.InfinityModifier != pgtype.Finite {
		return fmt.Errorf("cannot scan infinite date into caltime.Date")
	}
	*d = DateOf(v.Time)
	return nil
}

// IntervalFromPg builds an optional interval from a pair of nullable TIME
// columns. Both NULL yields nil; exactly one NULL is an error.
func IntervalFromPg(start, end pgtype.Time) (*Interval, error) {
	if !start.Valid && !end.Valid {
		return nil, nil
	}
	if !start.Valid || !end.Valid {
		return nil, fmt.Errorf("half-null interval")
	}
	var iv Interval
	if err := iv.Start.ScanTime(start); err != nil {
		return nil, err
	}
	if err := iv.End.ScanTime(end); err != nil {
		return nil, err
	}
	return &iv, nil
}

// PgTimes encodes an optional interval as two nullable TIME values.
func PgTimes(iv *Interval) (start, end pgtype.Time) {
	if iv == nil {
		return pgtype.Time{}, pgtype.Time{}
	}
	start, _ = iv.Start.TimeValue()
	end, _ = iv.End.TimeValue()
	return start, end
}
