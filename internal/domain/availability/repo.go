package availability

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/pkg/caltime"
)

// WeeklyReader is the read capability the evaluator needs for working hours.
// It returns ErrNotFound when there is no active entry for the day.
type WeeklyReader interface {
	GetWeeklyAvailability(ctx context.Context, practitionerID uuid.UUID, day time.Weekday) (*WeeklyAvailability, error)
}

// BlockedReader is the read capability the evaluator needs for blocks. Only
// active blocks with from <= date <= to are returned.
type BlockedReader interface {
	FindBlocks(ctx context.Context, practitionerID uuid.UUID, from, to caltime.Date) ([]*BlockedDate, error)
}

type WeeklyRepository interface {
	WeeklyReader
	// Upsert deactivates the current active entry for the same practitioner
	// and day, then stores w as the new active entry.
	Upsert(ctx context.Context, w *WeeklyAvailability) error
	ListByPractitioner(ctx context.Context, practitionerID uuid.UUID, includeInactive bool) ([]*WeeklyAvailability, error)
	Deactivate(ctx context.Context, practitionerID uuid.UUID, day time.Weekday) error
}

type BlockedDateRepository interface {
	BlockedReader
	Create(ctx context.Context, b *BlockedDate) error
	GetByID(ctx context.Context, id uuid.UUID) (*BlockedDate, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}
