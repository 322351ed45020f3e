package booking

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinic/clinic/pkg/caltime"
)

// AppointmentLedger is the read side the conflict check needs: occupying
// appointments of a practitioner on a date, optionally skipping one id.
type AppointmentLedger interface {
	ListActive(ctx context.Context, practitionerID uuid.UUID, date caltime.Date, excludeID *uuid.UUID) ([]ExistingAppointment, error)
}

// AppointmentCommitter stores a validated appointment. Implementations must
// check for overlap and write atomically, returning ErrCommitConflict when an
// occupying appointment overlaps. With a non-nil excludeID the call moves
// that appointment to a's practitioner, date and interval instead of
// inserting, and fills a from the stored row.
type AppointmentCommitter interface {
	Commit(ctx context.Context, a *Appointment, excludeID *uuid.UUID) error
}

type AppointmentRepository interface {
	AppointmentLedger
	AppointmentCommitter
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// UpdateStatus moves id from one status to another, returning
	// ErrStaleStatus when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error
	ListByPractitioner(ctx context.Context, practitionerID uuid.UUID, from, to caltime.Date, limit, offset int) ([]*Appointment, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
}
