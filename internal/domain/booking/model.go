package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/pkg/caltime"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// statusTransitions lists the lifecycle moves allowed from each status.
var statusTransitions = map[Status][]Status{
	StatusScheduled:  {StatusConfirmed, StatusInProgress, StatusCancelled, StatusNoShow},
	StatusConfirmed:  {StatusInProgress, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted},
}

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Occupies reports whether an appointment in this status holds its slot.
// Cancelled and no-show appointments free the slot.
func (s Status) Occupies() bool {
	return s != StatusCancelled && s != StatusNoShow
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Appointment maps to the appointment table.
type Appointment struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	PractitionerID uuid.UUID        `db:"practitioner_id" json:"practitioner_id"`
	PatientID      uuid.UUID        `db:"patient_id" json:"patient_id"`
	ServiceID      *uuid.UUID       `db:"service_id" json:"service_id,omitempty"`
	Date           caltime.Date     `db:"appointment_date" json:"date"`
	Interval       caltime.Interval `db:"-" json:"interval"`
	Status         Status           `db:"status" json:"status"`
	Notes          string           `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// ExistingAppointment is the read projection the conflict check works on.
type ExistingAppointment struct {
	ID             uuid.UUID
	PractitionerID uuid.UUID
	Date           caltime.Date
	Interval       caltime.Interval
	Status         Status
}

func (a *Appointment) Existing() ExistingAppointment {
	return ExistingAppointment{
		ID:             a.ID,
		PractitionerID: a.PractitionerID,
		Date:           a.Date,
		Interval:       a.Interval,
		Status:         a.Status,
	}
}
