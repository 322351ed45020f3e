package booking

import (
	"fmt"

	"github.com/clinic/clinic/pkg/caltime"
)

// ReservationState tracks one validate-and-reserve attempt.
type ReservationState string

const (
	ReservationProposed  ReservationState = "PROPOSED"
	ReservationConfirmed ReservationState = "CONFIRMED"
	ReservationRejected  ReservationState = "REJECTED"
)

// Reservation is the transient record of a booking attempt. It starts
// PROPOSED and ends in exactly one of CONFIRMED or REJECTED.
type Reservation struct {
	Request     ReserveRequest
	State       ReservationState
	Conflicts   []string
	Suggested   []caltime.TimeOfDay
	Appointment *Appointment
}

func NewReservation(req ReserveRequest) *Reservation {
	return &Reservation{Request: req, State: ReservationProposed}
}

func (r *Reservation) transition(to ReservationState) error {
	if r.State != ReservationProposed || (to != ReservationConfirmed && to != ReservationRejected) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.State, to)
	}
	r.State = to
	return nil
}

// Confirm records the committed appointment.
func (r *Reservation) Confirm(a *Appointment) error {
	if err := r.transition(ReservationConfirmed); err != nil {
		return err
	}
	r.Appointment = a
	return nil
}

// Reject records why the slot could not be reserved.
func (r *Reservation) Reject(conflicts []string, suggested []caltime.TimeOfDay) error {
	if err := r.transition(ReservationRejected); err != nil {
		return err
	}
	r.Conflicts = conflicts
	r.Suggested = suggested
	return nil
}

// Err returns the SchedulingConflict for a rejected reservation, nil otherwise.
func (r *Reservation) Err() error {
	if r.State != ReservationRejected {
		return nil
	}
	return &SchedulingConflict{Conflicts: r.Conflicts, SuggestedTimes: r.Suggested}
}
