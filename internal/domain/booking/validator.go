package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/domain/availability"
	"github.com/clinic/clinic/internal/platform/metrics"
	"github.com/clinic/clinic/pkg/caltime"
)

const (
	msgExistingAppointment = "Conflito com agendamento existente (%s)"
	msgSlotJustTaken       = "Horário acabou de ser reservado por outro agendamento"
)

// ReserveRequest describes a slot to reserve. ExcludeAppointmentID is set
// when rescheduling so the appointment does not conflict with itself.
type ReserveRequest struct {
	PractitionerID       uuid.UUID
	PatientID            uuid.UUID
	ServiceID            *uuid.UUID
	Date                 caltime.Date
	Interval             caltime.Interval
	ExcludeAppointmentID *uuid.UUID
	Notes                string
}

// Validator checks a requested slot against availability and existing
// appointments, then commits it through the store's atomic check-and-write.
type Validator struct {
	evaluator *availability.Evaluator
	ledger    AppointmentLedger
	committer AppointmentCommitter
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

func NewValidator(evaluator *availability.Evaluator, ledger AppointmentLedger, committer AppointmentCommitter, logger zerolog.Logger, m *metrics.Metrics) *Validator {
	return &Validator{evaluator: evaluator, ledger: ledger, committer: committer, logger: logger, metrics: m}
}

// ValidateAndReserve returns the committed appointment, a *SchedulingConflict
// when the slot cannot be booked, or a wrapped storage error.
func (v *Validator) ValidateAndReserve(ctx context.Context, req ReserveRequest) (*Appointment, error) {
	res, err := v.reserve(ctx, req)
	switch {
	case err != nil:
		v.metrics.ObserveReservation(metrics.OutcomeError)
		return nil, err
	case res.State == ReservationRejected:
		v.metrics.ObserveReservation(metrics.OutcomeRejected)
		v.logger.Info().
			Str("practitioner_id", req.PractitionerID.String()).
			Str("date", req.Date.String()).
			Str("interval", req.Interval.String()).
			Int("conflicts", len(res.Conflicts)).
			Msg("reservation rejected")
		return nil, res.Err()
	}
	v.metrics.ObserveReservation(metrics.OutcomeConfirmed)
	return res.Appointment, nil
}

func (v *Validator) reserve(ctx context.Context, req ReserveRequest) (*Reservation, error) {
	if err := req.Interval.Validate(); err != nil {
		return nil, err
	}
	res := NewReservation(req)

	snap, err := v.evaluator.LoadSnapshot(ctx, req.PractitionerID, req.Date)
	if err != nil {
		return nil, err
	}
	avail := v.evaluator.Evaluate(snap, req.Interval)
	if snap.Weekly == nil {
		return res, res.Reject(avail.Conflicts, nil)
	}

	existing, err := v.ledger.ListActive(ctx, req.PractitionerID, req.Date, req.ExcludeAppointmentID)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	busy := busyIntervals(existing)
	duration := req.Interval.Duration()

	if !avail.Available {
		return res, res.Reject(avail.Conflicts, v.evaluator.Suggest(snap, duration, busy))
	}
	if conflicts := overlapConflicts(req.Interval, existing); len(conflicts) > 0 {
		return res, res.Reject(conflicts, v.evaluator.Suggest(snap, duration, busy))
	}

	a := &Appointment{
		PractitionerID: req.PractitionerID,
		PatientID:      req.PatientID,
		ServiceID:      req.ServiceID,
		Date:           req.Date,
		Interval:       req.Interval,
		Status:         StatusScheduled,
		Notes:          req.Notes,
	}
	err = v.committer.Commit(ctx, a, req.ExcludeAppointmentID)
	if errors.Is(err, ErrCommitConflict) {
		v.metrics.ObserveReservation(metrics.OutcomeCommitConflict)
		v.logger.Warn().
			Str("practitioner_id", req.PractitionerID.String()).
			Str("date", req.Date.String()).
			Str("interval", req.Interval.String()).
			Msg("slot taken concurrently")
		return res, res.Reject(v.lostRace(ctx, snap, req))
	}
	if err != nil {
		return nil, fmt.Errorf("commit appointment: %w", err)
	}
	return res, res.Confirm(a)
}

// lostRace rebuilds the conflict after a commit-time collision from a fresh
// read of the ledger. If that read fails the generic message is used.
func (v *Validator) lostRace(ctx context.Context, snap *availability.Snapshot, req ReserveRequest) ([]string, []caltime.TimeOfDay) {
	existing, err := v.ledger.ListActive(ctx, req.PractitionerID, req.Date, req.ExcludeAppointmentID)
	if err != nil {
		v.logger.Warn().Err(err).Msg("re-reading appointments after commit conflict")
		return []string{msgSlotJustTaken}, nil
	}
	conflicts := overlapConflicts(req.Interval, existing)
	if len(conflicts) == 0 {
		conflicts = []string{msgSlotJustTaken}
	}
	return conflicts, v.evaluator.Suggest(snap, req.Interval.Duration(), busyIntervals(existing))
}

func busyIntervals(existing []ExistingAppointment) []caltime.Interval {
	busy := make([]caltime.Interval, 0, len(existing))
	for _, e := range existing {
		if e.Status.Occupies() {
			busy = append(busy, e.Interval)
		}
	}
	return busy
}

func overlapConflicts(iv caltime.Interval, existing []ExistingAppointment) []string {
	var conflicts []string
	for _, e := range existing {
		if e.Status.Occupies() && caltime.Overlaps(iv, e.Interval) {
			conflicts = append(conflicts, fmt.Sprintf(msgExistingAppointment, e.Interval))
		}
	}
	return conflicts
}

// OpenSlots lists every grid slot of the given duration that could be booked
// right now for the practitioner on date.
func (v *Validator) OpenSlots(ctx context.Context, practitionerID uuid.UUID, date caltime.Date, duration int) ([]caltime.Interval, error) {
	snap, err := v.evaluator.LoadSnapshot(ctx, practitionerID, date)
	if err != nil {
		return nil, err
	}
	if snap.Weekly == nil {
		return nil, nil
	}
	existing, err := v.ledger.ListActive(ctx, practitionerID, date, nil)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return v.evaluator.FreeSlots(snap, duration, busyIntervals(existing)), nil
}
