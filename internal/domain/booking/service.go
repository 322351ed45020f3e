package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/domain/availability"
	"github.com/clinic/clinic/pkg/caltime"
)

const (
	// maxListRangeDays bounds practitioner agenda queries.
	maxListRangeDays = 92
	maxSlotMinutes   = 8 * 60
)

type Service struct {
	appointments AppointmentRepository
	validator    *Validator
	logger       zerolog.Logger
}

func NewService(appointments AppointmentRepository, validator *Validator, logger zerolog.Logger) *Service {
	return &Service{appointments: appointments, validator: validator, logger: logger}
}

// BookRequest is a new appointment as requested by reception.
type BookRequest struct {
	PractitionerID uuid.UUID
	PatientID      uuid.UUID
	ServiceID      *uuid.UUID
	Date           caltime.Date
	Interval       caltime.Interval
	Notes          string
}

func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	if req.PractitionerID == uuid.Nil {
		return nil, &availability.ValidationError{Field: "practitioner_id", Reason: "profissional é obrigatório"}
	}
	if req.PatientID == uuid.Nil {
		return nil, &availability.ValidationError{Field: "patient_id", Reason: "paciente é obrigatório"}
	}
	a, err := s.validator.ValidateAndReserve(ctx, ReserveRequest{
		PractitionerID: req.PractitionerID,
		PatientID:      req.PatientID,
		ServiceID:      req.ServiceID,
		Date:           req.Date,
		Interval:       req.Interval,
		Notes:          req.Notes,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("practitioner_id", a.PractitionerID.String()).
		Str("date", a.Date.String()).
		Str("interval", a.Interval.String()).
		Msg("appointment booked")
	return a, nil
}

// Reschedule moves a scheduled or confirmed appointment to a new date and interval with
// the same practitioner. The appointment never conflicts with itself.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, date caltime.Date, interval caltime.Interval) (*Appointment, error) {
	current, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != StatusScheduled && current.Status != StatusConfirmed {
		return nil, &availability.ValidationError{
			Field:  "status",
			Reason: fmt.Sprintf("agendamento com status %s não pode ser remarcado", current.Status),
		}
	}
	a, err := s.validator.ValidateAndReserve(ctx, ReserveRequest{
		PractitionerID:       current.PractitionerID,
		PatientID:            current.PatientID,
		ServiceID:            current.ServiceID,
		Date:                 date,
		Interval:             interval,
		ExcludeAppointmentID: &id,
		Notes:                current.Notes,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("appointment_id", id.String()).
		Str("from", current.Date.String()+" "+current.Interval.String()).
		Str("to", a.Date.String()+" "+a.Interval.String()).
		Msg("appointment rescheduled")
	return a, nil
}

// UpdateStatus applies a lifecycle transition.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, next Status) (*Appointment, error) {
	if !next.Valid() {
		return nil, &availability.ValidationError{Field: "status", Reason: fmt.Sprintf("status inválido: %s", next)}
	}
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Status.CanTransitionTo(next) {
		return nil, &availability.ValidationError{
			Field:  "status",
			Reason: fmt.Sprintf("transição de status inválida: %s → %s", a.Status, next),
		}
	}
	if err := s.appointments.UpdateStatus(ctx, id, a.Status, next); err != nil {
		if errors.Is(err, ErrStaleStatus) {
			return nil, err
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}
	s.logger.Info().
		Str("appointment_id", id.String()).
		Str("from", string(a.Status)).
		Str("to", string(next)).
		Msg("appointment status changed")
	a.Status = next
	return a, nil
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.UpdateStatus(ctx, id, StatusCancelled)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

// OpenSlots returns the bookable slots of the given duration in minutes.
func (s *Service) OpenSlots(ctx context.Context, practitionerID uuid.UUID, date caltime.Date, duration int) ([]caltime.Interval, error) {
	if duration <= 0 || duration > maxSlotMinutes {
		return nil, &availability.ValidationError{Field: "duration", Reason: "duração deve estar entre 1 e 480 minutos"}
	}
	return s.validator.OpenSlots(ctx, practitionerID, date, duration)
}

func (s *Service) ListByPractitioner(ctx context.Context, practitionerID uuid.UUID, from, to caltime.Date, limit, offset int) ([]*Appointment, int, error) {
	if to.Before(from) {
		return nil, 0, &availability.ValidationError{Field: "to", Reason: "data final deve ser posterior à data inicial"}
	}
	if from.AddDays(maxListRangeDays).Before(to) {
		return nil, 0, &availability.ValidationError{Field: "to", Reason: "período máximo de consulta é de 92 dias"}
	}
	items, total, err := s.appointments.ListByPractitioner(ctx, practitionerID, from, to, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	return items, total, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	items, total, err := s.appointments.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	return items, total, nil
}
