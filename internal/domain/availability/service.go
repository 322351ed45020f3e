package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/pkg/caltime"
)

// maxBlockRangeDays bounds ListBlocks queries.
const maxBlockRangeDays = 366

type Service struct {
	weekly    WeeklyRepository
	blocks    BlockedDateRepository
	evaluator *Evaluator
	logger    zerolog.Logger
}

func NewService(weekly WeeklyRepository, blocks BlockedDateRepository, evaluator *Evaluator, logger zerolog.Logger) *Service {
	return &Service{weekly: weekly, blocks: blocks, evaluator: evaluator, logger: logger}
}

func (s *Service) Evaluator() *Evaluator { return s.evaluator }

// -- Availability --

func (s *Service) CheckAvailability(ctx context.Context, practitionerID uuid.UUID, date caltime.Date, interval caltime.Interval) (*AvailabilityResult, error) {
	return s.evaluator.CheckAvailability(ctx, practitionerID, date, interval)
}

// -- Weekly availability --

// SetWeeklyAvailability replaces the practitioner's active entry for the day.
func (s *Service) SetWeeklyAvailability(ctx context.Context, w *WeeklyAvailability) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if err := s.weekly.Upsert(ctx, w); err != nil {
		return fmt.Errorf("save weekly availability: %w", err)
	}
	evt := s.logger.Info().
		Str("practitioner_id", w.PractitionerID.String()).
		Str("day", w.DayOfWeek.String()).
		Str("work", w.Work.String())
	if w.Break != nil {
		evt = evt.Str("break", w.Break.String())
	}
	evt.Msg("weekly availability set")
	return nil
}

func (s *Service) ListWeeklyAvailability(ctx context.Context, practitionerID uuid.UUID, includeInactive bool) ([]*WeeklyAvailability, error) {
	items, err := s.weekly.ListByPractitioner(ctx, practitionerID, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list weekly availability: %w", err)
	}
	return items, nil
}

func (s *Service) DeactivateWeeklyAvailability(ctx context.Context, practitionerID uuid.UUID, day time.Weekday) error {
	if day < time.Sunday || day > time.Saturday {
		return &ValidationError{Field: "day_of_week", Reason: "dia da semana deve estar entre 0 (domingo) e 6 (sábado)"}
	}
	if err := s.weekly.Deactivate(ctx, practitionerID, day); err != nil {
		return err
	}
	s.logger.Info().
		Str("practitioner_id", practitionerID.String()).
		Str("day", day.String()).
		Msg("weekly availability deactivated")
	return nil
}

// -- Blocked dates --

func (s *Service) BlockDate(ctx context.Context, b *BlockedDate) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if err := s.blocks.Create(ctx, b); err != nil {
		return fmt.Errorf("create blocked date: %w", err)
	}
	evt := s.logger.Info().
		Str("practitioner_id", b.PractitionerID.String()).
		Str("date", b.Date.String()).
		Str("block_id", b.ID.String())
	if b.Window != nil {
		evt = evt.Str("window", b.Window.String())
	}
	evt.Msg("date blocked")
	return nil
}

func (s *Service) GetBlock(ctx context.Context, id uuid.UUID) (*BlockedDate, error) {
	return s.blocks.GetByID(ctx, id)
}

// ListBlocks returns active blocks with from <= date <= to.
func (s *Service) ListBlocks(ctx context.Context, practitionerID uuid.UUID, from, to caltime.Date) ([]*BlockedDate, error) {
	if to.Before(from) {
		return nil, &ValidationError{Field: "to", Reason: "data final deve ser posterior à data inicial"}
	}
	if from.AddDays(maxBlockRangeDays).Before(to) {
		return nil, &ValidationError{Field: "to", Reason: "período máximo de consulta é de um ano"}
	}
	items, err := s.blocks.FindBlocks(ctx, practitionerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list blocked dates: %w", err)
	}
	return items, nil
}

func (s *Service) UnblockDate(ctx context.Context, id uuid.UUID) error {
	if err := s.blocks.Deactivate(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("block_id", id.String()).Msg("date unblocked")
	return nil
}
