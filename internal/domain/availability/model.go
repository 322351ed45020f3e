package availability

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/pkg/caltime"
)

// WeeklyAvailability maps to the weekly_availability table: a practitioner's
// working window (and optional break) on one day of the week.
type WeeklyAvailability struct {
	ID             uuid.UUID         `db:"id" json:"id"`
	PractitionerID uuid.UUID         `db:"practitioner_id" json:"practitioner_id"`
	DayOfWeek      time.Weekday      `db:"day_of_week" json:"day_of_week"`
	Work           caltime.Interval  `db:"work" json:"work"`
	Break          *caltime.Interval `db:"break" json:"break,omitempty"`
	Active         bool              `db:"active" json:"active"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}

// Validate checks the write-side invariants of a weekly entry.
func (w *WeeklyAvailability) Validate() error {
	if w.PractitionerID == uuid.Nil {
		return &ValidationError{Field: "practitioner_id", Reason: "profissional é obrigatório"}
	}
	if w.DayOfWeek < time.Sunday || w.DayOfWeek > time.Saturday {
		return &ValidationError{Field: "day_of_week", Reason: "dia da semana deve estar entre 0 (domingo) e 6 (sábado)"}
	}
	if err := w.Work.Validate(); err != nil {
		return intervalError("work", "horário de início deve ser anterior ao horário de término", err)
	}
	if w.Break != nil {
		if err := w.Break.Validate(); err != nil {
			return intervalError("break", "início do intervalo deve ser anterior ao término", err)
		}
		if !caltime.ContainsStrict(w.Work, *w.Break) {
			return &ValidationError{Field: "break", Reason: "intervalo deve estar dentro do horário de trabalho"}
		}
	}
	return nil
}

// BlockedDate maps to the blocked_date table. A nil Window blocks the whole
// day.
type BlockedDate struct {
	ID             uuid.UUID         `db:"id" json:"id"`
	PractitionerID uuid.UUID         `db:"practitioner_id" json:"practitioner_id"`
	Date           caltime.Date      `db:"blocked_on" json:"date"`
	Window         *caltime.Interval `db:"window" json:"window,omitempty"`
	Reason         string            `db:"reason" json:"reason"`
	Active         bool              `db:"active" json:"active"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
}

// FullDay reports whether the block covers the entire day.
func (b *BlockedDate) FullDay() bool { return b.Window == nil }

// Validate checks the write-side invariants of a block. Overlap with other
// blocks on the same day is allowed.
func (b *BlockedDate) Validate() error {
	if b.PractitionerID == uuid.Nil {
		return &ValidationError{Field: "practitioner_id", Reason: "profissional é obrigatório"}
	}
	if b.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "data é obrigatória"}
	}
	if b.Reason == "" {
		return &ValidationError{Field: "reason", Reason: "motivo do bloqueio é obrigatório"}
	}
	if b.Window != nil {
		if err := b.Window.Validate(); err != nil {
			return intervalError("window", "início do bloqueio deve ser anterior ao término", err)
		}
	}
	return nil
}

// AvailabilityResult is the transient answer to an availability query.
type AvailabilityResult struct {
	Available      bool                `json:"available"`
	Conflicts      []string            `json:"conflicts"`
	SuggestedTimes []caltime.TimeOfDay `json:"suggested_times,omitempty"`
}

// intervalError keeps format errors as they are and turns an inverted or empty
// interval into a ValidationError with the given reason.
func intervalError(field, reason string, err error) error {
	if errors.Is(err, caltime.ErrInvalidInterval) {
		return &ValidationError{Field: field, Reason: reason}
	}
	return caltime.WithField(err, field)
}
