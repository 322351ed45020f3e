package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/metrics"
	"github.com/clinic/clinic/pkg/caltime"
)

// Conflict messages are shown to clinic staff verbatim.
const (
	msgNoWorkday      = "Profissional não atende neste dia"
	msgOutsideHours   = "Fora do horário de trabalho (%s)"
	msgBreakOverlap   = "Conflito com horário de almoço (%s)"
	msgFullDayBlocked = "Dia completamente bloqueado: %s"
	msgWindowBlocked  = "Horário bloqueado %s: %s"
)

// SuggestionGrid describes the candidate start times scanned when proposing
// alternatives: every SlotMinutes from DayStart (inclusive) to DayEnd
// (exclusive), returning at most Max results.
type SuggestionGrid struct {
	SlotMinutes int
	DayStart    caltime.TimeOfDay
	DayEnd      caltime.TimeOfDay
	Max         int
}

// DefaultSuggestionGrid is the clinic's standard half-hour grid, 08:00-18:00.
func DefaultSuggestionGrid() SuggestionGrid {
	return SuggestionGrid{
		SlotMinutes: 30,
		DayStart:    caltime.MustParse("08:00"),
		DayEnd:      caltime.MustParse("18:00"),
		Max:         3,
	}
}

func (g SuggestionGrid) Validate() error {
	if g.SlotMinutes <= 0 {
		return fmt.Errorf("suggestion slot must be positive, got %d minutes", g.SlotMinutes)
	}
	if _, err := caltime.NewInterval(g.DayStart, g.DayEnd); err != nil {
		return fmt.Errorf("suggestion day window: %w", err)
	}
	if g.Max <= 0 {
		return fmt.Errorf("suggestion max must be positive, got %d", g.Max)
	}
	return nil
}

// Snapshot is everything the evaluator decides on for one practitioner and
// date. Weekly is nil when the practitioner does not work that day.
type Snapshot struct {
	PractitionerID uuid.UUID
	Date           caltime.Date
	Weekly         *WeeklyAvailability
	Blocks         []*BlockedDate
}

// Evaluator answers whether an interval is theoretically bookable for a
// practitioner on a date, based on working hours, breaks and blocks. Existing
// appointments are not consulted; see booking.Validator for that.
type Evaluator struct {
	weekly  WeeklyReader
	blocks  BlockedReader
	grid    SuggestionGrid
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewEvaluator(weekly WeeklyReader, blocks BlockedReader, grid SuggestionGrid, logger zerolog.Logger, m *metrics.Metrics) *Evaluator {
	return &Evaluator{weekly: weekly, blocks: blocks, grid: grid, logger: logger, metrics: m}
}

// CheckAvailability evaluates interval for practitionerID on date.
func (e *Evaluator) CheckAvailability(ctx context.Context, practitionerID uuid.UUID, date caltime.Date, interval caltime.Interval) (*AvailabilityResult, error) {
	if err := interval.Validate(); err != nil {
		return nil, err
	}
	snap, err := e.LoadSnapshot(ctx, practitionerID, date)
	if err != nil {
		return nil, err
	}
	res := e.Evaluate(snap, interval)
	e.metrics.ObserveAvailabilityCheck(res.Available)
	e.logger.Debug().
		Str("practitioner_id", practitionerID.String()).
		Str("date", date.String()).
		Str("interval", interval.String()).
		Bool("available", res.Available).
		Int("conflicts", len(res.Conflicts)).
		Msg("availability evaluated")
	return res, nil
}

// LoadSnapshot fetches weekly hours and, when the practitioner works that day,
// the active blocks for the date. Storage errors are returned wrapped.
func (e *Evaluator) LoadSnapshot(ctx context.Context, practitionerID uuid.UUID, date caltime.Date) (*Snapshot, error) {
	snap := &Snapshot{PractitionerID: practitionerID, Date: date}

	w, err := e.weekly.GetWeeklyAvailability(ctx, practitionerID, date.Weekday())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return snap, nil
		}
		return nil, fmt.Errorf("load weekly availability: %w", err)
	}
	snap.Weekly = w

	blocks, err := e.blocks.FindBlocks(ctx, practitionerID, date, date)
	if err != nil {
		return nil, fmt.Errorf("load blocked dates: %w", err)
	}
	sortBlocks(blocks)
	snap.Blocks = blocks
	return snap, nil
}

// Evaluate applies the availability rules to an already loaded snapshot.
// Conflicts accumulate; only a missing working day short-circuits.
func (e *Evaluator) Evaluate(snap *Snapshot, interval caltime.Interval) *AvailabilityResult {
	res := &AvailabilityResult{Conflicts: []string{}}

	w := snap.Weekly
	if w == nil {
		res.Conflicts = append(res.Conflicts, msgNoWorkday)
		return res
	}

	if !caltime.Contains(w.Work, interval) {
		res.Conflicts = append(res.Conflicts, fmt.Sprintf(msgOutsideHours, w.Work))
	}
	if w.Break != nil && caltime.Overlaps(interval, *w.Break) {
		res.Conflicts = append(res.Conflicts, fmt.Sprintf(msgBreakOverlap, *w.Break))
	}
	for _, b := range snap.Blocks {
		switch {
		case b.FullDay():
			res.Conflicts = append(res.Conflicts, fmt.Sprintf(msgFullDayBlocked, b.Reason))
		case caltime.Overlaps(interval, *b.Window):
			res.Conflicts = append(res.Conflicts, fmt.Sprintf(msgWindowBlocked, *b.Window, b.Reason))
		}
	}

	res.Available = len(res.Conflicts) == 0
	if !res.Available {
		res.SuggestedTimes = e.Suggest(snap, interval.Duration(), nil)
	}
	return res
}

// Suggest scans the grid for start times whose interval of the given duration
// fits the working window, avoids the break and every block, and does not
// overlap any busy interval. Results are in ascending order.
func (e *Evaluator) Suggest(snap *Snapshot, duration int, busy []caltime.Interval) []caltime.TimeOfDay {
	slots := e.scan(snap, duration, busy, e.grid.Max)
	if len(slots) == 0 {
		return nil
	}
	out := make([]caltime.TimeOfDay, len(slots))
	for i, s := range slots {
		out[i] = s.Start
	}
	return out
}

// FreeSlots is Suggest without the result cap: every grid slot of the given
// duration that is bookable on the snapshot's day.
func (e *Evaluator) FreeSlots(snap *Snapshot, duration int, busy []caltime.Interval) []caltime.Interval {
	return e.scan(snap, duration, busy, 0)
}

// scan walks the grid; limit <= 0 means no limit.
func (e *Evaluator) scan(snap *Snapshot, duration int, busy []caltime.Interval, limit int) []caltime.Interval {
	w := snap.Weekly
	if w == nil || duration <= 0 {
		return nil
	}
	blocked := make([]caltime.Interval, 0, len(snap.Blocks))
	for _, b := range snap.Blocks {
		if b.FullDay() {
			return nil
		}
		blocked = append(blocked, *b.Window)
	}

	g := e.grid
	var out []caltime.Interval
	for t := g.DayStart; t < g.DayEnd; t = t.Add(g.SlotMinutes) {
		if limit > 0 && len(out) >= limit {
			break
		}
		end := t.Add(duration)
		if !end.Valid() {
			break
		}
		cand := caltime.Interval{Start: t, End: end}
		if !caltime.Contains(w.Work, cand) {
			continue
		}
		if w.Break != nil && caltime.Overlaps(cand, *w.Break) {
			continue
		}
		if caltime.OverlapsAny(cand, blocked) || caltime.OverlapsAny(cand, busy) {
			continue
		}
		out = append(out, cand)
	}
	return out
}

// sortBlocks orders full-day blocks first, then by window start, then reason,
// so repeated evaluations report conflicts in the same order.
func sortBlocks(blocks []*BlockedDate) {
	sort.SliceStable(blocks, func(i, j int) bool {
		a, b := blocks[i], blocks[j]
		if a.FullDay() != b.FullDay() {
			return a.FullDay()
		}
		if !a.FullDay() && a.Window.Start != b.Window.Start {
			return a.Window.Start < b.Window.Start
		}
		return a.Reason < b.Reason
	})
}
