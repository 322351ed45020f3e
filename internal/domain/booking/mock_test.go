package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/domain/availability"
	"github.com/clinic/clinic/pkg/caltime"
)

// -- Availability readers --

type stubWeekly map[time.Weekday]*availability.WeeklyAvailability

func (s stubWeekly) GetWeeklyAvailability(_ context.Context, pid uuid.UUID, day time.Weekday) (*availability.WeeklyAvailability, error) {
	w, ok := s[day]
	if !ok || w.PractitionerID != pid {
		return nil, availability.ErrNotFound
	}
	return w, nil
}

type stubBlocks []*availability.BlockedDate

func (s stubBlocks) FindBlocks(_ context.Context, pid uuid.UUID, from, to caltime.Date) ([]*availability.BlockedDate, error) {
	var out []*availability.BlockedDate
	for _, b := range s {
		if b.PractitionerID == pid && !b.Date.Before(from) && !b.Date.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

// -- Appointment store --

// memoryAppointments serializes commits behind one mutex so the overlap check
// and the write are atomic, like the advisory lock in PostgreSQL.
type memoryAppointments struct {
	mu    sync.Mutex
	items map[uuid.UUID]*Appointment
	// beforeCommit runs inside Commit before the overlap check.
	beforeCommit func()
	listErr      error
}

func newMemoryAppointments() *memoryAppointments {
	return &memoryAppointments{items: make(map[uuid.UUID]*Appointment)}
}

func (m *memoryAppointments) ListActive(_ context.Context, pid uuid.UUID, date caltime.Date, excludeID *uuid.UUID) ([]ExistingAppointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []ExistingAppointment
	for _, a := range m.items {
		if a.PractitionerID != pid || a.Date != date || !a.Status.Occupies() {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		out = append(out, a.Existing())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Interval.Start < out[j].Interval.Start })
	return out, nil
}

func (m *memoryAppointments) Commit(_ context.Context, a *Appointment, excludeID *uuid.UUID) error {
	if m.beforeCommit != nil {
		m.beforeCommit()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.items {
		if e.PractitionerID != a.PractitionerID || e.Date != a.Date || !e.Status.Occupies() {
			continue
		}
		if excludeID != nil && e.ID == *excludeID {
			continue
		}
		if caltime.Overlaps(e.Interval, a.Interval) {
			return ErrCommitConflict
		}
	}

	now := time.Now()
	if excludeID != nil {
		cur, ok := m.items[*excludeID]
		if !ok || !cur.Status.Occupies() {
			return ErrAppointmentNotFound
		}
		cur.PractitionerID = a.PractitionerID
		cur.Date = a.Date
		cur.Interval = a.Interval
		cur.UpdatedAt = now
		*a = *cur
		return nil
	}

	a.ID = uuid.New()
	a.CreatedAt, a.UpdatedAt = now, now
	cp := *a
	m.items[a.ID] = &cp
	return nil
}

func (m *memoryAppointments) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memoryAppointments) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok || a.Status != from {
		return ErrStaleStatus
	}
	a.Status = to
	return nil
}

func (m *memoryAppointments) ListByPractitioner(_ context.Context, pid uuid.UUID, from, to caltime.Date, limit, offset int) ([]*Appointment, int, error) {
	return m.list(func(a *Appointment) bool {
		return a.PractitionerID == pid && !a.Date.Before(from) && !a.Date.After(to)
	}, limit, offset)
}

func (m *memoryAppointments) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return m.list(func(a *Appointment) bool { return a.PatientID == patientID }, limit, offset)
}

func (m *memoryAppointments) list(match func(*Appointment) bool, limit, offset int) ([]*Appointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*Appointment
	for _, a := range m.items {
		if match(a) {
			cp := *a
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Date != all[j].Date {
			return all[i].Date.Before(all[j].Date)
		}
		return all[i].Interval.Start < all[j].Interval.Start
	})
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// -- Fixture --

var (
	monday  = caltime.MustParseDate("2025-06-02")
	tuesday = caltime.MustParseDate("2025-06-03")
	sunday  = caltime.MustParseDate("2025-06-08")
)

type fixture struct {
	practitioner uuid.UUID
	patient      uuid.UUID
	store        *memoryAppointments
	validator    *Validator
	svc          *Service
}

func ivp(start, end string) *caltime.Interval {
	iv := caltime.MustInterval(start, end)
	return &iv
}

// newFixture: practitioner works Mon 08:00-17:00 with a 12:00-13:00 break
// and Tue 08:00-17:00 with a 14:00-15:30 "Reunião" block.
func newFixture() *fixture {
	f := &fixture{practitioner: uuid.New(), patient: uuid.New(), store: newMemoryAppointments()}
	weekly := stubWeekly{
		time.Monday: {PractitionerID: f.practitioner, DayOfWeek: time.Monday, Active: true,
			Work: caltime.MustInterval("08:00", "17:00"), Break: ivp("12:00", "13:00")},
		time.Tuesday: {PractitionerID: f.practitioner, DayOfWeek: time.Tuesday, Active: true,
			Work: caltime.MustInterval("08:00", "17:00")},
	}
	blocks := stubBlocks{
		{PractitionerID: f.practitioner, Date: tuesday, Window: ivp("14:00", "15:30"), Reason: "Reunião", Active: true},
	}
	ev := availability.NewEvaluator(weekly, blocks, availability.DefaultSuggestionGrid(), zerolog.Nop(), nil)
	f.validator = NewValidator(ev, f.store, f.store, zerolog.Nop(), nil)
	f.svc = NewService(f.store, f.validator, zerolog.Nop())
	return f
}

func (f *fixture) request(date caltime.Date, start, end string) ReserveRequest {
	return ReserveRequest{
		PractitionerID: f.practitioner,
		PatientID:      f.patient,
		Date:           date,
		Interval:       caltime.MustInterval(start, end),
	}
}

func (f *fixture) book(date caltime.Date, start, end string) (*Appointment, error) {
	return f.validator.ValidateAndReserve(context.Background(), f.request(date, start, end))
}
