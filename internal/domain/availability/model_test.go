package availability

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/pkg/caltime"
)

func TestWeeklyAvailability_Validate(t *testing.T) {
	pid := uuid.New()
	ok := &WeeklyAvailability{PractitionerID: pid, DayOfWeek: time.Monday,
		Work: caltime.MustInterval("08:00", "17:00"), Break: ivp("12:00", "13:00")}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid entry, got %v", err)
	}

	missing := &WeeklyAvailability{DayOfWeek: time.Monday, Work: caltime.MustInterval("08:00", "17:00")}
	if !IsValidation(missing.Validate()) {
		t.Error("expected ValidationError for missing practitioner")
	}

	outOfRange := &WeeklyAvailability{PractitionerID: pid, DayOfWeek: time.Monday,
		Work: caltime.Interval{Start: caltime.MustParse("08:00"), End: caltime.TimeOfDay(1500)}}
	var fe *caltime.FormatError
	if err := outOfRange.Validate(); !errors.As(err, &fe) || fe.Field != "work" {
		t.Errorf("expected FormatError on work, got %v", err)
	}
}

func TestBlockedDate_FullDay(t *testing.T) {
	b := &BlockedDate{}
	if !b.FullDay() {
		t.Error("expected nil window to mean full day")
	}
	b.Window = ivp("09:00", "10:00")
	if b.FullDay() {
		t.Error("expected windowed block not to be full day")
	}
}

func TestAvailabilityResult_JSON(t *testing.T) {
	ok, _ := json.Marshal(&AvailabilityResult{Available: true, Conflicts: []string{}})
	if string(ok) != `{"available":true,"conflicts":[]}` {
		t.Errorf("unexpected JSON: %s", ok)
	}
	busy, _ := json.Marshal(&AvailabilityResult{
		Conflicts:      []string{"Conflito com horário de almoço (12:00-13:00)"},
		SuggestedTimes: []caltime.TimeOfDay{caltime.MustParse("08:00")},
	})
	want := `{"available":false,"conflicts":["Conflito com horário de almoço (12:00-13:00)"],"suggested_times":["08:00"]}`
	if string(busy) != want {
		t.Errorf("expected %s, got %s", want, busy)
	}
}
