package caltime

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

func TestParseTimeOfDay_Valid(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"00:00", 0},
		{"08:30", 8*60 + 30},
		{"12:00", 720},
		{"23:59", 1439},
	}
	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.in)
		if err != nil {
			t.Fatalf("ParseTimeOfDay(%q): unexpected error: %v", tt.in, err)
		}
		if got.Minutes() != tt.want {
			t.Errorf("ParseTimeOfDay(%q) = %d, want %d", tt.in, got.Minutes(), tt.want)
		}
		if got.String() != tt.in {
			t.Errorf("round trip: got %q, want %q", got.String(), tt.in)
		}
	}
}

func TestParseTimeOfDay_Invalid(t *testing.T) {
	for _, in := range []string{"", "9:00", "24:00", "12:60", "12-00", "ab:cd", "12:00:00", " 12:00"} {
		_, err := ParseTimeOfDay(in)
		if err == nil {
			t.Errorf("ParseTimeOfDay(%q): expected error", in)
			continue
		}
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Errorf("ParseTimeOfDay(%q): expected *FormatError, got %T", in, err)
		}
	}
}

func TestTimeOfDay_OrderingMatchesStrings(t *testing.T) {
	a := MustParse("09:30")
	b := MustParse("10:00")
	if !(a < b) || !(a.String() < b.String()) {
		t.Error("numeric and string ordering should agree")
	}
	if !a.Before(b) || !b.After(a) {
		t.Error("Before/After disagree with ordering")
	}
}

func TestNewInterval_RejectsEmptyAndInverted(t *testing.T) {
	if _, err := NewInterval(MustParse("10:00"), MustParse("10:00")); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("zero-length: expected ErrInvalidInterval, got %v", err)
	}
	if _, err := NewInterval(MustParse("11:00"), MustParse("10:00")); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("inverted: expected ErrInvalidInterval, got %v", err)
	}
	iv, err := NewInterval(MustParse("10:00"), MustParse("10:30"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if iv.Duration() != 30 {
		t.Errorf("expected duration 30, got %d", iv.Duration())
	}
}

func TestParseInterval_FieldOnFormatError(t *testing.T) {
	_, err := ParseInterval("08:00", "8:30")
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FormatError, got %v", err)
	}
	if fe.Field != "end" {
		t.Errorf("expected field end, got %q", fe.Field)
	}
}

func TestOverlaps_HalfOpen(t *testing.T) {
	tests := []struct {
		a, b Interval
		want bool
	}{
		{MustInterval("11:30", "12:00"), MustInterval("12:00", "13:00"), false},
		{MustInterval("13:00", "13:30"), MustInterval("12:00", "13:00"), false},
		{MustInterval("12:00", "12:30"), MustInterval("12:00", "13:00"), true},
		{MustInterval("11:59", "12:01"), MustInterval("12:00", "13:00"), true},
		{MustInterval("08:00", "18:00"), MustInterval("12:00", "13:00"), true},
		{MustInterval("08:00", "09:00"), MustInterval("10:00", "11:00"), false},
	}
	for _, tt := range tests {
		if got := Overlaps(tt.a, tt.b); got != tt.want {
			t.Errorf("Overlaps(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
		if got := Overlaps(tt.b, tt.a); got != tt.want {
			t.Errorf("Overlaps is not symmetric for %s, %s", tt.a, tt.b)
		}
	}
}

func TestContains(t *testing.T) {
	work := MustInterval("08:00", "17:00")
	if !Contains(work, MustInterval("08:00", "17:00")) {
		t.Error("interval should contain itself")
	}
	if Contains(work, MustInterval("16:30", "17:30")) {
		t.Error("interval running past end should not be contained")
	}
	if ContainsStrict(work, MustInterval("08:00", "09:00")) {
		t.Error("strict containment must reject touching the start")
	}
	if !ContainsStrict(work, MustInterval("12:00", "13:00")) {
		t.Error("strict containment should accept an inner interval")
	}
}

func TestTimeOfDay_JSON(t *testing.T) {
	var iv Interval
	if err := json.Unmarshal([]byte(`{"start":"08:00","end":"09:15"}`), &iv); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if iv.Start != MustParse("08:00") || iv.End != MustParse("09:15") {
		t.Errorf("unexpected interval %s", iv)
	}
	out, _ := json.Marshal(iv)
	if string(out) != `{"start":"08:00","end":"09:15"}` {
		t.Errorf("unexpected JSON %s", out)
	}
	if err := json.Unmarshal([]byte(`{"start":"8:00","end":"09:15"}`), &iv); err == nil {
		t.Error("expected error for non zero-padded time")
	}
}

func TestDate_ParseAndWeekday(t *testing.T) {
	d, err := ParseDate("2025-12-25")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Weekday() != time.Thursday {
		t.Errorf("expected Thursday, got %s", d.Weekday())
	}
	if d.String() != "2025-12-25" {
		t.Errorf("unexpected string %s", d)
	}
	if got := d.AddDays(7).String(); got != "2026-01-01" {
		t.Errorf("AddDays(7) = %s", got)
	}
	if _, err := ParseDate("25/12/2025"); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestPgxRoundTrip(t *testing.T) {
	tod := MustParse("14:45")
	pv, err := tod.TimeValue()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var back TimeOfDay
	if err := back.ScanTime(pv); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back != tod {
		t.Errorf("time round trip: got %s, want %s", back, tod)
	}
	if err := back.ScanTime(pgtype.Time{}); err == nil {
		t.Error("expected error scanning NULL time")
	}

	d := MustParseDate("2025-03-04")
	dv, _ := d.DateValue()
	var dback Date
	if err := dback.ScanDate(dv); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dback != d {
		t.Errorf("date round trip: got %s, want %s", dback, d)
	}
}

func TestNullableIntervalPg(t *testing.T) {
	s, e := PgTimes(nil)
	if s.Valid || e.Valid {
		t.Fatal("expected NULL pair for nil interval")
	}
	iv, err := IntervalFromPg(s, e)
	if err != nil || iv != nil {
		t.Fatalf("expected nil interval, got %v, %v", iv, err)
	}

	want := MustInterval("12:00", "13:00")
	s, e = PgTimes(&want)
	iv, err = IntervalFromPg(s, e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if iv == nil || *iv != want {
		t.Errorf("expected %s, got %v", want, iv)
	}

	if _, err := IntervalFromPg(s, pgtype.Time{}); err == nil {
		t.Error("expected error for half-null interval")
	}
}
