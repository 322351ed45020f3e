// Package caltime holds the wall-clock primitives used by scheduling: minute
// resolution times of day, half-open intervals between them, and civil dates.
// Values are compared numerically; the zero-padded string form is only used at
// the serialization boundary.
package caltime

import (
	"encoding/json"
	"fmt"
)

// MinutesPerDay is the exclusive upper bound of a TimeOfDay.
const MinutesPerDay = 24 * 60

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
// Valid values are 0 (00:00) through 1439 (23:59).
type TimeOfDay int

// ParseTimeOfDay parses a strict "HH:MM" 24-hour string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, &FormatError{Kind: "time", Value: s, Expected: "HH:MM"}
	}
	h, ok1 := twoDigits(s[0], s[1])
	m, ok2 := twoDigits(s[3], s[4])
	if !ok1 || !ok2 || h > 23 || m > 59 {
		return 0, &FormatError{Kind: "time", Value: s, Expected: "HH:MM"}
	}
	return TimeOfDay(h*60 + m), nil
}

// MustParse is like ParseTimeOfDay but panics on malformed input.
func MustParse(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// FromMinutes builds a TimeOfDay, rejecting values outside a single day.
func FromMinutes(m int) (TimeOfDay, error) {
	t := TimeOfDay(m)
	if !t.Valid() {
		return 0, &FormatError{Kind: "time", Value: fmt.Sprintf("%d", m), Expected: "minute of day 0-1439"}
	}
	return t, nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// Valid reports whether t lies within 00:00..23:59.
func (t TimeOfDay) Valid() bool { return t >= 0 && t < MinutesPerDay }

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Minutes returns the minute-of-day value.
func (t TimeOfDay) Minutes() int { return int(t) }

// Add returns t shifted by the given number of minutes. The result may be
// outside a single day; callers check Valid.
func (t TimeOfDay) Add(minutes int) TimeOfDay { return t + TimeOfDay(minutes) }

func (t TimeOfDay) Before(u TimeOfDay) bool { return t < u }
func (t TimeOfDay) After(u TimeOfDay) bool  { return t > u }

// String formats t as zero-padded "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &FormatError{Kind: "time", Value: string(data), Expected: "HH:MM"}
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalText and UnmarshalText let TimeOfDay be used in query binding and
// map keys.
func (t TimeOfDay) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
