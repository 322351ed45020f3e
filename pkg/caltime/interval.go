package caltime

import "fmt"

// Interval is a half-open time-of-day range [Start, End).
type Interval struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// NewInterval builds an interval, rejecting zero-length and inverted ranges.
func NewInterval(start, end TimeOfDay) (Interval, error) {
	iv := Interval{Start: start, End: end}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// ParseInterval parses two "HH:MM" strings into an interval.
func ParseInterval(start, end string) (Interval, error) {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return Interval{}, WithField(err, "start")
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return Interval{}, WithField(err, "end")
	}
	return NewInterval(s, e)
}

// MustInterval is like ParseInterval but panics on error.
func MustInterval(start, end string) Interval {
	iv, err := ParseInterval(start, end)
	if err != nil {
		panic(err)
	}
	return iv
}

// Validate checks both endpoints lie within a day and Start < End.
func (iv Interval) Validate() error {
	if !iv.Start.Valid() {
		return &FormatError{Field: "start", Kind: "time", Value: fmt.Sprintf("%d", int(iv.Start)), Expected: "HH:MM"}
	}
	if !iv.End.Valid() {
		return &FormatError{Field: "end", Kind: "time", Value: fmt.Sprintf("%d", int(iv.End)), Expected: "HH:MM"}
	}
	if iv.Start >= iv.End {
		return fmt.Errorf("%s-%s: %w", iv.Start, iv.End, ErrInvalidInterval)
	}
	return nil
}

// Duration returns the length of the interval in minutes.
func (iv Interval) Duration() int { return int(iv.End - iv.Start) }

// String formats the interval as "HH:MM-HH:MM".
func (iv Interval) String() string {
	return iv.Start.String() + "-" + iv.End.String()
}

// Overlaps reports whether a and b share any minute. Touching endpoints do
// not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// Contains reports whether inner lies within outer, endpoints included.
func Contains(outer, inner Interval) bool {
	return inner.Start >= outer.Start && inner.End <= outer.End
}

// ContainsStrict reports whether inner lies within outer without touching
// either of outer's endpoints.
func ContainsStrict(outer, inner Interval) bool {
	return inner.Start > outer.Start && inner.End < outer.End
}

// OverlapsAny reports whether iv overlaps at least one interval in others.
func OverlapsAny(iv Interval, others []Interval) bool {
	for _, o := range others {
		if Overlaps(iv, o) {
			return true
		}
	}
	return false
}
