package caltime

import (
	"errors"
	"fmt"
)

// ErrInvalidInterval is returned when an interval's start is not strictly
// before its end.
var ErrInvalidInterval = errors.New("interval start must be before end")

// FormatError reports malformed time or date input.
type FormatError struct {
	Field    string // request field, filled in by callers that know it
	Kind     string // "time" or "date"
	Value    string
	Expected string
}

func (e *FormatError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: invalid %s %q, expected %s", e.Field, e.Kind, e.Value, e.Expected)
	}
	return fmt.Sprintf("invalid %s %q, expected %s", e.Kind, e.Value, e.Expected)
}

// WithField returns err annotated with the request field name when it is a
// *FormatError; other errors are returned unchanged.
func WithField(err error, field string) error {
	var fe *FormatError
	if errors.As(err, &fe) {
		cp := *fe
		cp.Field = field
		return &cp
	}
	return err
}
