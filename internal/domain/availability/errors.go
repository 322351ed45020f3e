package availability

import "errors"

// ErrNotFound signals a missing weekly entry or block. For weekly availability
// it means the practitioner has no capacity that day.
var ErrNotFound = errors.New("not found")

// ValidationError reports a structurally invalid availability or block
// definition. Reason is meant to be shown to staff as is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
