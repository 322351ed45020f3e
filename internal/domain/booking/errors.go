package booking

import (
	"errors"
	"strings"

	"github.com/clinic/clinic/pkg/caltime"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrCommitConflict is returned by an AppointmentCommitter when another
	// active appointment for the practitioner overlaps at commit time.
	ErrCommitConflict = errors.New("overlapping appointment committed concurrently")

	// ErrStaleStatus means the appointment changed status between read and
	// update.
	ErrStaleStatus = errors.New("appointment status changed concurrently")

	ErrInvalidTransition = errors.New("invalid reservation state transition")
)

// SchedulingConflict is the expected outcome when a requested slot cannot be
// booked. Conflicts are staff-facing messages.
type SchedulingConflict struct {
	Conflicts      []string
	SuggestedTimes []caltime.TimeOfDay
}

func (e *SchedulingConflict) Error() string {
	return "scheduling conflict: " + strings.Join(e.Conflicts, "; ")
}

func IsSchedulingConflict(err error) bool {
	var sc *SchedulingConflict
	return errors.As(err, &sc)
}
