package common

import (
	"errors"
	"fmt"
	"time"
)

// SimpleTimeFormat a common, but non-implemented time format in golang
const SimpleTimeFormat = time.DateTime

var (
	// ErrNilPointer defines an error for a nil pointer
	ErrNilPointer = errors.New("nil pointer")
	// ErrDateUnset is an error for start end check calculations
	ErrDateUnset = errors.New("date unset")
	// ErrStartAfterEnd is returned when the start time is after the end time
	ErrStartAfterEnd = errors.New("start date after end date")
	// ErrStartEqualsEnd is returned when the start and end times are equal
	ErrStartEqualsEnd = errors.New("start date equals end date")
)

// StartEndTimeCheck provides some basic checks which occur frequently
func StartEndTimeCheck(start, end time.Time) error {
	if start.IsZero() {
		return fmt.Errorf("start %w", ErrDateUnset)
	}
	if end.IsZero() {
		return fmt.Errorf("end %w", ErrDateUnset)
	}
	if start.After(end) {
		return ErrStartAfterEnd
	}
	if start.Equal(end) {
		return ErrStartEqualsEnd
	}
	return nil
}
