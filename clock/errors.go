package clock

import "errors"

var (
	// ErrNameConflict is returned when a callback name is already taken
	// within its kind.
	ErrNameConflict = errors.New("clock: callback name conflict")

	// ErrDisposed is returned by every operation on a disposed clock.
	ErrDisposed = errors.New("clock: disposed")

	// ErrInvalidConfiguration is returned for values the clock cannot work
	// with, such as a non-positive speed multiplier.
	ErrInvalidConfiguration = errors.New("clock: invalid configuration")
)
