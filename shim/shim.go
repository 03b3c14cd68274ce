// Package shim defines the host capabilities a virtual clock schedules on.
//
// A clock never touches time.AfterFunc or a render loop directly. Instead it
// is handed a set of capabilities (delayed execution, repeating execution,
// frame callbacks and clocks) that can be swapped independently, which keeps
// the clock deterministic under test.
package shim

import (
	"math"
	"time"
)

// Handle identifies one host registration. Zero is never a valid handle.
type Handle uint64

// OnceScheduler runs a function once after a delay.
type OnceScheduler interface {
	ScheduleOnce(fn func(), delay time.Duration) Handle
	CancelOnce(h Handle)
}

// RepeatingScheduler runs a function every interval until cancelled.
type RepeatingScheduler interface {
	ScheduleRepeating(fn func(), interval time.Duration) Handle
	CancelRepeating(h Handle)
}

// FrameScheduler runs a function on the next frame.
type FrameScheduler interface {
	ScheduleFrame(fn func()) Handle
	CancelFrame(h Handle)
}

// Clock tells time. Now must be monotonic and is used for elapsed-time math.
// WallClock stamps history events.
type Clock interface {
	Now() time.Time
	WallClock() time.Time
}

// Host bundles every capability. Both Loop and timing.Host implement it.
type Host interface {
	OnceScheduler
	RepeatingScheduler
	FrameScheduler
	Clock
}

// MsToDuration converts a fractional millisecond count into a Duration,
// rounding to the nearest nanosecond.
func MsToDuration(ms float64) time.Duration {
	return time.Duration(math.Round(ms * float64(time.Millisecond)))
}

// DurationToMs converts a Duration into fractional milliseconds.
func DurationToMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
