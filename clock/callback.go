package clock

import (
	"fmt"
	"math"
	"strings"
)

// Kind selects how a callback is scheduled.
type Kind string

const (
	// KindCheckpoint fires when elapsed time reaches TimeMs.
	KindCheckpoint Kind = "checkpoint"

	// KindCheckpointOnce is a checkpoint that removes itself after firing.
	KindCheckpointOnce Kind = "checkpoint-once"

	// KindTick fires every TimeMs and stays aligned to the moment it was
	// registered across pauses.
	KindTick Kind = "tick"

	// KindTickReset fires every TimeMs and restarts its interval after every
	// pause.
	KindTickReset Kind = "tick-reset"
)

var kinds = []Kind{KindCheckpoint, KindCheckpointOnce, KindTick, KindTickReset}

// IsCheckpoint reports whether k targets an absolute elapsed time.
func (k Kind) IsCheckpoint() bool {
	return k == KindCheckpoint || k == KindCheckpointOnce
}

func (k Kind) valid() bool {
	for _, known := range kinds {
		if k == known {
			return true
		}
	}

	return false
}

// ProtectedPrefix marks callbacks that RemoveAllCallbacks leaves alone.
const ProtectedPrefix = "!"

// Callback declares work to run on a clock. T is the clock type handed to the
// action, *Timer or *Countdown.
type Callback[T any] struct {
	Kind Kind

	// TimeMs is the target elapsed time for checkpoints and the interval for
	// ticks.
	TimeMs float64

	Action func(clock T)

	// RequireFrameSync defers every invocation to the next frame. A deferred
	// invocation is dropped if the clock pauses or is disposed, or the
	// callback is removed, before that frame; neither the action nor its
	// history event happens.
	RequireFrameSync bool

	// ExecuteOnUpdate also runs the action whenever the clock is paused,
	// resumed, re-speeded or adjusted by hand.
	ExecuteOnUpdate bool

	// Name must be unique within Kind. Empty names are generated.
	Name string

	LogExecutions bool

	// DisableDriftCompensation makes a tick restart its full interval on
	// resume. Ignored for other kinds.
	DisableDriftCompensation bool
}

func (cb Callback[T]) validate() error {
	if !cb.Kind.valid() {
		return fmt.Errorf("%w: unknown callback kind %q",
			ErrInvalidConfiguration, cb.Kind)
	}

	if cb.Action == nil {
		return fmt.Errorf("%w: %s callback %q has no action",
			ErrInvalidConfiguration, cb.Kind, cb.Name)
	}

	if math.IsNaN(cb.TimeMs) || math.IsInf(cb.TimeMs, 0) {
		return fmt.Errorf("%w: %s callback %q has time %v",
			ErrInvalidConfiguration, cb.Kind, cb.Name, cb.TimeMs)
	}

	if cb.Kind.IsCheckpoint() {
		return nil
	}

	if cb.TimeMs < 0 || (cb.TimeMs == 0 && !cb.RequireFrameSync) {
		return fmt.Errorf(
			"%w: %s callback %q needs a positive interval, got %v",
			ErrInvalidConfiguration, cb.Kind, cb.Name, cb.TimeMs)
	}

	return nil
}

type callbackKey struct {
	kind Kind
	name string
}

func (k callbackKey) String() string {
	return string(k.kind) + "/" + k.name
}

func (k callbackKey) protected() bool {
	return strings.HasPrefix(k.name, ProtectedPrefix)
}

// record is a registered callback plus its scheduling anchors.
type record[T any] struct {
	Callback[T]

	key             callbackKey
	lastExecutionMs float64
	registeredAt    float64
}

func (r *record[T]) planInput() planInput {
	return planInput{
		kind:                     r.Kind,
		timeMs:                   r.TimeMs,
		requireFrameSync:         r.RequireFrameSync,
		disableDriftCompensation: r.DisableDriftCompensation,
		lastExecutionMs:          r.lastExecutionMs,
		registeredAt:             r.registeredAt,
	}
}

// CallbackInfo is a read-only view of a registered callback.
type CallbackInfo struct {
	Name                     string  `json:"name"`
	Kind                     Kind    `json:"kind"`
	TimeMs                   float64 `json:"time_ms"`
	RequireFrameSync         bool    `json:"require_frame_sync"`
	ExecuteOnUpdate          bool    `json:"execute_on_update"`
	LogExecutions            bool    `json:"log_executions"`
	DisableDriftCompensation bool    `json:"disable_drift_compensation"`
	LastExecutionMs          float64 `json:"last_execution_ms"`
	RegisteredAtMs           float64 `json:"registered_at_ms"`

	// Scheduled is the host tier currently holding the callback: "once",
	// "repeating", "frame", or empty when nothing is pending.
	Scheduled string `json:"scheduled"`
}
