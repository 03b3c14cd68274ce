package clock

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/sarchlab/vclock/idgen"
)

// CountdownCallback is a callback registered on a Countdown.
type CountdownCallback = Callback[*Countdown]

// completionCheckpointName is the protected checkpoint that ends a countdown.
const completionCheckpointName = ProtectedPrefix + "countdown-complete"

type completion struct {
	name    string
	fn      func(c *Countdown)
	runOnce bool
}

// Countdown is a clock whose public value is the time remaining until a fixed
// total elapses. When it reaches zero it pauses itself and runs its
// completion callbacks; a finished countdown cannot be resumed.
type Countdown struct {
	*Engine[*Countdown]

	totalMs     float64
	completions []*completion
	names       idgen.Generator
}

func newCountdown(cfg config, totalMs float64) (*Countdown, error) {
	if math.IsNaN(totalMs) || math.IsInf(totalMs, 0) || totalMs < 0 {
		return nil, fmt.Errorf("%w: countdown total must be non-negative, got %v",
			ErrInvalidConfiguration, totalMs)
	}

	c := &Countdown{
		totalMs: totalMs,
		names:   idgen.NewSequentialWithPrefix("complete"),
	}
	c.Engine = newEngine[*Countdown](cfg, map[string]any{"totalMs": totalMs})
	c.owner = c

	err := c.Engine.RegisterCallbacks(CountdownCallback{
		Kind:   KindCheckpoint,
		TimeMs: totalMs,
		Name:   completionCheckpointName,
		Action: (*Countdown).complete,
	})
	if err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Countdown) complete() {
	// Checkpoints due at the same instant run first. One of them may give
	// the countdown more time, in which case it is not done yet.
	reached := c.elapsedExact()
	c.fireDueCheckpoints(c.totalMs,
		callbackKey{kind: KindCheckpoint, name: completionCheckpointName})
	if c.disposed || c.elapsedExact() < reached {
		return
	}

	c.pause(false)
	if c.disposed {
		return
	}

	c.elapsedMs = c.totalMs

	c.logger.Debug("countdown complete", zap.Float64("total_ms", c.totalMs))

	for _, cb := range append([]*completion(nil), c.completions...) {
		if c.disposed {
			return
		}

		if cb.runOnce {
			c.removeCompletion(cb.name)
		}

		cb.fn(c)
	}
}

// TotalMs returns the fixed total.
func (c *Countdown) TotalMs() float64 {
	return c.totalMs
}

// TimeRemainingMs returns the remaining time rounded to whole milliseconds.
func (c *Countdown) TimeRemainingMs() (int64, error) {
	if err := c.checkDisposed("get time remaining"); err != nil {
		return 0, err
	}

	return roundMs(c.remaining()), nil
}

func (c *Countdown) remaining() float64 {
	return c.totalMs - c.elapsedExact()
}

// IsDone reports whether no time remains.
func (c *Countdown) IsDone() (bool, error) {
	if err := c.checkDisposed("check done"); err != nil {
		return false, err
	}

	return c.remaining() <= 0, nil
}

// Unpause resumes the countdown unless it is done.
func (c *Countdown) Unpause() (bool, error) {
	if err := c.checkDisposed("unpause"); err != nil {
		return false, err
	}

	if c.remaining() <= 0 {
		return false, nil
	}

	return c.unpause(EventUnpause, false), nil
}

// Start is Unpause, recorded as a start event.
func (c *Countdown) Start() (bool, error) {
	if err := c.checkDisposed("start"); err != nil {
		return false, err
	}

	if c.remaining() <= 0 {
		return false, nil
	}

	return c.unpause(EventStart, false), nil
}

// AddTime gives the countdown ms more time remaining. Negative values take
// time away and may complete it.
func (c *Countdown) AddTime(ms float64, suppressCallbacks bool) error {
	return c.Engine.AddTime(-ms, suppressCallbacks)
}

// SetTimeRemaining sets the remaining time to ms.
func (c *Countdown) SetTimeRemaining(ms float64, suppressCallbacks bool) error {
	return c.Engine.SetTime(c.totalMs-ms, suppressCallbacks)
}

// OnComplete registers fn to run when the countdown reaches zero. With
// runOnce it is dropped after its first run. An empty name is generated.
func (c *Countdown) OnComplete(
	name string,
	fn func(c *Countdown),
	runOnce bool,
) (string, error) {
	if err := c.checkDisposed("register completion callback"); err != nil {
		return "", err
	}

	if fn == nil {
		return "", fmt.Errorf("%w: completion callback %q has no action",
			ErrInvalidConfiguration, name)
	}

	if name == "" {
		for name == "" || c.hasCompletion(name) {
			name = c.names.Generate()
		}
	} else if c.hasCompletion(name) {
		return "", fmt.Errorf("%w: completion callback %q already registered",
			ErrNameConflict, name)
	}

	c.completions = append(c.completions, &completion{
		name:    name,
		fn:      fn,
		runOnce: runOnce,
	})

	return name, nil
}

// RemoveCompletionCallbacks drops completion callbacks by name.
func (c *Countdown) RemoveCompletionCallbacks(names ...string) error {
	if err := c.checkDisposed("remove completion callbacks"); err != nil {
		return err
	}

	for _, name := range names {
		c.removeCompletion(name)
	}

	return nil
}

func (c *Countdown) hasCompletion(name string) bool {
	for _, cb := range c.completions {
		if cb.name == name {
			return true
		}
	}

	return false
}

func (c *Countdown) removeCompletion(name string) {
	for i, cb := range c.completions {
		if cb.name == name {
			c.completions = append(c.completions[:i], c.completions[i+1:]...)
			return
		}
	}
}

// CountdownState is a countdown snapshot.
type CountdownState struct {
	State

	TotalMs     int64 `json:"total_ms"`
	RemainingMs int64 `json:"remaining_ms"`
	Done        bool  `json:"done"`
}

// CountdownState returns a snapshot including the remaining time.
func (c *Countdown) CountdownState() (CountdownState, error) {
	if err := c.checkDisposed("get state"); err != nil {
		return CountdownState{}, err
	}

	remaining := c.remaining()

	return CountdownState{
		State:       c.state(),
		TotalMs:     roundMs(c.totalMs),
		RemainingMs: roundMs(remaining),
		Done:        remaining <= 0,
	}, nil
}
