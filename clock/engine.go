package clock

import (
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sarchlab/vclock/hooking"
	"github.com/sarchlab/vclock/idgen"
	"github.com/sarchlab/vclock/shim"
)

type tier int

const (
	tierOnce tier = iota + 1
	tierRepeating
	tierFrame
)

func (t tier) String() string {
	switch t {
	case tierOnce:
		return "once"
	case tierRepeating:
		return "repeating"
	case tierFrame:
		return "frame"
	default:
		return ""
	}
}

// registration is the single live host registration of a callback.
type registration struct {
	tier   tier
	handle shim.Handle
	token  uint64
}

// deferredFrame is a frame-synced invocation waiting for its frame.
type deferredFrame struct {
	key    callbackKey
	handle shim.Handle
}

// Engine is the clock shared by Timer and Countdown. It keeps the elapsed
// time, the callback registry, the history, and the host registrations that
// make callbacks fire.
//
// An Engine is not safe for concurrent use. Every call, including the host
// callbacks it registers, must happen on one goroutine; shim.Loop provides
// such a goroutine for real time.
type Engine[T any] struct {
	*hooking.HookableBase

	id     string
	owner  T
	logger *zap.Logger

	once      shim.OnceScheduler
	repeating shim.RepeatingScheduler
	frame     shim.FrameScheduler
	clk       shim.Clock

	elapsedMs  float64
	running    bool
	unpausedAt time.Time
	pausedAt   time.Time
	speed      float64
	disposed   bool

	callbacks map[callbackKey]*record[T]
	order     []*record[T]
	nameGens  map[Kind]idgen.Generator

	live         map[callbackKey]registration
	deferred     map[uint64]deferredFrame
	nextToken    uint64
	nextDeferred uint64

	history []Event
}

func newEngine[T any](cfg config, createData map[string]any) *Engine[T] {
	e := &Engine[T]{
		HookableBase: hooking.NewHookableBase(),
		id:           cfg.ids.Generate(),
		logger:       cfg.logger,
		once:         cfg.once,
		repeating:    cfg.repeating,
		frame:        cfg.frame,
		clk:          cfg.clock,
		speed:        cfg.speed,
		callbacks:    make(map[callbackKey]*record[T]),
		nameGens:     make(map[Kind]idgen.Generator),
		live:         make(map[callbackKey]registration),
		deferred:     make(map[uint64]deferredFrame),
	}

	for _, k := range kinds {
		e.nameGens[k] = idgen.NewSequentialWithPrefix(string(k))
	}

	for _, h := range cfg.hooks {
		e.AcceptHook(h)
	}

	e.pausedAt = e.clk.Now()
	e.logger = e.logger.With(zap.String("clock", e.id))

	data := map[string]any{"id": e.id, "speed": e.speed}
	for k, v := range createData {
		data[k] = v
	}
	e.record(EventCreate, data)

	return e
}

// ID returns the identifier assigned at construction.
func (e *Engine[T]) ID() string {
	return e.id
}

func (e *Engine[T]) checkDisposed(op string) error {
	if e.disposed {
		return fmt.Errorf("%s on clock %s: %w", op, e.id, ErrDisposed)
	}

	return nil
}

func (e *Engine[T]) elapsedExact() float64 {
	if !e.running {
		return e.elapsedMs
	}

	delta := shim.DurationToMs(e.clk.Now().Sub(e.unpausedAt))
	return e.elapsedMs + delta*e.speed
}

// foldRunningTime moves the time accrued since unpausing into elapsedMs.
func (e *Engine[T]) foldRunningTime() time.Time {
	now := e.clk.Now()
	if e.running {
		e.elapsedMs += shim.DurationToMs(now.Sub(e.unpausedAt)) * e.speed
		e.unpausedAt = now
	}

	return now
}

// ElapsedMs returns the elapsed time rounded to whole milliseconds, with
// halves rounding up.
func (e *Engine[T]) ElapsedMs() (int64, error) {
	if err := e.checkDisposed("get elapsed time"); err != nil {
		return 0, err
	}

	return roundMs(e.elapsedExact()), nil
}

// IsPaused reports whether the clock is paused.
func (e *Engine[T]) IsPaused() (bool, error) {
	if err := e.checkDisposed("check paused"); err != nil {
		return false, err
	}

	return !e.running, nil
}

// SpeedMultiplier returns the current speed multiplier.
func (e *Engine[T]) SpeedMultiplier() (float64, error) {
	if err := e.checkDisposed("get speed"); err != nil {
		return 0, err
	}

	return e.speed, nil
}

// Pause stops the clock. It reports whether the clock was running.
func (e *Engine[T]) Pause() (bool, error) {
	if err := e.checkDisposed("pause"); err != nil {
		return false, err
	}

	return e.pause(false), nil
}

func (e *Engine[T]) pause(suppressCallbacks bool) bool {
	if !e.running {
		return false
	}

	now := e.foldRunningTime()
	e.running = false
	e.pausedAt = now

	e.record(EventPause, nil)
	e.cancelAll()

	if !suppressCallbacks {
		e.fireOnUpdate()
	}

	return true
}

// Unpause resumes the clock. It reports whether the clock was paused.
func (e *Engine[T]) Unpause() (bool, error) {
	if err := e.checkDisposed("unpause"); err != nil {
		return false, err
	}

	return e.unpause(EventUnpause, false), nil
}

// Start is Unpause, recorded as a start event.
func (e *Engine[T]) Start() (bool, error) {
	if err := e.checkDisposed("start"); err != nil {
		return false, err
	}

	return e.unpause(EventStart, false), nil
}

func (e *Engine[T]) unpause(eventType EventType, suppressCallbacks bool) bool {
	if e.running {
		return false
	}

	e.running = true
	e.unpausedAt = e.clk.Now()

	e.record(eventType, nil)
	e.issueAll(false)

	if !suppressCallbacks {
		e.fireOnUpdate()
	}

	return true
}

// AddTime moves elapsed time by ms. Checkpoints crossed going forward fire
// in target order unless suppressCallbacks is set.
func (e *Engine[T]) AddTime(ms float64, suppressCallbacks bool) error {
	if err := e.checkDisposed("add time"); err != nil {
		return err
	}

	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return fmt.Errorf("%w: cannot add %v ms", ErrInvalidConfiguration, ms)
	}

	e.adjust(EventAddTime, ms, suppressCallbacks, func(old float64) float64 {
		return old + ms
	})

	return nil
}

// SetTime sets elapsed time to ms. Checkpoints crossed going forward fire in
// target order unless suppressCallbacks is set.
func (e *Engine[T]) SetTime(ms float64, suppressCallbacks bool) error {
	if err := e.checkDisposed("set time"); err != nil {
		return err
	}

	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return fmt.Errorf("%w: cannot set time to %v ms",
			ErrInvalidConfiguration, ms)
	}

	e.adjust(EventSetTime, ms, suppressCallbacks, func(float64) float64 {
		return ms
	})

	return nil
}

// adjust applies a manual time change. Repeating registrations are left in
// place; once and frame registrations are re-derived afterwards.
func (e *Engine[T]) adjust(
	eventType EventType,
	data float64,
	suppressCallbacks bool,
	apply func(old float64) float64,
) {
	e.foldRunningTime()
	e.cancelTiers(tierOnce, tierFrame)

	old := e.elapsedMs
	e.elapsedMs = apply(old)
	e.record(eventType, data)

	if !suppressCallbacks && e.elapsedMs > old {
		e.fireCrossed(old, e.elapsedMs)
	}

	if e.disposed {
		return
	}

	e.fireOnUpdate()

	if e.disposed || !e.running {
		return
	}

	e.issueAll(true)
}

// fireCrossed runs every checkpoint whose target lies in (from, to], in
// ascending target order.
func (e *Engine[T]) fireCrossed(from, to float64) {
	crossed := make([]*record[T], 0)
	for _, rec := range e.order {
		if rec.Kind.IsCheckpoint() && rec.TimeMs > from && rec.TimeMs <= to {
			crossed = append(crossed, rec)
		}
	}

	sort.SliceStable(crossed, func(i, j int) bool {
		return crossed[i].TimeMs < crossed[j].TimeMs
	})

	for _, rec := range crossed {
		if e.disposed {
			return
		}

		if e.callbacks[rec.key] != rec {
			continue
		}

		if rec.Kind == KindCheckpointOnce {
			e.removeRecord(rec)
		}

		e.execute(rec, EventCheckpoint)
	}
}

// fireDueCheckpoints runs every checkpoint other than except that still
// waits on a once registration and targets at most limit, in ascending
// target order.
func (e *Engine[T]) fireDueCheckpoints(limit float64, except callbackKey) {
	due := make([]*record[T], 0)
	for _, rec := range e.order {
		if rec.key == except || !rec.Kind.IsCheckpoint() || rec.TimeMs > limit {
			continue
		}

		if reg, ok := e.live[rec.key]; ok && reg.tier == tierOnce {
			due = append(due, rec)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].TimeMs < due[j].TimeMs
	})

	for _, rec := range due {
		if e.disposed {
			return
		}

		if e.callbacks[rec.key] != rec || e.live[rec.key].tier != tierOnce {
			continue
		}
		e.cancelRegistration(rec.key)

		if rec.Kind == KindCheckpointOnce {
			e.removeRecord(rec)
		}

		e.execute(rec, EventCheckpoint)
	}
}

// SetSpeedMultiplier changes how fast elapsed time accrues relative to real
// time. Pending registrations are re-issued at the new speed.
func (e *Engine[T]) SetSpeedMultiplier(speed float64) error {
	if err := e.checkDisposed("set speed"); err != nil {
		return err
	}

	if err := validateSpeed(speed); err != nil {
		return err
	}

	if speed == e.speed {
		return nil
	}

	if !e.running {
		e.speed = speed
		e.record(EventSetSpeed, speed)
		return nil
	}

	e.pause(true)
	e.speed = speed
	e.record(EventSetSpeed, speed)
	e.unpause(EventUnpause, true)
	e.fireOnUpdate()

	return nil
}

func validateSpeed(speed float64) error {
	if math.IsNaN(speed) || math.IsInf(speed, 0) || speed <= 0 {
		return fmt.Errorf("%w: speed multiplier must be positive, got %v",
			ErrInvalidConfiguration, speed)
	}

	return nil
}

// Reset sets elapsed time back to zero and re-anchors every tick. The clock
// keeps running if it was running.
func (e *Engine[T]) Reset(suppressCallbacks bool) error {
	if err := e.checkDisposed("reset"); err != nil {
		return err
	}

	e.foldRunningTime()
	e.cancelAll()

	e.elapsedMs = 0
	for _, rec := range e.order {
		rec.lastExecutionMs = 0
		rec.registeredAt = 0
	}
	e.record(EventReset, nil)

	if !suppressCallbacks {
		e.fireOnUpdate()
	}

	if e.disposed || !e.running {
		return nil
	}

	e.issueAll(false)

	return nil
}

// RegisterCallbacks adds callbacks. The batch is validated as a whole;
// nothing is registered if any entry is invalid or its name is taken within
// its kind.
func (e *Engine[T]) RegisterCallbacks(cbs ...Callback[T]) error {
	if err := e.checkDisposed("register callbacks"); err != nil {
		return err
	}

	taken := make(map[callbackKey]bool)
	for _, cb := range cbs {
		if err := cb.validate(); err != nil {
			return err
		}

		if cb.Name == "" {
			continue
		}

		key := callbackKey{kind: cb.Kind, name: cb.Name}
		if _, exists := e.callbacks[key]; exists || taken[key] {
			return fmt.Errorf("%w: %s callback %q already registered",
				ErrNameConflict, cb.Kind, cb.Name)
		}
		taken[key] = true
	}

	elapsed := e.elapsedExact()
	added := make([]*record[T], 0, len(cbs))
	for _, cb := range cbs {
		if cb.Name == "" {
			cb.Name = e.generateName(cb.Kind, taken)
		}

		rec := &record[T]{
			Callback:        cb,
			key:             callbackKey{kind: cb.Kind, name: cb.Name},
			lastExecutionMs: elapsed,
			registeredAt:    elapsed,
		}
		taken[rec.key] = true

		e.callbacks[rec.key] = rec
		e.order = append(e.order, rec)
		added = append(added, rec)

		e.logger.Debug("callback registered",
			zap.String("name", rec.Name),
			zap.String("kind", string(rec.Kind)),
			zap.Float64("time_ms", rec.TimeMs))
	}

	if !e.running {
		return nil
	}

	for _, rec := range added {
		e.issue(rec)
	}

	return nil
}

func (e *Engine[T]) generateName(kind Kind, taken map[callbackKey]bool) string {
	for {
		name := e.nameGens[kind].Generate()
		key := callbackKey{kind: kind, name: name}

		if _, exists := e.callbacks[key]; !exists && !taken[key] {
			return name
		}
	}
}

// RemoveCallbacks removes every callback with one of the given names,
// whatever its kind, and cancels its pending host registrations.
func (e *Engine[T]) RemoveCallbacks(names ...string) error {
	if err := e.checkDisposed("remove callbacks"); err != nil {
		return err
	}

	for _, name := range names {
		for _, k := range kinds {
			if rec, ok := e.callbacks[callbackKey{kind: k, name: name}]; ok {
				e.removeRecord(rec)
			}
		}
	}

	return nil
}

// RemoveAllCallbacks removes every callback not named with ProtectedPrefix.
func (e *Engine[T]) RemoveAllCallbacks() error {
	if err := e.checkDisposed("remove all callbacks"); err != nil {
		return err
	}

	for _, rec := range append([]*record[T](nil), e.order...) {
		if !rec.key.protected() {
			e.removeRecord(rec)
		}
	}

	return nil
}

func (e *Engine[T]) removeRecord(rec *record[T]) {
	e.cancelRegistration(rec.key)
	e.cancelDeferred(rec.key)

	delete(e.callbacks, rec.key)
	for i, r := range e.order {
		if r == rec {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// Callbacks lists the registered callbacks ordered by kind and name.
func (e *Engine[T]) Callbacks() ([]CallbackInfo, error) {
	if err := e.checkDisposed("list callbacks"); err != nil {
		return nil, err
	}

	infos := make([]CallbackInfo, 0, len(e.order))
	for _, rec := range e.order {
		infos = append(infos, CallbackInfo{
			Name:                     rec.Name,
			Kind:                     rec.Kind,
			TimeMs:                   rec.TimeMs,
			RequireFrameSync:         rec.RequireFrameSync,
			ExecuteOnUpdate:          rec.ExecuteOnUpdate,
			LogExecutions:            rec.LogExecutions,
			DisableDriftCompensation: rec.DisableDriftCompensation,
			LastExecutionMs:          rec.lastExecutionMs,
			RegisteredAtMs:           rec.registeredAt,
			Scheduled:                e.live[rec.key].tier.String(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Kind != infos[j].Kind {
			return infos[i].Kind < infos[j].Kind
		}
		return infos[i].Name < infos[j].Name
	})

	return infos, nil
}

// Dispose cancels every host registration and makes the clock unusable.
// Calling it again, including from inside a callback, does nothing.
func (e *Engine[T]) Dispose() {
	if e.disposed {
		return
	}

	e.cancelAll()
	e.disposed = true

	e.logger.Debug("clock disposed")
}

// State is a snapshot of a clock.
type State struct {
	ID              string  `json:"id"`
	ElapsedMs       int64   `json:"elapsed_ms"`
	IsPaused        bool    `json:"is_paused"`
	SpeedMultiplier float64 `json:"speed_multiplier"`
	History         []Event `json:"history"`
}

// State returns a snapshot whose history is independent of the clock.
func (e *Engine[T]) State() (State, error) {
	if err := e.checkDisposed("get state"); err != nil {
		return State{}, err
	}

	return e.state(), nil
}

func (e *Engine[T]) state() State {
	return State{
		ID:              e.id,
		ElapsedMs:       roundMs(e.elapsedExact()),
		IsPaused:        !e.running,
		SpeedMultiplier: e.speed,
		History:         cloneHistory(e.history),
	}
}

// History returns a copy of the recorded events.
func (e *Engine[T]) History() ([]Event, error) {
	if err := e.checkDisposed("get history"); err != nil {
		return nil, err
	}

	return cloneHistory(e.history), nil
}

func (e *Engine[T]) record(eventType EventType, data any) {
	e.recordAt(eventType, e.elapsedExact(), data)
}

func (e *Engine[T]) recordAt(eventType EventType, elapsed float64, data any) {
	evt := Event{
		Time:      e.clk.WallClock(),
		ElapsedMs: roundMs(elapsed),
		Type:      eventType,
		Data:      data,
	}
	e.history = append(e.history, evt)

	e.InvokeHook(hooking.HookCtx{
		Domain: e,
		Pos:    HookPosEventRecorded,
		Item:   evt.clone(),
	})
}
