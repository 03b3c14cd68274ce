// Package timing provides a deterministic virtual host for clocks.
//
// Host keeps every once, repeating and frame registration in a single
// time-ordered queue. Virtual time only moves when the caller advances it, and
// registrations fire one after another in time order, exactly like a serial
// discrete-event engine. Tests use it to replace real timers.
package timing

import (
	"fmt"
	"time"

	"github.com/sarchlab/vclock/hooking"
	"github.com/sarchlab/vclock/shim"
)

// HookPosBeforeFire is raised right before a registration runs.
var HookPosBeforeFire = &hooking.HookPos{Name: "BeforeFire"}

// HookPosAfterFire is raised right after a registration runs.
var HookPosAfterFire = &hooking.HookPos{Name: "AfterFire"}

// DefaultFrameInterval is the frame period of a Host built without options.
const DefaultFrameInterval = 16 * time.Millisecond

// Firing describes a registration as seen by hooks.
type Firing struct {
	Handle shim.Handle
	Kind   string
	At     time.Duration
}

// Host is a virtual shim.Host. It is not safe for concurrent use; drive it
// from the test goroutine.
type Host struct {
	*hooking.HookableBase

	epoch         time.Time
	wallEpoch     time.Time
	now           time.Duration
	frameInterval time.Duration

	queue      *futureEventQueue
	live       map[shim.Handle]*futureEvent
	nextHandle shim.Handle
	nextSeq    uint64
	fired      uint64
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithFrameInterval sets the virtual frame period.
func WithFrameInterval(d time.Duration) HostOption {
	return func(h *Host) {
		if d <= 0 {
			panic("timing: frame interval must be positive")
		}
		h.frameInterval = d
	}
}

// WithWallEpoch sets the wall-clock time reported at virtual time zero.
func WithWallEpoch(t time.Time) HostOption {
	return func(h *Host) {
		h.wallEpoch = t
	}
}

// NewHost creates a Host at virtual time zero.
func NewHost(opts ...HostOption) *Host {
	h := &Host{
		HookableBase:  hooking.NewHookableBase(),
		epoch:         time.Unix(1000000000, 0),
		wallEpoch:     time.Unix(1000000000, 0),
		frameInterval: DefaultFrameInterval,
		queue:         newFutureEventQueue(),
		live:          make(map[shim.Handle]*futureEvent),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Elapsed returns how much virtual time has passed since the host was created.
func (h *Host) Elapsed() time.Duration {
	return h.now
}

// Now returns the virtual monotonic time.
func (h *Host) Now() time.Time {
	return h.epoch.Add(h.now)
}

// WallClock returns the virtual wall-clock time.
func (h *Host) WallClock() time.Time {
	return h.wallEpoch.Add(h.now)
}

// FrameInterval returns the virtual frame period.
func (h *Host) FrameInterval() time.Duration {
	return h.frameInterval
}

// Pending returns the number of live registrations.
func (h *Host) Pending() int {
	return len(h.live)
}

// Fired returns how many registrations have run so far.
func (h *Host) Fired() uint64 {
	return h.fired
}

func (h *Host) push(
	kind registrationKind,
	handle shim.Handle,
	at, interval time.Duration,
	fn func(),
) {
	if at < h.now {
		panic(fmt.Sprintf(
			"timing: cannot schedule %s registration in the past, @ %s, now %s",
			kind, at, h.now,
		))
	}

	h.nextSeq++
	evt := &futureEvent{
		at:       at,
		seq:      h.nextSeq,
		handle:   handle,
		kind:     kind,
		interval: interval,
		fn:       fn,
	}
	h.live[handle] = evt
	h.queue.Push(evt)
}

func (h *Host) newHandle() shim.Handle {
	h.nextHandle++
	return h.nextHandle
}

// ScheduleOnce runs fn once delay from now. Non-positive delays fire on the
// next Advance.
func (h *Host) ScheduleOnce(fn func(), delay time.Duration) shim.Handle {
	if delay < 0 {
		delay = 0
	}

	handle := h.newHandle()
	h.push(kindOnce, handle, h.now+delay, 0, fn)

	return handle
}

// CancelOnce cancels a once registration.
func (h *Host) CancelOnce(handle shim.Handle) {
	h.cancel(handle, kindOnce)
}

// ScheduleRepeating runs fn every interval.
func (h *Host) ScheduleRepeating(fn func(), interval time.Duration) shim.Handle {
	if interval <= 0 {
		panic("timing: repeating interval must be positive")
	}

	handle := h.newHandle()
	h.push(kindRepeating, handle, h.now+interval, interval, fn)

	return handle
}

// CancelRepeating cancels a repeating registration.
func (h *Host) CancelRepeating(handle shim.Handle) {
	h.cancel(handle, kindRepeating)
}

// ScheduleFrame runs fn at the next frame boundary strictly after now.
func (h *Host) ScheduleFrame(fn func()) shim.Handle {
	next := (h.now/h.frameInterval + 1) * h.frameInterval

	handle := h.newHandle()
	h.push(kindFrame, handle, next, 0, fn)

	return handle
}

// CancelFrame cancels a frame registration.
func (h *Host) CancelFrame(handle shim.Handle) {
	h.cancel(handle, kindFrame)
}

func (h *Host) cancel(handle shim.Handle, kind registrationKind) {
	evt, ok := h.live[handle]
	if !ok || evt.kind != kind {
		return
	}

	delete(h.live, handle)
}

// Advance moves virtual time forward by d, firing everything that falls due
// on the way in time order.
func (h *Host) Advance(d time.Duration) {
	if d < 0 {
		panic("timing: cannot advance by a negative duration")
	}

	h.AdvanceTo(h.now + d)
}

// AdvanceTo moves virtual time forward to t.
func (h *Host) AdvanceTo(t time.Duration) {
	if t < h.now {
		panic(fmt.Sprintf("timing: cannot move back from %s to %s", h.now, t))
	}

	for {
		evt := h.nextDue(t)
		if evt == nil {
			break
		}

		h.now = evt.at
		h.fire(evt)
	}

	h.now = t
}

// RunFrames advances to the n-th upcoming frame boundary.
func (h *Host) RunFrames(n int) {
	target := (h.now/h.frameInterval + time.Duration(n)) * h.frameInterval
	h.AdvanceTo(target)
}

func (h *Host) nextDue(limit time.Duration) *futureEvent {
	for {
		evt := h.queue.Peek()
		if evt == nil || evt.at > limit {
			return nil
		}

		h.queue.Pop()

		if h.live[evt.handle] == evt {
			return evt
		}
	}
}

func (h *Host) fire(evt *futureEvent) {
	if evt.kind == kindRepeating {
		h.push(kindRepeating, evt.handle, evt.at+evt.interval, evt.interval, evt.fn)
	} else {
		delete(h.live, evt.handle)
	}

	hookCtx := hooking.HookCtx{
		Domain: h,
		Pos:    HookPosBeforeFire,
		Item: Firing{
			Handle: evt.handle,
			Kind:   evt.kind.String(),
			At:     evt.at,
		},
	}
	h.InvokeHook(hookCtx)

	h.fired++
	evt.fn()

	hookCtx.Pos = HookPosAfterFire
	h.InvokeHook(hookCtx)
}

var _ shim.Host = (*Host)(nil)
