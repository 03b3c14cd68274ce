package clock

import (
	"go.uber.org/zap"

	"github.com/sarchlab/vclock/hooking"
	"github.com/sarchlab/vclock/shim"
)

// issueAll re-derives host registrations for every callback. With
// onlyUnscheduled set, callbacks that still hold a registration are skipped.
func (e *Engine[T]) issueAll(onlyUnscheduled bool) {
	for _, rec := range append([]*record[T](nil), e.order...) {
		if onlyUnscheduled {
			if _, ok := e.live[rec.key]; ok {
				continue
			}
		}

		e.issue(rec)
	}
}

func (e *Engine[T]) issue(rec *record[T]) {
	e.cancelRegistration(rec.key)

	st := plan(rec.planInput(), e.elapsedExact(), e.speed)
	switch st.kind {
	case stepOnce:
		e.scheduleOnce(rec, st)
	case stepRepeating:
		e.scheduleRepeating(rec, st.intervalMs)
	case stepFrameLoop:
		e.scheduleFrameLoop(rec)
	}
}

func (e *Engine[T]) newToken() uint64 {
	e.nextToken++
	return e.nextToken
}

func (e *Engine[T]) isLive(key callbackKey, token uint64) bool {
	reg, ok := e.live[key]
	return ok && reg.token == token
}

func (e *Engine[T]) scheduleOnce(rec *record[T], st step) {
	token := e.newToken()
	h := e.once.ScheduleOnce(func() {
		e.onOnce(rec, token, st)
	}, shim.MsToDuration(st.delayMs))

	e.live[rec.key] = registration{tier: tierOnce, handle: h, token: token}
}

func (e *Engine[T]) onOnce(rec *record[T], token uint64, st step) {
	if e.disposed || !e.isLive(rec.key, token) {
		return
	}
	delete(e.live, rec.key)

	if rec.Kind == KindCheckpointOnce {
		e.removeRecord(rec)
	}

	if st.thenRepeat {
		rec.lastExecutionMs = e.elapsedExact()
		e.scheduleRepeating(rec, rec.TimeMs/e.speed)
	}

	e.execute(rec, st.eventType)
}

func (e *Engine[T]) scheduleRepeating(rec *record[T], intervalMs float64) {
	token := e.newToken()
	h := e.repeating.ScheduleRepeating(func() {
		e.onRepeat(rec, token)
	}, shim.MsToDuration(intervalMs))

	e.live[rec.key] = registration{tier: tierRepeating, handle: h, token: token}
}

func (e *Engine[T]) onRepeat(rec *record[T], token uint64) {
	if e.disposed || !e.isLive(rec.key, token) {
		return
	}

	rec.lastExecutionMs = e.elapsedExact()
	e.execute(rec, EventTick)
}

// scheduleFrameLoop drives a zero-interval frame-synced tick straight off
// frame callbacks. Each frame re-requests the next one while the clock runs.
func (e *Engine[T]) scheduleFrameLoop(rec *record[T]) {
	token := e.newToken()
	h := e.frame.ScheduleFrame(func() {
		e.onFrameLoop(rec, token)
	})

	e.live[rec.key] = registration{tier: tierFrame, handle: h, token: token}
}

func (e *Engine[T]) onFrameLoop(rec *record[T], token uint64) {
	if e.disposed || !e.isLive(rec.key, token) {
		return
	}
	delete(e.live, rec.key)

	if !e.running {
		return
	}

	elapsed := e.elapsedExact()
	rec.lastExecutionMs = elapsed
	e.invoke(rec, EventTick, elapsed)

	if e.disposed || !e.running || e.callbacks[rec.key] != rec {
		return
	}

	if _, rescheduled := e.live[rec.key]; !rescheduled {
		e.scheduleFrameLoop(rec)
	}
}

// execute runs a firing, deferring it by one frame when the callback asks
// for frame sync. The recorded elapsed time is taken now either way.
func (e *Engine[T]) execute(rec *record[T], eventType EventType) {
	elapsed := e.elapsedExact()

	if !rec.RequireFrameSync {
		e.invoke(rec, eventType, elapsed)
		return
	}

	e.nextDeferred++
	id := e.nextDeferred
	h := e.frame.ScheduleFrame(func() {
		if _, ok := e.deferred[id]; !ok || e.disposed {
			return
		}
		delete(e.deferred, id)

		e.invoke(rec, eventType, elapsed)
	})

	e.deferred[id] = deferredFrame{key: rec.key, handle: h}
}

func (e *Engine[T]) invoke(rec *record[T], eventType EventType, elapsed float64) {
	e.recordAt(eventType, elapsed, rec.Name)

	exec := Execution{
		ClockID:   e.id,
		Name:      rec.Name,
		Kind:      rec.Kind,
		EventType: eventType,
		ElapsedMs: roundMs(elapsed),
	}

	if rec.LogExecutions {
		e.logger.Info("callback executed",
			zap.String("name", rec.Name),
			zap.String("kind", string(rec.Kind)),
			zap.String("event", string(eventType)),
			zap.Int64("elapsed_ms", exec.ElapsedMs))
	}

	hookCtx := hooking.HookCtx{
		Domain: e,
		Pos:    HookPosBeforeCallback,
		Item:   exec,
	}
	e.InvokeHook(hookCtx)

	rec.Action(e.owner)

	hookCtx.Pos = HookPosAfterCallback
	e.InvokeHook(hookCtx)
}

// fireOnUpdate synchronously runs every callback flagged ExecuteOnUpdate.
func (e *Engine[T]) fireOnUpdate() {
	for _, rec := range append([]*record[T](nil), e.order...) {
		if e.disposed {
			return
		}

		if !rec.ExecuteOnUpdate || e.callbacks[rec.key] != rec {
			continue
		}

		eventType := EventTick
		if rec.Kind.IsCheckpoint() {
			eventType = EventCheckpoint
		}

		e.invoke(rec, eventType, e.elapsedExact())
	}
}

func (e *Engine[T]) cancelAll() {
	for key := range e.live {
		e.cancelRegistration(key)
	}

	for id, d := range e.deferred {
		e.frame.CancelFrame(d.handle)
		delete(e.deferred, id)
	}
}

func (e *Engine[T]) cancelTiers(tiers ...tier) {
	for key, reg := range e.live {
		for _, t := range tiers {
			if reg.tier == t {
				e.cancelRegistration(key)
				break
			}
		}
	}
}

func (e *Engine[T]) cancelRegistration(key callbackKey) {
	reg, ok := e.live[key]
	if !ok {
		return
	}
	delete(e.live, key)

	switch reg.tier {
	case tierOnce:
		e.once.CancelOnce(reg.handle)
	case tierRepeating:
		e.repeating.CancelRepeating(reg.handle)
	case tierFrame:
		e.frame.CancelFrame(reg.handle)
	}
}

func (e *Engine[T]) cancelDeferred(key callbackKey) {
	for id, d := range e.deferred {
		if d.key == key {
			e.frame.CancelFrame(d.handle)
			delete(e.deferred, id)
		}
	}
}
