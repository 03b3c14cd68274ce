package clock

import "math"

type stepKind int

const (
	stepSkip stepKind = iota
	stepOnce
	stepRepeating
	stepFrameLoop
)

// planInput is everything the planner may look at.
type planInput struct {
	kind                     Kind
	timeMs                   float64
	requireFrameSync         bool
	disableDriftCompensation bool
	lastExecutionMs          float64
	registeredAt             float64
}

// step is the host registration a callback needs right now. Delays and
// intervals are in real (host) milliseconds.
type step struct {
	kind       stepKind
	delayMs    float64
	intervalMs float64
	eventType  EventType

	// thenRepeat switches a one-shot tick into steady repeating mode once it
	// fires.
	thenRepeat bool
}

// plan derives the host registration for a callback from the current elapsed
// time and speed. It has no side effects and is re-run on every state change.
func plan(in planInput, elapsedMs, speed float64) step {
	switch in.kind {
	case KindCheckpoint, KindCheckpointOnce:
		return planCheckpoint(in, elapsedMs, speed)
	case KindTickReset:
		return planTickReset(in, speed)
	case KindTick:
		return planTick(in, elapsedMs, speed)
	default:
		return step{kind: stepSkip}
	}
}

func planCheckpoint(in planInput, elapsedMs, speed float64) step {
	delay := (in.timeMs - elapsedMs) / speed
	if delay <= 0 {
		return step{kind: stepSkip}
	}

	return step{kind: stepOnce, delayMs: delay, eventType: EventCheckpoint}
}

func planTickReset(in planInput, speed float64) step {
	if in.timeMs == 0 && in.requireFrameSync {
		return step{kind: stepFrameLoop}
	}

	return step{kind: stepRepeating, intervalMs: in.timeMs / speed}
}

func planTick(in planInput, elapsedMs, speed float64) step {
	interval := in.timeMs
	if interval == 0 && in.requireFrameSync {
		return step{kind: stepFrameLoop}
	}

	steady := step{kind: stepRepeating, intervalMs: interval / speed}
	if in.disableDriftCompensation {
		return steady
	}

	n := math.Floor((elapsedMs - in.registeredAt) / interval)
	ideal := in.registeredAt + (n+1)*interval
	target := in.lastExecutionMs + interval
	if target > ideal {
		target = ideal
	}

	if target <= elapsedMs || target >= elapsedMs+interval {
		return steady
	}

	return step{
		kind:       stepOnce,
		delayMs:    (target - elapsedMs) / speed,
		intervalMs: interval / speed,
		eventType:  EventTick,
		thenRepeat: true,
	}
}
