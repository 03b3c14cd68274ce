package clock

import "github.com/sarchlab/vclock/hooking"

// HookPosEventRecorded is raised after an event is appended to the history.
// The hook item is the Event.
var HookPosEventRecorded = &hooking.HookPos{Name: "EventRecorded"}

// HookPosBeforeCallback is raised right before a callback action runs. The
// hook item is an Execution.
var HookPosBeforeCallback = &hooking.HookPos{Name: "BeforeCallback"}

// HookPosAfterCallback is raised right after a callback action returns.
var HookPosAfterCallback = &hooking.HookPos{Name: "AfterCallback"}

// Execution describes one callback invocation.
type Execution struct {
	ClockID   string
	Name      string
	Kind      Kind
	EventType EventType
	ElapsedMs int64
}
