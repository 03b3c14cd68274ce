package datarecording

import (
	"encoding/json"

	"github.com/sarchlab/vclock/clock"
	"github.com/sarchlab/vclock/hooking"
)

// Table names used by HistoryRecorder.
const (
	EventTable     = "clock_event"
	ExecutionTable = "callback_execution"
)

type eventEntry struct {
	ClockID   string
	Seq       int64
	TimeNs    int64
	ElapsedMs int64
	Type      string
	Data      string
}

type executionEntry struct {
	ClockID   string
	Seq       int64
	Name      string
	Kind      string
	EventType string
	ElapsedMs int64
}

type identified interface {
	ID() string
}

// HistoryRecorder is a hook that writes every recorded clock event and every
// executed callback into a DataRecorder. Attach it with clock.Builder.WithHook
// so that the create event is captured too.
type HistoryRecorder struct {
	recorder DataRecorder
	seq      map[string]int64
}

// NewHistoryRecorder creates the history tables on recorder.
func NewHistoryRecorder(recorder DataRecorder) *HistoryRecorder {
	recorder.CreateTable(EventTable, eventEntry{})
	recorder.CreateTable(ExecutionTable, executionEntry{})

	return &HistoryRecorder{
		recorder: recorder,
		seq:      make(map[string]int64),
	}
}

// Func records the hook item.
func (r *HistoryRecorder) Func(ctx hooking.HookCtx) {
	clockID := ""
	if d, ok := ctx.Domain.(identified); ok {
		clockID = d.ID()
	}

	switch ctx.Pos {
	case clock.HookPosEventRecorded:
		evt, ok := ctx.Item.(clock.Event)
		if !ok {
			return
		}

		r.recorder.InsertData(EventTable, eventEntry{
			ClockID:   clockID,
			Seq:       r.next(clockID),
			TimeNs:    evt.Time.UnixNano(),
			ElapsedMs: evt.ElapsedMs,
			Type:      string(evt.Type),
			Data:      encodeData(evt.Data),
		})
	case clock.HookPosAfterCallback:
		exec, ok := ctx.Item.(clock.Execution)
		if !ok {
			return
		}

		r.recorder.InsertData(ExecutionTable, executionEntry{
			ClockID:   exec.ClockID,
			Seq:       r.next(exec.ClockID + "/exec"),
			Name:      exec.Name,
			Kind:      string(exec.Kind),
			EventType: string(exec.EventType),
			ElapsedMs: exec.ElapsedMs,
		})
	}
}

func (r *HistoryRecorder) next(key string) int64 {
	r.seq[key]++
	return r.seq[key]
}

func encodeData(data any) string {
	if data == nil {
		return ""
	}

	b, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}

	return string(b)
}

func decodeData(s string) any {
	if s == "" {
		return nil
	}

	var data any
	if err := json.Unmarshal([]byte(s), &data); err != nil {
		return s
	}

	return data
}
