package clock

import (
	"math"
	"time"

	"github.com/sarchlab/vclock/shim"
)

// EventType labels a history entry.
type EventType string

// Event types recorded in a clock's history.
const (
	EventCreate     EventType = "create"
	EventPause      EventType = "pause"
	EventUnpause    EventType = "unpause"
	EventStart      EventType = "start"
	EventCheckpoint EventType = "checkpoint"
	EventTick       EventType = "tick"
	EventSetTime    EventType = "setTime"
	EventAddTime    EventType = "addTime"
	EventReset      EventType = "reset"
	EventSetSpeed   EventType = "setSpeed"
)

// Event is one immutable history entry.
type Event struct {
	Time      time.Time `json:"time"`
	ElapsedMs int64     `json:"elapsed_ms"`
	Type      EventType `json:"type"`

	// Data is nil, a string, a float64 or a map[string]any.
	Data any `json:"data,omitempty"`
}

func (e Event) clone() Event {
	e.Data = cloneData(e.Data)
	return e
}

func cloneData(data any) any {
	switch d := data.(type) {
	case map[string]any:
		m := make(map[string]any, len(d))
		for k, v := range d {
			m[k] = cloneData(v)
		}
		return m
	case []any:
		s := make([]any, len(d))
		for i, v := range d {
			s[i] = cloneData(v)
		}
		return s
	default:
		return d
	}
}

func cloneHistory(history []Event) []Event {
	out := make([]Event, len(history))
	for i, e := range history {
		out[i] = e.clone()
	}

	return out
}

// ReplayElapsed reconstructs the elapsed milliseconds a clock showed at wall
// time at, using only its recorded history.
func ReplayElapsed(history []Event, at time.Time) int64 {
	var (
		elapsed float64
		running bool
		since   time.Time
		speed   = 1.0
	)

	for _, e := range history {
		if e.Time.After(at) {
			break
		}

		switch e.Type {
		case EventCreate:
			if m, ok := e.Data.(map[string]any); ok {
				if s, ok := m["speed"].(float64); ok {
					speed = s
				}
			}
			elapsed = float64(e.ElapsedMs)
		case EventUnpause, EventStart:
			elapsed = float64(e.ElapsedMs)
			running = true
			since = e.Time
		case EventPause:
			elapsed = float64(e.ElapsedMs)
			running = false
		case EventSetSpeed:
			if s, ok := e.Data.(float64); ok {
				speed = s
			}
			elapsed = float64(e.ElapsedMs)
			since = e.Time
		case EventSetTime, EventAddTime, EventReset:
			elapsed = float64(e.ElapsedMs)
			since = e.Time
		}
	}

	if running {
		elapsed += shim.DurationToMs(at.Sub(since)) * speed
	}

	return roundMs(elapsed)
}

// roundMs rounds ms to the nearest whole millisecond, with halves going up
// so that negative times round the same way as positive ones.
func roundMs(ms float64) int64 {
	return int64(math.Floor(ms + 0.5))
}
