package timing

import (
	"container/heap"
	"sync"
	"time"

	"github.com/sarchlab/vclock/shim"
)

type registrationKind int

const (
	kindOnce registrationKind = iota
	kindRepeating
	kindFrame
)

func (k registrationKind) String() string {
	switch k {
	case kindOnce:
		return "once"
	case kindRepeating:
		return "repeating"
	case kindFrame:
		return "frame"
	default:
		return "unknown"
	}
}

// futureEvent is one pending host registration firing.
type futureEvent struct {
	at       time.Duration
	seq      uint64
	handle   shim.Handle
	kind     registrationKind
	interval time.Duration
	fn       func()
}

type futureEventQueue struct {
	sync.Mutex
	events futureEventHeap
}

func newFutureEventQueue() *futureEventQueue {
	q := &futureEventQueue{}
	q.events = make([]*futureEvent, 0)
	heap.Init(&q.events)
	return q
}

func (q *futureEventQueue) Push(evt *futureEvent) {
	q.Lock()
	heap.Push(&q.events, evt)
	q.Unlock()
}

func (q *futureEventQueue) Pop() *futureEvent {
	q.Lock()
	defer q.Unlock()
	if q.events.Len() == 0 {
		return nil
	}
	return heap.Pop(&q.events).(*futureEvent)
}

func (q *futureEventQueue) Len() int {
	q.Lock()
	defer q.Unlock()
	return q.events.Len()
}

func (q *futureEventQueue) Peek() *futureEvent {
	q.Lock()
	defer q.Unlock()
	if q.events.Len() == 0 {
		return nil
	}
	return q.events[0]
}

type futureEventHeap []*futureEvent

func (h futureEventHeap) Len() int { return len(h) }

// Less orders by time, then by scheduling order so that registrations due at
// the same instant fire first-in first-out.
func (h futureEventHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}

func (h futureEventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *futureEventHeap) Push(x any) {
	evt := x.(*futureEvent)
	*h = append(*h, evt)
}

func (h *futureEventHeap) Pop() any {
	old := *h
	n := len(old)
	evt := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return evt
}
