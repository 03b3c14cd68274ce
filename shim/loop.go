package shim

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrLoopStopped is returned by Do when the loop is no longer running.
var ErrLoopStopped = errors.New("shim: loop stopped")

// DefaultFrameRate is the frame rate used when none is configured.
const DefaultFrameRate = 60

// Loop is the real-time Host. Every scheduled function, whatever primitive it
// came from, runs on the goroutine that called Run, so the clocks built on it
// never see concurrent mutation. Code outside the loop goroutine reaches a
// clock through Do.
type Loop struct {
	frameInterval time.Duration
	logger        *zap.Logger

	tasks   chan func()
	stopped chan struct{}

	lock       sync.Mutex
	nextHandle Handle
	timers     map[Handle]*time.Timer
	tickers    map[Handle]chan struct{}
	frames     map[Handle]func()
	frameOrder []Handle
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithFrameRate sets how many frames per second ScheduleFrame targets.
func WithFrameRate(fps int) LoopOption {
	return func(l *Loop) {
		if fps > 0 {
			l.frameInterval = time.Second / time.Duration(fps)
		}
	}
}

// WithLoopLogger attaches a logger.
func WithLoopLogger(logger *zap.Logger) LoopOption {
	return func(l *Loop) {
		l.logger = logger
	}
}

// NewLoop creates a Loop. Nothing runs until Run is called.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		frameInterval: time.Second / DefaultFrameRate,
		logger:        zap.NewNop(),
		tasks:         make(chan func(), 1024),
		stopped:       make(chan struct{}),
		timers:        make(map[Handle]*time.Timer),
		tickers:       make(map[Handle]chan struct{}),
		frames:        make(map[Handle]func()),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Run executes scheduled work until ctx is cancelled. It must be called at
// most once.
func (l *Loop) Run(ctx context.Context) error {
	frameTicker := time.NewTicker(l.frameInterval)
	defer frameTicker.Stop()
	defer l.shutdown()

	l.logger.Debug("loop started",
		zap.Duration("frame_interval", l.frameInterval))

	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("loop stopped", zap.Error(ctx.Err()))
			return ctx.Err()
		case task := <-l.tasks:
			task()
		case <-frameTicker.C:
			l.runFrame()
		}
	}
}

// Do runs fn on the loop goroutine and waits for it to return. It must not be
// called from the loop goroutine itself.
func (l *Loop) Do(fn func()) error {
	done := make(chan struct{})

	if !l.post(func() {
		defer close(done)
		fn()
	}) {
		return ErrLoopStopped
	}

	select {
	case <-done:
		return nil
	case <-l.stopped:
		return ErrLoopStopped
	}
}

func (l *Loop) post(task func()) bool {
	select {
	case <-l.stopped:
		return false
	default:
	}

	select {
	case l.tasks <- task:
		return true
	case <-l.stopped:
		return false
	}
}

func (l *Loop) shutdown() {
	l.lock.Lock()
	defer l.lock.Unlock()

	close(l.stopped)

	for h, t := range l.timers {
		t.Stop()
		delete(l.timers, h)
	}

	for h, stop := range l.tickers {
		close(stop)
		delete(l.tickers, h)
	}

	l.frames = make(map[Handle]func())
	l.frameOrder = nil
}

func (l *Loop) newHandle() Handle {
	l.nextHandle++
	return l.nextHandle
}

// ScheduleOnce runs fn on the loop after delay.
func (l *Loop) ScheduleOnce(fn func(), delay time.Duration) Handle {
	l.lock.Lock()
	defer l.lock.Unlock()

	h := l.newHandle()
	l.timers[h] = time.AfterFunc(delay, func() {
		l.post(func() {
			if l.takeTimer(h) {
				fn()
			}
		})
	})

	return h
}

func (l *Loop) takeTimer(h Handle) bool {
	l.lock.Lock()
	defer l.lock.Unlock()

	if _, ok := l.timers[h]; !ok {
		return false
	}

	delete(l.timers, h)
	return true
}

// CancelOnce cancels a pending ScheduleOnce registration.
func (l *Loop) CancelOnce(h Handle) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if t, ok := l.timers[h]; ok {
		t.Stop()
		delete(l.timers, h)
	}
}

// ScheduleRepeating runs fn on the loop every interval.
func (l *Loop) ScheduleRepeating(fn func(), interval time.Duration) Handle {
	l.lock.Lock()
	defer l.lock.Unlock()

	h := l.newHandle()
	stop := make(chan struct{})
	l.tickers[h] = stop

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				l.post(func() {
					if l.tickerLive(h) {
						fn()
					}
				})
			}
		}
	}()

	return h
}

func (l *Loop) tickerLive(h Handle) bool {
	l.lock.Lock()
	defer l.lock.Unlock()

	_, ok := l.tickers[h]
	return ok
}

// CancelRepeating stops a ScheduleRepeating registration.
func (l *Loop) CancelRepeating(h Handle) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if stop, ok := l.tickers[h]; ok {
		close(stop)
		delete(l.tickers, h)
	}
}

// ScheduleFrame runs fn on the next frame.
func (l *Loop) ScheduleFrame(fn func()) Handle {
	l.lock.Lock()
	defer l.lock.Unlock()

	h := l.newHandle()
	l.frames[h] = fn
	l.frameOrder = append(l.frameOrder, h)

	return h
}

// CancelFrame drops a frame callback that has not run yet.
func (l *Loop) CancelFrame(h Handle) {
	l.lock.Lock()
	defer l.lock.Unlock()

	delete(l.frames, h)
}

func (l *Loop) runFrame() {
	l.lock.Lock()
	order := l.frameOrder
	l.frameOrder = nil
	l.lock.Unlock()

	for _, h := range order {
		l.lock.Lock()
		fn, ok := l.frames[h]
		delete(l.frames, h)
		l.lock.Unlock()

		if ok {
			fn()
		}
	}
}

// Now returns the monotonic current time.
func (l *Loop) Now() time.Time {
	return time.Now()
}

// WallClock returns the wall-clock time.
func (l *Loop) WallClock() time.Time {
	return time.Now()
}

var _ Host = (*Loop)(nil)
