package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"go.uber.org/zap"

	"github.com/sarchlab/vclock/clock"
	"github.com/sarchlab/vclock/datarecording"
	"github.com/sarchlab/vclock/monitoring"
	"github.com/sarchlab/vclock/shim"
)

// session owns the loop, monitor and recorder of one command run.
type session struct {
	opts     *options
	out      io.Writer
	logger   *zap.Logger
	loop     *shim.Loop
	monitor  *monitoring.Monitor
	recorder datarecording.DataRecorder
	runInfo  *datarecording.RunRecorder

	// done is closed from the loop goroutine to end the run early.
	done chan struct{}
}

func newSession(opts *options, out io.Writer) (*session, error) {
	logger, err := opts.newLogger()
	if err != nil {
		return nil, err
	}

	s := &session{
		opts:   opts,
		out:    out,
		logger: logger,
		done:   make(chan struct{}),
	}

	s.loop = shim.NewLoop(
		shim.WithFrameRate(opts.cfg.FrameRate),
		shim.WithLoopLogger(logger),
	)

	if opts.monitor {
		s.monitor = monitoring.NewMonitor().
			WithLogger(logger).
			WithPortNumber(opts.cfg.MonitorPort).
			WithExecutor(s.loop)
	}

	switch target := opts.cfg.RecordPath; {
	case target == "":
	case datarecording.IsClickHouseDSN(target):
		s.recorder, err = datarecording.NewClickHouse(target, 0)
		if err != nil {
			_ = logger.Sync()
			return nil, err
		}
	default:
		s.recorder = datarecording.New(target)
	}

	if s.recorder != nil {
		s.runInfo = datarecording.StartRun(s.recorder)
	}

	return s, nil
}

func (s *session) builder() clock.Builder {
	b := clock.MakeBuilder().
		WithHost(s.loop).
		WithLogger(s.logger).
		WithSpeedMultiplier(s.opts.speed)

	if s.monitor != nil {
		b = b.WithHook(s.monitor.Metrics())
	}

	if s.recorder != nil {
		b = b.WithHook(datarecording.NewHistoryRecorder(s.recorder))
	}

	return b
}

// finish ends the run. It must be called on the loop goroutine.
func (s *session) finish() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

type runnable interface {
	monitoring.Clock
	Start() (bool, error)
	Dispose()
}

// run starts the loop, builds the clock on it with setup, and blocks until
// the duration elapses, the session is finished, or the process is
// interrupted.
func (s *session) run(ctx context.Context, setup func() (runnable, error)) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loopCtx, cancelLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = s.loop.Run(loopCtx)
	}()
	defer func() {
		cancelLoop()
		<-loopDone
		s.close()
	}()

	var (
		c   runnable
		err error
	)
	if doErr := s.loop.Do(func() {
		c, err = setup()
		if err != nil {
			return
		}
		_, err = c.Start()
	}); doErr != nil {
		return doErr
	}
	if err != nil {
		return err
	}

	s.logger.Info("clock started", zap.String("clock", c.ID()))

	if s.runInfo != nil {
		s.runInfo.Set("Clock ID", c.ID())
	}

	if s.monitor != nil {
		s.monitor.RegisterClock(c)
		s.startMonitor()
	}

	var timeout <-chan time.Time
	if s.opts.duration > 0 {
		t := time.NewTimer(s.opts.duration)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-ctx.Done():
	case <-s.done:
	case <-timeout:
	}

	return s.loop.Do(func() {
		if state, err := c.State(); err == nil {
			fmt.Fprintf(s.out, "%s stopped at %dms\n", state.ID, state.ElapsedMs)
		}

		c.Dispose()
	})
}

func (s *session) startMonitor() {
	port := s.monitor.StartServer()

	if !s.opts.open {
		return
	}

	url := fmt.Sprintf("http://localhost:%d/api/clocks", port)
	if err := browser.OpenURL(url); err != nil {
		s.logger.Warn("cannot open browser", zap.Error(err))
	}
}

func (s *session) close() {
	if s.monitor != nil {
		if err := s.monitor.Close(); err != nil {
			s.logger.Warn("closing monitor", zap.Error(err))
		}
	}

	if s.recorder != nil {
		s.runInfo.End()

		if err := s.recorder.Close(); err != nil {
			s.logger.Warn("closing recorder", zap.Error(err))
		}
	}

	_ = s.logger.Sync()
}
