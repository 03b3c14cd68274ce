package clock

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sarchlab/vclock/hooking"
	"github.com/sarchlab/vclock/idgen"
	"github.com/sarchlab/vclock/shim"
)

// config is the resolved form of a Builder.
type config struct {
	once      shim.OnceScheduler
	repeating shim.RepeatingScheduler
	frame     shim.FrameScheduler
	clock     shim.Clock
	ids       idgen.Generator
	logger    *zap.Logger
	speed     float64
	hooks     []hooking.Hook
}

// Builder creates timers and countdowns.
type Builder struct {
	host      shim.Host
	once      shim.OnceScheduler
	repeating shim.RepeatingScheduler
	frame     shim.FrameScheduler
	clock     shim.Clock
	ids       idgen.Generator
	logger    *zap.Logger
	speed     float64
	hooks     []hooking.Hook
}

// MakeBuilder creates a Builder with speed 1 and a no-op logger.
func MakeBuilder() Builder {
	return Builder{
		speed:  1,
		logger: zap.NewNop(),
	}
}

// WithHost supplies every capability from one host. Individual capabilities
// set with the other With methods take precedence.
func (b Builder) WithHost(h shim.Host) Builder {
	b.host = h
	return b
}

// WithOnceScheduler overrides delayed execution.
func (b Builder) WithOnceScheduler(s shim.OnceScheduler) Builder {
	b.once = s
	return b
}

// WithRepeatingScheduler overrides repeating execution.
func (b Builder) WithRepeatingScheduler(s shim.RepeatingScheduler) Builder {
	b.repeating = s
	return b
}

// WithFrameScheduler overrides frame callbacks.
func (b Builder) WithFrameScheduler(s shim.FrameScheduler) Builder {
	b.frame = s
	return b
}

// WithClock overrides the monotonic and wall clocks.
func (b Builder) WithClock(c shim.Clock) Builder {
	b.clock = c
	return b
}

// WithIDGenerator sets where clock IDs come from. Defaults to xid.
func (b Builder) WithIDGenerator(g idgen.Generator) Builder {
	b.ids = g
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger *zap.Logger) Builder {
	b.logger = logger
	return b
}

// WithSpeedMultiplier sets the initial speed multiplier.
func (b Builder) WithSpeedMultiplier(speed float64) Builder {
	b.speed = speed
	return b
}

// WithHook attaches a hook before the clock records its create event.
func (b Builder) WithHook(h hooking.Hook) Builder {
	b.hooks = append(append([]hooking.Hook(nil), b.hooks...), h)
	return b
}

func (b Builder) resolve() (config, error) {
	cfg := config{
		ids:    b.ids,
		logger: b.logger,
		speed:  b.speed,
		hooks:  b.hooks,
	}

	if b.host != nil {
		cfg.once, cfg.repeating, cfg.frame, cfg.clock = b.host, b.host, b.host, b.host
	}

	if b.once != nil {
		cfg.once = b.once
	}
	if b.repeating != nil {
		cfg.repeating = b.repeating
	}
	if b.frame != nil {
		cfg.frame = b.frame
	}
	if b.clock != nil {
		cfg.clock = b.clock
	}

	switch {
	case cfg.once == nil:
		return cfg, fmt.Errorf("%w: no once scheduler", ErrInvalidConfiguration)
	case cfg.repeating == nil:
		return cfg, fmt.Errorf("%w: no repeating scheduler", ErrInvalidConfiguration)
	case cfg.frame == nil:
		return cfg, fmt.Errorf("%w: no frame scheduler", ErrInvalidConfiguration)
	case cfg.clock == nil:
		return cfg, fmt.Errorf("%w: no clock", ErrInvalidConfiguration)
	}

	if err := validateSpeed(cfg.speed); err != nil {
		return cfg, err
	}

	if cfg.ids == nil {
		cfg.ids = idgen.NewXID()
	}

	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	return cfg, nil
}

// BuildTimer creates a paused Timer at elapsed time zero.
func (b Builder) BuildTimer() (*Timer, error) {
	cfg, err := b.resolve()
	if err != nil {
		return nil, err
	}

	return newTimer(cfg), nil
}

// BuildCountdown creates a paused Countdown with totalMs remaining.
func (b Builder) BuildCountdown(totalMs float64) (*Countdown, error) {
	cfg, err := b.resolve()
	if err != nil {
		return nil, err
	}

	return newCountdown(cfg, totalMs)
}
