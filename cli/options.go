package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sarchlab/vclock/config"
)

type options struct {
	envFile  string
	speed    float64
	tickMs   float64
	duration time.Duration
	monitor  bool
	port     int
	record   string
	open     bool
	logLevel string
	dev      bool

	cfg config.Config
}

func (o *options) bindFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()

	f.StringVar(&o.envFile, "env-file", "",
		"Load settings from this file instead of .env.")
	f.Float64Var(&o.speed, "speed", 1, "Speed multiplier of the clock.")
	f.Float64Var(&o.tickMs, "tick", 1000,
		"Print the clock every this many clock milliseconds. 0 disables.")
	f.DurationVar(&o.duration, "duration", 0,
		"Stop after this much real time. 0 runs until interrupted.")
	f.BoolVar(&o.monitor, "monitor", false, "Serve the HTTP monitor.")
	f.IntVar(&o.port, "port", 0,
		"Monitor port. Defaults to "+config.EnvMonitorPort+" or a random port.")
	f.StringVar(&o.record, "record", "",
		"Record the clock history to this SQLite file or clickhouse:// DSN. "+
			"Defaults to "+config.EnvRecordPath+".")
	f.BoolVar(&o.open, "open", false, "Open the monitor in a browser.")
	f.StringVar(&o.logLevel, "log-level", "",
		"Log level. Defaults to "+config.EnvLogLevel+" or info.")
	f.BoolVar(&o.dev, "dev", false, "Use human-friendly development logging.")
}

// resolve merges the environment configuration with the flags. Flags that
// were set explicitly win.
func (o *options) resolve(cmd *cobra.Command) error {
	var (
		cfg config.Config
		err error
	)

	if o.envFile != "" {
		cfg, err = config.Load(o.envFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.MonitorPort = o.port
	}
	if flags.Changed("record") {
		cfg.RecordPath = o.record
	}
	if flags.Changed("log-level") {
		level, err := zapcore.ParseLevel(o.logLevel)
		if err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
		cfg.LogLevel = level
	}

	if o.speed <= 0 {
		return fmt.Errorf("--speed must be positive, got %v", o.speed)
	}
	if o.tickMs < 0 {
		return fmt.Errorf("--tick must not be negative, got %v", o.tickMs)
	}

	o.cfg = cfg

	return nil
}

func (o *options) newLogger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if o.dev {
		zc = zap.NewDevelopmentConfig()
	}

	zc.Level = zap.NewAtomicLevelAt(o.cfg.LogLevel)

	return zc.Build()
}
