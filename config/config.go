// Package config reads the settings of the vclock command from the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

	"github.com/sarchlab/vclock/shim"
)

// Environment variables read by Load.
const (
	EnvMonitorPort = "VCLOCK_MONITOR_PORT"
	EnvRecordPath  = "VCLOCK_RECORD_PATH"
	EnvFrameRate   = "VCLOCK_FRAME_RATE"
	EnvLogLevel    = "VCLOCK_LOG_LEVEL"
)

// Config holds the command settings.
type Config struct {
	// MonitorPort is the port of the monitoring server. Zero picks a random
	// port.
	MonitorPort int

	// RecordPath is the SQLite file or clickhouse:// DSN that clock
	// histories are recorded to. Empty disables recording.
	RecordPath string

	FrameRate int
	LogLevel  zapcore.Level
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		FrameRate: shim.DefaultFrameRate,
		LogLevel:  zapcore.InfoLevel,
	}
}

// Load loads envFiles, or ".env" when none is given, into the environment and
// then reads the settings. Variables already set in the environment win over
// the files. A missing default .env file is not an error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return Config{}, fmt.Errorf("loading %v: %w", envFiles, err)
	}

	return FromEnv()
}

// FromEnv reads the settings from the environment only.
func FromEnv() (Config, error) {
	c := Default()

	if v, ok := os.LookupEnv(EnvMonitorPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 0 || port > 65535 {
			return c, fmt.Errorf("%s: invalid port %q", EnvMonitorPort, v)
		}
		c.MonitorPort = port
	}

	c.RecordPath = os.Getenv(EnvRecordPath)

	if v, ok := os.LookupEnv(EnvFrameRate); ok && v != "" {
		fps, err := strconv.Atoi(v)
		if err != nil || fps <= 0 {
			return c, fmt.Errorf("%s: invalid frame rate %q", EnvFrameRate, v)
		}
		c.FrameRate = fps
	}

	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		level, err := zapcore.ParseLevel(v)
		if err != nil {
			return c, fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
		c.LogLevel = level
	}

	return c, nil
}
