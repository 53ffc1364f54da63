// Package logging configures zerolog for the host tools and adapts it to
// the session logger interface.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	EnvLogLevel     = "CCDUMP_LOG_LEVEL"
	EnvLogTimestamp = "CCDUMP_LOG_TIMESTAMP"
	EnvLogNoColor   = "CCDUMP_LOG_NOCOLOR"
	EnvLogJSON      = "CCDUMP_LOG_JSON"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Config is the resolved logger setup.
type Config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
	JSON      bool
}

func DefaultConfig(profile Profile) Config {
	switch profile {
	case ProfileTest:
		return Config{Level: zerolog.DebugLevel, NoColor: true}
	default:
		return Config{Level: zerolog.InfoLevel, Timestamp: true}
	}
}

// FromEnv applies CCDUMP_LOG_* overrides to the profile defaults.
func FromEnv(profile Profile) Config {
	cfg := DefaultConfig(profile)
	applyEnvOverrides(&cfg, os.Getenv)
	return cfg
}

func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	if lvl, ok := parseLevel(getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
	if v, ok := parseBool(getenv(EnvLogJSON)); ok {
		cfg.JSON = v
	}
}

// New builds a logger writing to w, tagged with app.
func New(w io.Writer, app string, cfg Config) zerolog.Logger {
	out := w
	if !cfg.JSON {
		out = zerolog.ConsoleWriter{Out: w, NoColor: cfg.NoColor, TimeFormat: time.RFC3339}
	}
	ctx := zerolog.New(out).Level(cfg.Level).With().Str("app", app)
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}

// Runtime is the logger for command-line tools: stderr, env overrides.
func Runtime(app string) zerolog.Logger {
	return New(os.Stderr, app, FromEnv(ProfileRuntime))
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// Adapter satisfies the session Logger interface on top of zerolog.
type Adapter struct {
	L zerolog.Logger
}

func (a Adapter) Debug(msg string, kv ...interface{}) { a.L.Debug().Fields(kv).Msg(msg) }
func (a Adapter) Info(msg string, kv ...interface{})  { a.L.Info().Fields(kv).Msg(msg) }
func (a Adapter) Warn(msg string, kv ...interface{})  { a.L.Warn().Fields(kv).Msg(msg) }
func (a Adapter) Error(msg string, kv ...interface{}) { a.L.Error().Fields(kv).Msg(msg) }
