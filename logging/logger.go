// Package logging provides the process-wide zerolog logger.
//
// Initialize once from main:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
// then log with structured fields:
//
//	logging.Info().Str("book_id", id).Msg("book created")
//	logging.Ctx(ctx).Warn().Err(err).Msg("broadcast failed")
package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error, disabled.
	Level string

	// Format is json or console.
	Format string

	// Caller adds file:line to every event.
	Caller bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

var current atomic.Pointer[zerolog.Logger]

//nolint:gochecknoinits // logging must work before Init is called
func init() {
	Init(Config{Level: "info", Format: "json"})
}

// Init reconfigures the global logger. Safe to call more than once.
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "time"

	base := zerolog.New(out).With().Timestamp()
	if cfg.Caller {
		base = base.Caller()
	}
	swap(base.Logger())
}

// parseLevel falls back to info for empty or unknown names.
func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	l, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return l
}

// swap installs l and returns the logger it replaced.
//
//nolint:gocritic // zerolog.Logger is passed by value
func swap(l zerolog.Logger) zerolog.Logger {
	prev := current.Swap(&l)
	if prev == nil {
		return zerolog.Nop()
	}
	return *prev
}

func logger() zerolog.Logger {
	return *current.Load()
}

// Debug starts a debug level event.
func Debug() *zerolog.Event {
	l := logger()
	return l.Debug()
}

// Info starts an info level event.
func Info() *zerolog.Event {
	l := logger()
	return l.Info()
}

// Warn starts a warn level event.
func Warn() *zerolog.Event {
	l := logger()
	return l.Warn()
}

// Error starts an error level event.
func Error() *zerolog.Event {
	l := logger()
	return l.Error()
}

// Fatal starts a fatal level event; os.Exit(1) follows Msg.
func Fatal() *zerolog.Event {
	l := logger()
	return l.Fatal()
}
