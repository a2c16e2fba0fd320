// Package logger builds the service's zerolog loggers and carries a
// request-scoped logger through context. The HTTP middleware installs one per
// request (stamped with the request id) and handlers retrieve it, so every
// log line of one import is correlatable.
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type contextKey struct{}

var loggerKey contextKey

// New creates the root logger. LOG_LEVEL selects the level (trace, debug,
// info, warn, error); unset or unparseable means info.
func New() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(levelFromEnv()).With().Timestamp().Caller().Logger()
}

// NewWithWriter creates a logger with a custom writer, mainly for tests.
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Caller().Logger()
}

func levelFromEnv() zerolog.Level {
	lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// WithContext returns a context carrying log as the request-scoped logger.
func WithContext(ctx context.Context, log zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext returns the request-scoped logger, or the root logger when the
// context carries none.
func FromContext(ctx context.Context) zerolog.Logger {
	return FromContextOr(ctx, New())
}

// FromContextOr returns the request-scoped logger, or fallback when the
// context carries none. Handlers use this with their injected logger so
// direct calls outside the middleware chain still log somewhere sensible.
func FromContextOr(ctx context.Context, fallback zerolog.Logger) zerolog.Logger {
	if log, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return log
	}
	return fallback
}

// WithFields adds structured fields to a logger, for stamping component-level
// loggers at startup.
func WithFields(log zerolog.Logger, fields map[string]interface{}) zerolog.Logger {
	lctx := log.With()
	for k, v := range fields {
		lctx = lctx.Interface(k, v)
	}
	return lctx.Logger()
}
