package util

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const ctxKeyLogger contextKey = "logger"

// LogFromContext returns the logger attached to the context, falling back to
// the global logger if none was attached.
func LogFromContext(ctx context.Context) *zerolog.Logger {
	l, ok := ctx.Value(ctxKeyLogger).(*zerolog.Logger)
	if !ok || l == nil {
		return &log.Logger
	}

	return l
}

// WithLogger attaches the logger to the context.
func WithLogger(ctx context.Context, l zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKeyLogger, &l)
}

// LogLevelFromString parses a log level, defaulting to debug on failure.
func LogLevelFromString(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		log.Warn().Str("level", s).Msg("Failed to parse log level, defaulting to debug")
		return zerolog.DebugLevel
	}

	return level
}
