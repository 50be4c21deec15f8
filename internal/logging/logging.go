// Package logging builds the zap-backed logr loggers used across the
// optimizer and defines the verbosity levels for logr.V calls.
package logging

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels for logr.V. INFO messages are always emitted; DEBUG
// messages only when the logger was built at the debug level.
const (
	INFO  = 0
	DEBUG = 1
)

// NewLogger builds a structured logger at the given level: debug, info or
// error. Development loggers use the human-readable console encoding,
// production loggers emit JSON.
func NewLogger(level string, dev bool) (logr.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return logr.Logger{}, fmt.Errorf("unknown log level %q", level)
	}

	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	z, err := cfg.Build()
	if err != nil {
		return logr.Logger{}, fmt.Errorf("build logger: %w", err)
	}
	return zapr.NewLogger(z), nil
}

// NewTestLogger builds a development logger at debug level.
func NewTestLogger() logr.Logger {
	return zapr.NewLogger(zap.Must(zap.NewDevelopment()))
}

// IntoContext returns a copy of ctx carrying the logger.
func IntoContext(ctx context.Context, logger logr.Logger) context.Context {
	return logr.NewContext(ctx, logger)
}

// FromContext returns the logger stored in ctx, or a discarding logger when
// none was stored.
func FromContext(ctx context.Context) logr.Logger {
	return logr.FromContextOrDiscard(ctx)
}
