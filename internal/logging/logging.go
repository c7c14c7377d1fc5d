// Package logging builds the single *zap.Logger every DocBro component
// shares, following the teacher's structured-logging convention
// (zap.String("component", ...), zap.Error(err)) without the OTEL dual-core
// bridge: DocBro has no component that exports traces/logs externally (see
// SPEC_FULL.md §A), so a plain zap core is all the ambient stack needs.
package logging

import (
	"github.com/behemotion/docbro/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-style zap logger at the level named by
// EffectiveSettings.LogLevel (spec §6).
func New(level config.LogLevel) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func parseLevel(level config.LogLevel) zapcore.Level {
	switch level {
	case config.LogDebug:
		return zapcore.DebugLevel
	case config.LogWarn:
		return zapcore.WarnLevel
	case config.LogError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Component returns a child logger tagged with a "component" field, the
// convention every DocBro subsystem uses to scope its log lines.
func Component(base *zap.Logger, name string) *zap.Logger {
	return base.With(zap.String("component", name))
}
