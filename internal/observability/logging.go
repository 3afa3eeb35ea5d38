// Package observability provides logging and tracing setup for the skirmish tools.
package observability

import (
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/skirmish/internal/config"
)

// Version reports the main module version stamped into the binary, or
// "devel" for builds from a working tree.
func Version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "devel"
	}
	return info.Main.Version
}

// NewLogger creates the process logger for service. Every line carries the
// service name and Version.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig, service string) (*zap.Logger, error) {
	zapCfg, err := loggerConfig(cfg, service)
	if err != nil {
		return nil, err
	}
	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

func loggerConfig(cfg config.LoggingConfig, service string) (zap.Config, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return zap.Config{}, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.TimeKey = "time"
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return zap.Config{}, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	// battle event lines share one message; sampling would drop most of a battle
	zapCfg.Sampling = nil
	zapCfg.InitialFields = map[string]any{
		"service": service,
		"version": Version(),
	}
	return zapCfg, nil
}

// NewBattleLogger returns a child logger tagged with the battle seed, so every
// line a single battle emits can be filtered together.
func NewBattleLogger(base *zap.Logger, scenario string, seed int64) *zap.Logger {
	return base.With(zap.String("scenario", scenario), zap.Int64("seed", seed))
}
