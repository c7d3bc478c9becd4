// Package qclog builds the structured logger every pipeline component
// logs through.
package qclog

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"msqc/internal/config"
)

// New builds a sugared logger from the logging configuration. Output goes
// to stderr, plus the configured log file when one is set.
func New(cfg config.LoggingConfig) (*zap.SugaredLogger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Encoding = cfg.Encoding
	if zcfg.Encoding == "" {
		zcfg.Encoding = "console"
	}
	zcfg.Level = zap.NewAtomicLevelAt(level(cfg.Level))
	zcfg.OutputPaths = []string{"stderr"}
	if cfg.File != "" {
		zcfg.OutputPaths = append(zcfg.OutputPaths, cfg.File)
	}
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Sugar(), nil
}

// Nop returns a logger that discards everything. Used in tests and as the
// fallback when a component receives no logger.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func level(name string) zapcore.Level {
	switch name {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
