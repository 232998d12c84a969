// Package logging builds the process-wide structured logger.
//
// Grounded on _examples/Ramsey-B-meadow/orchid's go.uber.org/zap usage,
// standing in for the original Python pipeline's structlog JSON
// renderer (production_etl_pipeline.py configures structlog with a
// TimeStamper + JSONRenderer; zap's production JSON encoder plays the
// same role here).
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a JSON-encoded, ISO8601-timestamped logger. verbose raises
// the level to Debug; otherwise Info.
func New(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// Nop returns a logger that discards everything, for tests.
func Nop() *zap.Logger {
	return zap.NewNop()
}
