package main

import (
	"go.uber.org/zap"
)

// newLogger builds a zap.SugaredLogger at the configured level, writing
// structured logs to stderr so stdout stays free for the mcp command's
// JSON-RPC frames. zap comes from the wider example pack; the teacher has
// no structured logging library of its own.
func newLogger(level string) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
