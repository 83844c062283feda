package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Production environments get JSON output,
// everything else the console encoder.
func New(environment, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}

// Named returns l.Named(name), falling back to the global logger when l is nil.
func Named(l *zap.Logger, name string) *zap.Logger {
	if l == nil {
		return zap.L().Named(name)
	}
	return l.Named(name)
}
