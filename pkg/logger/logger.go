// Package logger builds the application's zap loggers.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the log level, encoder, and development niceties.
type Config struct {
	Level       string
	Development bool
	Encoding    string // "json" or "console"
}

// New builds a zap logger for the given config. Unknown level strings
// fall back to info.
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(cfg.Level); err == nil {
		level = parsed
	}

	base := zap.NewProductionConfig()
	if cfg.Development {
		base = zap.NewDevelopmentConfig()
		base.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	base.Level = zap.NewAtomicLevelAt(level)
	if cfg.Encoding != "" {
		base.Encoding = cfg.Encoding
	}
	base.OutputPaths = []string{"stdout"}
	base.ErrorOutputPaths = []string{"stderr"}

	return base.Build()
}

// Default builds a console logger from LOG_LEVEL and APP_ENV, for code
// paths that run before configuration is loaded.
func Default() *zap.Logger {
	l, err := New(Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Development: os.Getenv("APP_ENV") != "production",
		Encoding:    "console",
	})
	if err != nil {
		return zap.NewExample()
	}
	return l
}
