// Package logging constructs the zap loggers shared by every subsystem.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls logger construction, sourced from the config file / flags.
type Options struct {
	// Level is one of debug, info, warn, error.
	Level string
	// Production switches to JSON output with no color, for logfile targets.
	Production bool
	// Logfile is the destination path; empty means stderr.
	Logfile string
}

// New builds the root logger. Subsystems derive their own named child via
// Logger.Named, mirroring the teacher's one-logger-per-subsystem convention.
func New(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", opts.Level, err)
	}

	var cfg zap.Config
	if opts.Production {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.TimeKey = ""
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
		cfg.DisableCaller = true
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	if opts.Logfile != "" {
		cfg.OutputPaths = []string{opts.Logfile}
		cfg.ErrorOutputPaths = []string{opts.Logfile}
	}

	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log, nil
}
