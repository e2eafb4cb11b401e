// Package logging builds the debug logger for checker runs: a console
// sink at the requested verbosity plus an optional per-run log file that
// always captures debug detail.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls logger construction.
type Options struct {
	// Debug raises console verbosity to debug level.
	Debug bool

	// Dir, when set, receives a debug log file alongside the reports.
	Dir string

	// FileName names the log file inside Dir.
	FileName string

	// Console receives console log lines. Defaults to stderr.
	Console zapcore.WriteSyncer
}

// New builds the run logger. The returned close func flushes buffers and
// releases the log file; it is safe to call on a nil-file logger too.
func New(opts Options) (*zap.SugaredLogger, func(), error) {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("15:04:05.000"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	consoleLevel := zap.InfoLevel
	if opts.Debug {
		consoleLevel = zap.DebugLevel
	}

	console := opts.Console
	if console == nil {
		console = zapcore.AddSync(os.Stderr)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), console, consoleLevel),
	}

	var file *os.File
	if opts.Dir != "" {
		name := opts.FileName
		if name == "" {
			name = "debug.log"
		}
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}

		var err error
		file, err = os.Create(filepath.Join(opts.Dir, name))
		if err != nil {
			return nil, nil, fmt.Errorf("creating log file: %w", err)
		}

		fileEncoder := encoderConfig
		fileEncoder.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(fileEncoder),
			zapcore.AddSync(file),
			zap.DebugLevel,
		))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	closer := func() {
		_ = logger.Sync()
		if file != nil {
			_ = file.Close()
		}
	}

	return logger.Sugar(), closer, nil
}
