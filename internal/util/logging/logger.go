// Package logging wraps zap's SugaredLogger with the small levelled API used
// by the picoauth services and commands.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a wrapper for zap.SugaredLogger.
type Logger struct {
	z *zap.SugaredLogger
}

// LoggerConfig selects the running environment ("development" or
// "production"), an optional file to mirror output to, and whether stack
// traces are attached to error-level entries.
type LoggerConfig struct {
	EnableStacktrace bool   `toml:"enable_stacktrace,omitempty"`
	Environment      string `toml:"env"`
	Path             string `toml:"path,omitempty"`
}

// DefaultLoggerConfig logs Info and above to stderr.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{Environment: "production"}
}

// NewLogger builds a console logger from conf. Development writes Debug and
// above, production writes Info and above.
func NewLogger(conf LoggerConfig) (*Logger, error) {
	level := zap.NewAtomicLevel()
	switch {
	case strings.EqualFold("development", conf.Environment):
		level.SetLevel(zap.DebugLevel)
	case strings.EqualFold("production", conf.Environment), conf.Environment == "":
		level.SetLevel(zap.InfoLevel)
	default:
		return nil, fmt.Errorf("logging: environment must be development or production, got %q", conf.Environment)
	}

	outputs := []string{"stderr"}
	if conf.Path != "" {
		outputs = append(outputs, conf.Path)
	}

	zc := zap.Config{
		Level:             level,
		Encoding:          "console",
		DisableStacktrace: !conf.EnableStacktrace,
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "path",
			MessageKey:     "msg",
			StacktraceKey:  "stack",
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}
	z, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{z: z.Sugar()}, nil
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger { return &Logger{z: zap.NewNop().Sugar()} }

// With returns a child logger that adds keysAndValues to every entry.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{z: l.z.With(keysAndValues...)}
}

// Named adds a sub-scope to the logger's name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{z: l.z.Named(name)}
}

// Debug logs a message useful when debugging.
func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.z.Debugw(msg, keysAndValues...)
}

// Info logs normal progress.
func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.z.Infow(msg, keysAndValues...)
}

// Warn logs potentially harmful situations, such as a peer that failed
// authentication.
func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.z.Warnw(msg, keysAndValues...)
}

// Error logs a failure of one operation. The process keeps running.
func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.z.Errorw(msg, keysAndValues...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error { return l.z.Sync() }
