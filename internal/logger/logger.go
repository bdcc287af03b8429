// Package logger provides a structured logging interface backed by zerolog.
// Server components receive a Logger instead of writing to the global zerolog
// instance so that tests can inject a silent logger and binaries can choose
// between console and file output.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Field represents a key-value pair for structured log output.
type Field struct {
	Key   string
	Value any
}

// Logger is an interface for structured logging. Implementations write log
// entries at different levels and support attaching structured fields.
// Loggers may be derived with With for component-scoped fields.
type Logger interface {
	// Debug logs a message at debug level with optional structured fields.
	Debug(msg string, fields ...Field)

	// Info logs a message at info level with optional structured fields.
	Info(msg string, fields ...Field)

	// Warn logs a message at warn level with optional structured fields.
	Warn(msg string, fields ...Field)

	// Error logs a message at error level with optional structured fields.
	Error(msg string, fields ...Field)

	// With returns a new Logger that includes the given fields in all
	// subsequent log entries. The original Logger is unchanged.
	With(fields ...Field) Logger

	// Close releases resources held by the logger (e.g. file handles).
	// It is safe to call multiple times.
	Close() error
}

// ParseLevel converts a config-file level string into a zerolog level.
// Unknown strings default to info.
//
// Parameters:
//   - s: Level name ("debug", "info", "warn" or "error", case-sensitive)
//
// Returns:
//   - The matching zerolog.Level, or zerolog.InfoLevel if s is unknown
func ParseLevel(s string) zerolog.Level {
	switch s {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// zerologLogger is the zerolog-based implementation of Logger.
type zerologLogger struct {
	logger zerolog.Logger
	file   *os.File
}

// NewZerologLogger builds a Logger that writes to the given writer, adding a
// service name and timestamp to all entries and filtering by level.
//
// Parameters:
//   - w: Destination writer (e.g. os.Stdout)
//   - serviceName: Name of the service, added as a field to every log entry
//   - level: Minimum level to log
//
// Returns:
//   - A Logger that writes through a zerolog instance
func NewZerologLogger(w io.Writer, serviceName string, level zerolog.Level) Logger {
	return &zerologLogger{
		logger: zerolog.New(w).With().Str("service", serviceName).Timestamp().Logger().Level(level),
	}
}

// NewZerologFileLogger creates a Logger that writes to both stdout and the
// given log file, which is opened in append mode and created if missing.
//
// Parameters:
//   - serviceName: Name of the service, added as a field to every log entry
//   - path: Log file path
//   - level: Minimum level to log
//
// Returns:
//   - The new Logger, or an error if the file could not be opened
func NewZerologFileLogger(serviceName string, path string, level zerolog.Level) (Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	multi := io.MultiWriter(os.Stdout, f)
	return &zerologLogger{
		logger: zerolog.New(multi).With().Str("service", serviceName).Timestamp().Logger().Level(level),
		file:   f,
	}, nil
}

// NewNopLogger returns a Logger that discards everything. Intended for tests.
func NewNopLogger() Logger {
	return &zerologLogger{logger: zerolog.Nop()}
}

// Debug implements Logger.
func (z *zerologLogger) Debug(msg string, fields ...Field) {
	z.logger.Debug().Fields(toMap(fields)).Msg(msg)
}

// Info implements Logger.
func (z *zerologLogger) Info(msg string, fields ...Field) {
	z.logger.Info().Fields(toMap(fields)).Msg(msg)
}

// Warn implements Logger.
func (z *zerologLogger) Warn(msg string, fields ...Field) {
	z.logger.Warn().Fields(toMap(fields)).Msg(msg)
}

// Error implements Logger.
func (z *zerologLogger) Error(msg string, fields ...Field) {
	z.logger.Error().Fields(toMap(fields)).Msg(msg)
}

// With implements Logger.
func (z *zerologLogger) With(fields ...Field) Logger {
	return &zerologLogger{
		logger: z.logger.With().Fields(toMap(fields)).Logger(),
		file:   nil,
	}
}

// Close implements Logger. Only the Logger that opened the file closes it;
// derived loggers are no-ops.
func (z *zerologLogger) Close() error {
	if z.file != nil {
		err := z.file.Close()
		z.file = nil
		return err
	}

	return nil
}

// toMap converts a slice of Field into a map for zerolog.
func toMap(fields []Field) map[string]any {
	if len(fields) == 0 {
		return nil
	}

	m := make(map[string]any, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}

	return m
}
