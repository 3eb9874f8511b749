// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Field represents a structured logging field with a key-value pair.
type Field struct {
	Key   string
	Value interface{}
}

// Logger defines the structured logging interface used by sessions, engines
// and recording readers.
type Logger interface {
	// Debug logs debug-level messages with optional structured fields.
	Debug(msg string, fields ...Field)

	// Info logs info-level messages with optional structured fields.
	Info(msg string, fields ...Field)

	// Warn logs warning-level messages with optional structured fields.
	Warn(msg string, fields ...Field)

	// Error logs error-level messages with optional structured fields.
	Error(msg string, fields ...Field)

	// With creates a new logger instance with the provided fields pre-populated.
	With(fields ...Field) Logger
}

// NoOpLogger is a Logger implementation that discards all log messages.
type NoOpLogger struct{}

func (l *NoOpLogger) Debug(msg string, fields ...Field) {}
func (l *NoOpLogger) Info(msg string, fields ...Field)  {}
func (l *NoOpLogger) Warn(msg string, fields ...Field)  {}
func (l *NoOpLogger) Error(msg string, fields ...Field) {}

// With returns the receiver; there is nothing to carry.
func (l *NoOpLogger) With(fields ...Field) Logger {
	return l
}

// StandardLogger wraps Go's standard log package to implement the Logger interface.
type StandardLogger struct {
	// Logger is the underlying standard library logger.
	Logger *log.Logger

	contextFields []Field
}

func (l *StandardLogger) ensureLogger() *log.Logger {
	if l.Logger == nil {
		l.Logger = log.New(os.Stderr, "vncview: ", log.LstdFlags|log.Lshortfile)
	}
	return l.Logger
}

func (l *StandardLogger) print(level, msg string, fields []Field) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, group := range [][]Field{l.contextFields, fields} {
		for _, field := range group {
			b.WriteByte(' ')
			b.WriteString(field.Key)
			b.WriteByte('=')
			b.WriteString(formatFieldValue(field.Value))
		}
	}
	l.ensureLogger().Print(b.String())
}

// formatFieldValue quotes strings containing whitespace and error values.
func formatFieldValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		if strings.ContainsAny(v, " \t\r\n") {
			return `"` + v + `"`
		}
		return v
	case error:
		return `"` + v.Error() + `"`
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (l *StandardLogger) Debug(msg string, fields ...Field) { l.print("[DEBUG]", msg, fields) }
func (l *StandardLogger) Info(msg string, fields ...Field)  { l.print("[INFO]", msg, fields) }
func (l *StandardLogger) Warn(msg string, fields ...Field)  { l.print("[WARN]", msg, fields) }
func (l *StandardLogger) Error(msg string, fields ...Field) { l.print("[ERROR]", msg, fields) }

// With creates a new StandardLogger sharing the output with additional context fields.
func (l *StandardLogger) With(fields ...Field) Logger {
	ctx := make([]Field, 0, len(l.contextFields)+len(fields))
	ctx = append(ctx, l.contextFields...)
	ctx = append(ctx, fields...)
	return &StandardLogger{Logger: l.Logger, contextFields: ctx}
}

// ZerologLogger adapts a zerolog.Logger to the Logger interface.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger builds a timestamped zerolog logger writing to w at the
// named level ("debug", "info", "warn" or "error"; unknown names mean info).
func NewZerologLogger(w io.Writer, level string) *ZerologLogger {
	lvl := zerolog.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		lvl = zerolog.DebugLevel
	case "warn":
		lvl = zerolog.WarnLevel
	case "error":
		lvl = zerolog.ErrorLevel
	}
	return &ZerologLogger{zl: zerolog.New(w).Level(lvl).With().Timestamp().Logger()}
}

// WrapZerolog adapts an existing zerolog.Logger.
func WrapZerolog(zl zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{zl: zl}
}

func (l *ZerologLogger) emit(ev *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			ev = ev.AnErr(f.Key, err)
			continue
		}
		ev = ev.Interface(f.Key, f.Value)
	}
	ev.Msg(msg)
}

func (l *ZerologLogger) Debug(msg string, fields ...Field) { l.emit(l.zl.Debug(), msg, fields) }
func (l *ZerologLogger) Info(msg string, fields ...Field)  { l.emit(l.zl.Info(), msg, fields) }
func (l *ZerologLogger) Warn(msg string, fields ...Field)  { l.emit(l.zl.Warn(), msg, fields) }
func (l *ZerologLogger) Error(msg string, fields ...Field) { l.emit(l.zl.Error(), msg, fields) }

// With returns a child logger with the fields attached to its context.
func (l *ZerologLogger) With(fields ...Field) Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, f.Value)
	}
	return &ZerologLogger{zl: ctx.Logger()}
}
