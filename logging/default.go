package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
)

// DefaultLogger writes leveled lines through the standard log package.
// Debug/Info go to stdout, Warn/Error/Fatal to stderr (colored on a TTY).
type DefaultLogger struct {
	stdoutLogger *log.Logger
	stderrLogger *log.Logger
	level        Level
	fields       Fields
	useColors    bool
}

// NewDefaultLogger creates a new default logger with colored output
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{
		stdoutLogger: log.New(os.Stdout, "", log.LstdFlags),
		stderrLogger: log.New(os.Stderr, "", log.LstdFlags),
		level:        InfoLevel,
		fields:       make(Fields),
		useColors:    isTerminal(),
	}
}

// NewWriterLogger sends every level to w without colors. The CLI uses it to
// keep stdout clean for segment output.
func NewWriterLogger(w io.Writer, level Level) *DefaultLogger {
	l := log.New(w, "", log.LstdFlags)
	return &DefaultLogger{
		stdoutLogger: l,
		stderrLogger: l,
		level:        level,
		fields:       make(Fields),
	}
}

func isTerminal() bool {
	if fileInfo, _ := os.Stdout.Stat(); fileInfo != nil {
		return (fileInfo.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

func (d *DefaultLogger) formatMessage(level Level, err error, msg string, fields ...Fields) string {
	allFields := mergeFields(d.fields, fields...)

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", level.String(), msg)

	if err != nil {
		fmt.Fprintf(&b, ": %v", err)
	}

	// sorted so lines are stable across runs
	if len(allFields) > 0 {
		keys := make([]string, 0, len(allFields))
		for k := range allFields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, allFields[k])
		}
	}

	logMsg := b.String()
	if d.useColors {
		switch level {
		case WarnLevel:
			logMsg = ColorYellow + logMsg + ColorReset
		case ErrorLevel:
			logMsg = ColorRed + logMsg + ColorReset
		case FatalLevel:
			logMsg = ColorBold + ColorRed + logMsg + ColorReset
		}
	}

	return logMsg
}

func (d *DefaultLogger) log(level Level, err error, msg string, fields ...Fields) {
	if level < d.level {
		return
	}

	formattedMsg := d.formatMessage(level, err, msg, fields...)

	switch level {
	case DebugLevel, InfoLevel:
		d.stdoutLogger.Println(formattedMsg)
	case WarnLevel, ErrorLevel:
		d.stderrLogger.Println(formattedMsg)
	case FatalLevel:
		d.stderrLogger.Println(formattedMsg)
		os.Exit(1)
	}
}

func (d *DefaultLogger) Debug(msg string, fields ...Fields) {
	d.log(DebugLevel, nil, msg, fields...)
}

func (d *DefaultLogger) Info(msg string, fields ...Fields) {
	d.log(InfoLevel, nil, msg, fields...)
}

func (d *DefaultLogger) Warn(msg string, fields ...Fields) {
	d.log(WarnLevel, nil, msg, fields...)
}

func (d *DefaultLogger) Error(err error, msg string, fields ...Fields) {
	d.log(ErrorLevel, err, msg, fields...)
}

func (d *DefaultLogger) Fatal(err error, msg string, fields ...Fields) {
	d.log(FatalLevel, err, msg, fields...)
}

func (d *DefaultLogger) WithFields(fields Fields) Logger {
	return &DefaultLogger{
		stdoutLogger: d.stdoutLogger,
		stderrLogger: d.stderrLogger,
		level:        d.level,
		fields:       mergeFields(d.fields, fields),
		useColors:    d.useColors,
	}
}

func (d *DefaultLogger) WithContext(ctx context.Context) Logger {
	if fields, ok := fieldsFromContext(ctx); ok {
		return d.WithFields(fields)
	}
	return d
}

func (d *DefaultLogger) SetLevel(level Level) {
	d.level = level
}

// NoOpLogger discards everything.
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, fields ...Fields)            {}
func (n *NoOpLogger) Info(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Warn(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Error(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) Fatal(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) WithFields(fields Fields) Logger               { return n }
func (n *NoOpLogger) WithContext(ctx context.Context) Logger        { return n }
func (n *NoOpLogger) SetLevel(level Level)                          {}
