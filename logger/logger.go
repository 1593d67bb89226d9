package logger

import (
	"io"
	"maps"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// Logger represents a configurable logger instance
type Logger struct {
	level Level
	zl    zerolog.Logger
}

// New creates a new logger writing one JSON object per line to output.
func New(level string, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}

	lvl := parseLevel(level)
	zl := zerolog.New(zerolog.SyncWriter(output)).
		Level(toZerologLevel(lvl)).
		With().
		Timestamp().
		Logger()

	return &Logger{
		level: lvl,
		zl:    zl,
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{level: ERROR + 1, zl: zerolog.Nop()}
}

// parseLevel converts string to Level (internal function)
func parseLevel(level string) Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN":
		return WARN
	case "ERROR", "FATAL":
		return ERROR
	default:
		return INFO
	}
}

func toZerologLevel(level Level) zerolog.Level {
	switch level {
	case DEBUG:
		return zerolog.DebugLevel
	case INFO:
		return zerolog.InfoLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.Disabled
	}
}

// Enabled reports whether messages at the given level are written.
func (l *Logger) Enabled(level Level) bool {
	return l != nil && level >= l.level
}

func (l *Logger) write(level Level, message string, fields map[string]any) {
	if !l.Enabled(level) {
		return
	}

	var event *zerolog.Event
	switch level {
	case DEBUG:
		event = l.zl.Debug()
	case INFO:
		event = l.zl.Info()
	case WARN:
		event = l.zl.Warn()
	default:
		event = l.zl.Error()
	}

	if len(fields) > 0 {
		event = event.Fields(fields)
	}
	event.Msg(message)
}

func firstFields(fields []map[string]any) map[string]any {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

// Core logging methods - always structured
func (l *Logger) Debug(message string, fields ...map[string]any) {
	l.write(DEBUG, message, firstFields(fields))
}

func (l *Logger) Info(message string, fields ...map[string]any) {
	l.write(INFO, message, firstFields(fields))
}

func (l *Logger) Warn(message string, fields ...map[string]any) {
	l.write(WARN, message, firstFields(fields))
}

func (l *Logger) Error(message string, fields ...map[string]any) {
	l.write(ERROR, message, firstFields(fields))
}

// Specialized logging methods
func (l *Logger) Task(taskID, message string, fields ...map[string]any) {
	allFields := map[string]any{
		"task_id": taskID,
		"type":    "task",
	}

	if f := firstFields(fields); f != nil {
		maps.Copy(allFields, f)
	}

	l.write(INFO, message, allFields)
}

// TaskWarn is Task at WARN level, used for soft failures inside a run.
func (l *Logger) TaskWarn(taskID, message string, fields ...map[string]any) {
	allFields := map[string]any{
		"task_id": taskID,
		"type":    "task",
	}

	if f := firstFields(fields); f != nil {
		maps.Copy(allFields, f)
	}

	l.write(WARN, message, allFields)
}

func (l *Logger) HTTP(method, path string, statusCode int, duration time.Duration, fields ...map[string]any) {
	allFields := map[string]any{
		"http_method": method,
		"http_path":   path,
		"http_status": statusCode,
		"duration_ns": duration.Nanoseconds(),
		"type":        "http_request",
	}

	if f := firstFields(fields); f != nil {
		maps.Copy(allFields, f)
	}

	l.write(INFO, "HTTP request completed", allFields)
}
