// Package logger provides structured logging for the edition service.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with component helpers for the edition engine.
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool
	Output     io.Writer
	WithCaller bool
}

func parseLevel(s string) zerolog.Level {
	switch s {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	}
	return zerolog.InfoLevel
}

// NewLogger creates a new structured logger
func NewLogger(cfg Config) *Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", "edition-publisher").
		Logger()

	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}

	return &Logger{zlog: zlog}
}

// Nop discards everything. Used by tests and as the zero default of services.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

func (l *Logger) Info() *zerolog.Event {
	return l.zlog.Info()
}

func (l *Logger) Debug() *zerolog.Event {
	return l.zlog.Debug()
}

func (l *Logger) Warn() *zerolog.Event {
	return l.zlog.Warn()
}

func (l *Logger) Error() *zerolog.Event {
	return l.zlog.Error()
}

// Component returns a sub-logger tagged with the component name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("component", name).Logger()}
}

// LogTransition records a workflow action on an edition.
func (l *Logger) LogTransition(documentID string, version int, action, from, to, actor string, err error) {
	event := l.zlog.Info()
	if err != nil {
		event = l.zlog.Warn().Err(err)
	}
	event.
		Str("component", "workflow").
		Str("document_id", documentID).
		Int("version", version).
		Str("action", action).
		Str("from", from).
		Str("to", to).
		Str("actor", actor).
		Msg("workflow transition")
}

// LogHTTPRequest logs a served request.
func (l *Logger) LogHTTPRequest(method, path string, status int, duration time.Duration) {
	event := l.zlog.Info()
	if status >= 500 {
		event = l.zlog.Error()
	}
	event.
		Str("component", "http").
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("duration_ms", duration).
		Msg("request completed")
}

// LogServerStart logs server startup
func (l *Logger) LogServerStart(port, database string) {
	l.zlog.Info().
		Str("event", "server_start").
		Str("port", port).
		Str("database", database).
		Msg("edition publisher starting")
}

func (l *Logger) LogServerShutdown() {
	l.zlog.Info().
		Str("event", "server_shutdown").
		Msg("edition publisher shutting down")
}
