// Package logging is the ambient structured logger shared by the CLI, the
// HTTP server, and the MCP process. It wraps arbor rather than printing
// through fmt/log directly, the way the rest of the stack reaches for a
// pack library instead of a stdlib substitute.
package logging

import (
	"strings"

	"github.com/ternarybob/arbor"
)

// Level is a logger's minimum emitted severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Logger is the leveled, structured logger every package in this module
// takes by interface rather than depending on arbor directly.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	// With returns a child logger that always includes the given key/value
	// pairs, e.g. logger.With("execution_id", id).
	With(kv ...any) Logger
}

type arborLogger struct {
	log    arbor.ILogger
	fields []any
}

// New builds a Logger at the given level, writing to stderr.
func New(level string) Logger {
	l := arbor.Logger().WithLevel(parseLevel(level))
	return &arborLogger{log: l}
}

func parseLevel(level string) arbor.Level {
	switch Level(strings.ToLower(strings.TrimSpace(level))) {
	case LevelDebug:
		return arbor.DebugLevel
	case LevelWarn:
		return arbor.WarnLevel
	case LevelError:
		return arbor.ErrorLevel
	default:
		return arbor.InfoLevel
	}
}

func (l *arborLogger) With(kv ...any) Logger {
	return &arborLogger{log: l.log, fields: append(append([]any{}, l.fields...), kv...)}
}

func (l *arborLogger) Debug(msg string, kv ...any) { l.emit(l.log.Debug(), msg, kv) }
func (l *arborLogger) Info(msg string, kv ...any)  { l.emit(l.log.Info(), msg, kv) }
func (l *arborLogger) Warn(msg string, kv ...any)  { l.emit(l.log.Warn(), msg, kv) }
func (l *arborLogger) Error(msg string, kv ...any) { l.emit(l.log.Error(), msg, kv) }

func (l *arborLogger) emit(evt arbor.IEvent, msg string, kv []any) {
	all := append(append([]any{}, l.fields...), kv...)
	for i := 0; i+1 < len(all); i += 2 {
		key, ok := all[i].(string)
		if !ok {
			continue
		}
		evt = evt.Field(key, all[i+1])
	}
	evt.Msg(msg)
}

// Noop is a Logger that discards everything, used where no log sink is
// configured (e.g. engine.New's default, and repo.New / server.New when
// given a nil logger).
type Noop struct{}

func (Noop) Debug(string, ...any) {}
func (Noop) Info(string, ...any)  {}
func (Noop) Warn(string, ...any)  {}
func (Noop) Error(string, ...any) {}
func (n Noop) With(...any) Logger { return n }
