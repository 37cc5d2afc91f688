// Package logging wraps go-kit/log with the key-value fields every role in
// this system binds once at construction time, replacing the bracketed
// "[node-id] message" string-prefix convention with structured fields.
package logging

import (
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Logger is the structured logger every role (and its Runner) holds. Scouts
// and commanders hold none; their owning Leader logs on their behalf.
type Logger struct {
	base log.Logger
}

// New builds a Logger writing logfmt to stderr, filtered to minLevel
// ("debug", "info", "warn", or "error"; anything else defaults to "info").
func New(minLevel string) Logger {
	base := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	base = log.With(base, "ts", log.DefaultTimestampUTC)
	filtered := level.NewFilter(base, levelOption(minLevel))
	return Logger{base: filtered}
}

func levelOption(s string) level.Option {
	switch s {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}

// With returns a Logger with additional key-value pairs bound to every
// subsequent log line, e.g. logger.With("role", "leader", "id", id).
func (l Logger) With(kv ...interface{}) Logger {
	return Logger{base: log.With(l.base, kv...)}
}

func (l Logger) Debugf(msg string, kv ...interface{}) { level.Debug(l.base).Log(append([]interface{}{"msg", msg}, kv...)...) }
func (l Logger) Infof(msg string, kv ...interface{})  { level.Info(l.base).Log(append([]interface{}{"msg", msg}, kv...)...) }
func (l Logger) Warnf(msg string, kv ...interface{})  { level.Warn(l.base).Log(append([]interface{}{"msg", msg}, kv...)...) }
func (l Logger) Errorf(msg string, kv ...interface{}) { level.Error(l.base).Log(append([]interface{}{"msg", msg}, kv...)...) }

// Noop returns a Logger that discards everything, for tests that don't
// care about log output.
func Noop() Logger {
	return Logger{base: log.NewNopLogger()}
}
