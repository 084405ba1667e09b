// Package stdlogger adapts the global zerolog logger to printf style logger interfaces,
// such as the gorm logger writer.
package stdlogger

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger writes printf style messages to the global zerolog logger.
type Logger struct {
	component string
	level     zerolog.Level
}

// Option configures a Logger.
type Option func(*Logger)

// WithComponent adds a component field to every message.
func WithComponent(name string) Option {
	return func(l *Logger) { l.component = name }
}

// WithPrintLevel sets the level Printf writes at. Default is debug.
func WithPrintLevel(level zerolog.Level) Option {
	return func(l *Logger) { l.level = level }
}

// New returns a Logger bound to the global zerolog logger.
func New(opts ...Option) *Logger {
	l := &Logger{level: zerolog.DebugLevel}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

func (l *Logger) write(level zerolog.Level, format string, args ...any) {
	event := log.WithLevel(level)
	if l.component != "" {
		event = event.Str("component", l.component)
	}

	event.Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Printf implements gorm's logger.Writer.
func (l *Logger) Printf(format string, args ...any) {
	l.write(l.level, format, args...)
}

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, args ...any) {
	l.write(zerolog.DebugLevel, format, args...)
}

// Infof logs at info level.
func (l *Logger) Infof(format string, args ...any) {
	l.write(zerolog.InfoLevel, format, args...)
}

// Warningf logs at warn level.
func (l *Logger) Warningf(format string, args ...any) {
	l.write(zerolog.WarnLevel, format, args...)
}

// Errorf logs at error level.
func (l *Logger) Errorf(format string, args ...any) {
	l.write(zerolog.ErrorLevel, format, args...)
}
