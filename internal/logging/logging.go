// Package logging provides the leveled notifier used across the note
// engine. It deliberately stays small: fixed levels, no sink registry,
// no structured fields — the "logging infrastructure" subsystem is an
// explicit non-goal, this is just the ambient plumbing every component
// needs to report what it did.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is implemented by every sink. Components depend on this
// interface, never on a concrete logger, so tests can swap in a
// recording stub.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type writerLogger struct {
	mu    sync.Mutex
	out   io.Writer
	debug bool
}

// NewStderr returns a Logger that writes to stderr. Debug lines are
// suppressed unless debug is true.
func NewStderr(debug bool) Logger {
	return &writerLogger{out: os.Stderr, debug: debug}
}

// NewFile returns a Logger that writes to a rotating log file at path,
// using lumberjack for rotation (10 MiB per file, 5 backups kept).
func NewFile(path string, debug bool) Logger {
	return &writerLogger{
		out: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     28,
		},
		debug: debug,
	}
}

func (l *writerLogger) line(prefix, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, prefix+format+"\n", args...)
}

func (l *writerLogger) Debugf(format string, args ...interface{}) {
	if l.debug {
		l.line("debug: ", format, args...)
	}
}

func (l *writerLogger) Infof(format string, args ...interface{})  { l.line("", format, args...) }
func (l *writerLogger) Warnf(format string, args ...interface{})  { l.line("warning: ", format, args...) }
func (l *writerLogger) Errorf(format string, args ...interface{}) { l.line("error: ", format, args...) }

// Noop is a Logger that discards everything, used as the zero-value
// default so callers never need a nil check.
var Noop Logger = noopLogger{}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{}) {}
func (noopLogger) Infof(string, ...interface{})  {}
func (noopLogger) Warnf(string, ...interface{})  {}
func (noopLogger) Errorf(string, ...interface{}) {}
