package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Logger writes diagnostics as prefixed lines, the way hook commands report
// warnings on stderr.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	debug bool
}

// NewStderr returns a Logger writing to stderr. Debug lines are dropped unless
// debug is set.
func NewStderr(debug bool) *Logger {
	return New(os.Stderr, debug)
}

// New returns a Logger writing to w.
func New(w io.Writer, debug bool) *Logger {
	return &Logger{out: w, debug: debug}
}

func (l *Logger) Debug(message string) {
	if !l.debug {
		return
	}
	l.write("debug", message)
}

func (l *Logger) Warn(message string) {
	l.write("warning", message)
}

func (l *Logger) Error(message string) {
	l.write("error", message)
}

func (l *Logger) write(level, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s: %s\n", level, message)
}

// NoOp discards everything.
type NoOp struct{}

func (NoOp) Debug(string) {}
func (NoOp) Warn(string)  {}
func (NoOp) Error(string) {}
