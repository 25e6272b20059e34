package driver

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset = "\033[0m"
	ansiGray  = "\033[90m"
	ansiRed   = "\033[31m"
)

// Logger is a thin wrapper over log.Logger with a verbosity flag, the same
// idiom the teacher uses (no third-party structured logger appears
// anywhere in the pack): plain log.Printf / fmt.Fprintf(os.Stderr, ...).
// Output is colorized only when w is a terminal, matching how
// cmd/sentra/main.go branches its command-suggestion output on
// terminal-ness.
type Logger struct {
	out     *log.Logger
	verbose bool
	color   bool
}

// NewLogger returns a Logger writing to w, colorizing output only if w is
// an *os.File attached to a terminal.
func NewLogger(w io.Writer, verbose bool) *Logger {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Logger{out: log.New(w, "", 0), verbose: verbose, color: color}
}

// Phase logs the start of a pipeline phase (spec.md §2's eleven
// components), only when verbose logging is on.
func (l *Logger) Phase(module, phase string) {
	if !l.verbose {
		return
	}
	l.out.Print(l.paint(ansiGray, fmt.Sprintf("[%s] %s", module, phase)))
}

// Errorf logs a driver-level failure (not a diagnostics.Sink entry — this
// is for phase-boundary problems like a missing module file).
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.out.Print(l.paint(ansiRed, fmt.Sprintf(format, args...)))
}

func (l *Logger) paint(color, msg string) string {
	if !l.color {
		return msg
	}
	return color + msg + ansiReset
}
