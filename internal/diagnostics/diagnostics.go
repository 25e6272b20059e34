// Package diagnostics accumulates compiler errors, warnings, info and note
// messages tagged with a source location, the way every later phase of the
// pipeline reports problems without aborting mid-phase.
package diagnostics

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
)

// Severity is the label printed before a diagnostic's message.
type Severity string

const (
	Error   Severity = "error"
	Warning Severity = "warning"
	Info    Severity = "info"
	Note    Severity = "note"
)

// Location is a 1-based position in a source file.
type Location struct {
	Line   int
	Column int
}

// Diagnostic is a single recorded problem or observation.
type Diagnostic struct {
	Severity Severity
	Message  string
	Loc      Location
}

// Sink accumulates diagnostics for one compilation unit. Nothing it records
// is fatal by itself; callers check HasErrors() after each phase.
type Sink struct {
	diagnostics []Diagnostic
	errorCount  int
	warnCount   int
	suppress    bool
}

// New returns an empty sink.
func New() *Sink {
	return &Sink{}
}

// SuppressErrors toggles whether Error() calls are recorded. Speculative
// parsing attempts (e.g. backtracking on an ambiguous grammar rule) suppress
// errors while probing and restore reporting before committing to a parse.
func (s *Sink) SuppressErrors(flag bool) {
	s.suppress = flag
}

func (s *Sink) record(sev Severity, message string, line, column int) {
	if sev == Error && s.suppress {
		return
	}
	s.diagnostics = append(s.diagnostics, Diagnostic{
		Severity: sev,
		Message:  message,
		Loc:      Location{Line: line, Column: column},
	})
	switch sev {
	case Error:
		s.errorCount++
	case Warning:
		s.warnCount++
	}
}

// Error records an error diagnostic at the given source position.
func (s *Sink) Error(message string, line, column int) {
	s.record(Error, message, line, column)
}

// Errorf records a formatted error diagnostic.
func (s *Sink) Errorf(line, column int, format string, args ...interface{}) {
	s.record(Error, fmt.Sprintf(format, args...), line, column)
}

// Warning records a warning diagnostic.
func (s *Sink) Warning(message string, line, column int) {
	s.record(Warning, message, line, column)
}

// Info records an informational diagnostic.
func (s *Sink) Info(message string, line, column int) {
	s.record(Info, message, line, column)
}

// Note records a location-less note, usually appended right after an error
// to point at additional context (e.g. "previous declaration here").
func (s *Sink) Note(message string) {
	s.diagnostics = append(s.diagnostics, Diagnostic{Severity: Note, Message: message})
}

// HasErrors reports whether any error-severity diagnostic was recorded.
func (s *Sink) HasErrors() bool { return s.errorCount > 0 }

// ErrorCount returns the number of recorded errors.
func (s *Sink) ErrorCount() int { return s.errorCount }

// WarningCount returns the number of recorded warnings.
func (s *Sink) WarningCount() int { return s.warnCount }

// All returns every diagnostic recorded so far, in recording order.
func (s *Sink) All() []Diagnostic {
	return s.diagnostics
}

// Clear discards all recorded diagnostics and resets the counters.
func (s *Sink) Clear() {
	s.diagnostics = nil
	s.errorCount = 0
	s.warnCount = 0
}

// PrintAll renders every diagnostic to w in the format described by
// spec.md §6.6: a severity label and message, then a "--> file:line:col"
// location line, followed by a trailing summary when anything was printed.
func (s *Sink) PrintAll(w io.Writer, filename string) {
	for _, d := range s.diagnostics {
		fmt.Fprintf(w, "%s: %s\n", d.Severity, d.Message)
		if d.Loc.Line > 0 {
			fmt.Fprintf(w, "  --> %s:%d:%d\n", filename, d.Loc.Line, d.Loc.Column)
		}
	}
	if len(s.diagnostics) > 0 {
		fmt.Fprintf(w, "%s\n", s.summary())
	}
}

func (s *Sink) summary() string {
	var parts []string
	if s.errorCount > 0 {
		parts = append(parts, fmt.Sprintf("%s error%s", humanize.Comma(int64(s.errorCount)), plural(s.errorCount)))
	}
	if s.warnCount > 0 {
		parts = append(parts, fmt.Sprintf("%s warning%s", humanize.Comma(int64(s.warnCount)), plural(s.warnCount)))
	}
	if len(parts) == 0 {
		return "no diagnostics"
	}
	return strings.Join(parts, ", ")
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// SizeSummary renders a byte count for verbose sizeOf reporting
// (struct/array layout diagnostics), e.g. "24 B" or "1.2 kB".
func SizeSummary(bytes int) string {
	return humanize.Bytes(uint64(bytes))
}
