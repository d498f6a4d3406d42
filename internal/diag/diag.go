// Package diag implements diagnostics and error reporting for the
// acceleration calculus: a structured Diagnostic plus a Reporter that
// renders a Rust-like transcript with fatih/color. The calculus itself does
// not produce Diagnostics: its non-fatal failures end up as proof-trace
// lines, and the front ends build Diagnostics for each rule's outcome. §7's
// one fatal kind (internal invariant violation) is a dedicated Fatal error
// a caller chooses to abort on.
package diag

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Level is a diagnostic's severity.
type Level string

const (
	Error Level = "error"
	Warn  Level = "warning"
	Info  Level = "info"
	Hint  Level = "hint"
	Note  Level = "note"
)

// Position locates a diagnostic in a parsed rule file (filename:line:col),
// used by cmd/loat-cli; the core calculus itself never
// produces one since it reasons over relations, not source text.
type Position struct {
	Filename string
	Line     int
	Column   int
}

// Diagnostic is one reportable event about a rule: a builder error, no
// result found, a non-termination result, an accelerated guard, or a
// Fatal. Parse errors are printed by grammar.ReportParseError instead.
type Diagnostic struct {
	Level   Level
	Code    string // e.g. "W0001"
	Message string
	Pos     Position
	Notes   []string
}

// Fatal wraps §7's "internal invariant violation". replacement.Verify is
// the only place that raises it: for a dependency that was never resolved
// into the map, or for a dependency cycle. An empty unsat core is not
// checked for and does not raise it. It is never raised for an ordinary
// failed acceleration attempt
// (that is simply "no result"), only for a contract the calculus itself
// is supposed to guarantee.
type Fatal struct {
	Message string
}

func (f *Fatal) Error() string {
	return fmt.Sprintf("internal invariant violation: %s", f.Message)
}

// Reporter renders Diagnostics against a DSL source file, a Rust-like
// "level[code]: message" header followed by a "--> file:L:C" location and
// one line of source context.
type Reporter struct {
	filename string
	lines    []string
}

func NewReporter(filename, source string) *Reporter {
	return &Reporter{filename: filename, lines: strings.Split(source, "\n")}
}

// Format renders d as a "level[code]: message" header, a "--> file:L:C"
// location line, one line of source context, and any notes.
func (r *Reporter) Format(d Diagnostic) string {
	var out strings.Builder

	levelColor := r.colorFor(d.Level)
	dim := color.New(color.Faint).SprintFunc()

	if d.Code != "" {
		fmt.Fprintf(&out, "%s[%s]: %s\n", levelColor(string(d.Level)), d.Code, d.Message)
	} else {
		fmt.Fprintf(&out, "%s: %s\n", levelColor(string(d.Level)), d.Message)
	}

	if d.Pos.Line > 0 {
		width := lineNumberWidth(d.Pos.Line)
		indent := strings.Repeat(" ", width)
		fmt.Fprintf(&out, "%s %s %s:%d:%d\n", indent, dim("-->"), r.filename, d.Pos.Line, d.Pos.Column)
		fmt.Fprintf(&out, "%s %s\n", indent, dim("│"))
		if d.Pos.Line <= len(r.lines) {
			fmt.Fprintf(&out, "%s %s %s\n", dim(fmt.Sprintf("%*d", width, d.Pos.Line)), dim("│"), r.lines[d.Pos.Line-1])
		}
	}

	for _, note := range d.Notes {
		noteColor := color.New(color.FgBlue).SprintFunc()
		fmt.Fprintf(&out, "%s %s\n", noteColor("note:"), note)
	}

	out.WriteString("\n")
	return out.String()
}

func (r *Reporter) colorFor(level Level) func(...interface{}) string {
	switch level {
	case Error:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	case Warn:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	case Info:
		return color.New(color.FgCyan, color.Bold).SprintFunc()
	case Hint:
		return color.New(color.FgGreen, color.Bold).SprintFunc()
	case Note:
		return color.New(color.FgBlue, color.Bold).SprintFunc()
	default:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	}
}

func lineNumberWidth(line int) int {
	width := len(fmt.Sprintf("%d", line))
	if width < 3 {
		width = 3
	}
	return width
}
