// Package proof defines the proof-trace output (§6.4): a reproducible
// transcript of free-form lines and structured rule applications, the only
// thing the core promises about its own reasoning.
package proof

import (
	"fmt"

	"loat/internal/relation"
)

// Entry is one record of a proof trace: either a free-form Line, or a
// structured rule application.
type Entry struct {
	Line string

	Rule           string
	Literal        *relation.Relation
	EmittedFormula string
	Dependencies   []relation.Relation
}

// Trace is an ordered, append-only sequence of Entry.
type Trace struct {
	entries []Entry
}

func (t *Trace) Line(format string, args ...any) {
	t.entries = append(t.entries, Entry{Line: fmt.Sprintf(format, args...)})
}

func (t *Trace) Rule(rule string, lit relation.Relation, formula string, deps []relation.Relation) {
	l := lit
	t.entries = append(t.entries, Entry{
		Rule:           rule,
		Literal:        &l,
		EmittedFormula: formula,
		Dependencies:   deps,
	})
}

func (t *Trace) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// Append splices another trace's entries onto t, preserving order.
func (t *Trace) Append(other *Trace) {
	if other == nil {
		return
	}
	t.entries = append(t.entries, other.entries...)
}
