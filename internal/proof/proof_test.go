package proof

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loat/internal/expr"
	"loat/internal/relation"
	"loat/internal/variable"
)

var x = variable.Variable{ID: 1, Name: "x"}

func xGt0() relation.Relation { return relation.New(expr.NewVar(x), relation.GT, expr.NewInt(0)) }

func TestLineAppendsAFreeFormEntry(t *testing.T) {
	var tr Trace
	tr.Line("trying rule %s on %s", "R", xGt0())

	entries := tr.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "trying rule R on x > 0", entries[0].Line)
	assert.Empty(t, entries[0].Rule)
}

func TestRuleAppendsAStructuredEntry(t *testing.T) {
	var tr Trace
	deps := []relation.Relation{xGt0()}
	tr.Rule("recurrent", xGt0(), "x > 0", deps)

	entries := tr.Entries()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "recurrent", e.Rule)
	require.NotNil(t, e.Literal)
	assert.Equal(t, xGt0(), *e.Literal)
	assert.Equal(t, "x > 0", e.EmittedFormula)
	assert.Equal(t, deps, e.Dependencies)
}

func TestAppendPreservesOrder(t *testing.T) {
	var a, b Trace
	a.Line("first")
	b.Line("second")
	b.Line("third")

	a.Append(&b)

	entries := a.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "first", entries[0].Line)
	assert.Equal(t, "second", entries[1].Line)
	assert.Equal(t, "third", entries[2].Line)
}

func TestAppendNilIsANoOp(t *testing.T) {
	var a Trace
	a.Line("only entry")
	a.Append(nil)

	assert.Len(t, a.Entries(), 1)
}

func TestEntriesReturnsACopyNotTheBackingSlice(t *testing.T) {
	var tr Trace
	tr.Line("one")

	entries := tr.Entries()
	entries[0].Line = "mutated"

	assert.Equal(t, "one", tr.Entries()[0].Line, "mutating a returned entry must not affect the trace")
}
