package replacement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loat/internal/boolexpr"
	"loat/internal/certificate"
	"loat/internal/diag"
	"loat/internal/expr"
	"loat/internal/relation"
	"loat/internal/variable"
)

var x = variable.Variable{ID: 1, Name: "x"}
var y = variable.Variable{ID: 2, Name: "y"}
var z = variable.Variable{ID: 3, Name: "z"}
var w = variable.Variable{ID: 4, Name: "w"}

func xGt0() relation.Relation { return relation.New(expr.NewVar(x), relation.GT, expr.NewInt(0)) }
func yGt0() relation.Relation { return relation.New(expr.NewVar(y), relation.GT, expr.NewInt(0)) }
func zGt0() relation.Relation { return relation.New(expr.NewVar(z), relation.GT, expr.NewInt(0)) }
func wGt0() relation.Relation { return relation.New(expr.NewVar(w), relation.GT, expr.NewInt(0)) }

func TestBuildPrefersExactEntryOverInexact(t *testing.T) {
	store := certificate.NewStore()
	store.Add(xGt0(), certificate.Entry{Rule: certificate.RuleFixpoint, Exact: false})
	store.Add(xGt0(), certificate.Entry{Rule: certificate.RuleRecurrent, Exact: true})

	m, ok := Build(boolexpr.Lit(xGt0()), store)
	require.True(t, ok)
	entry, ok := m.Lookup(xGt0())
	require.True(t, ok)
	assert.Equal(t, certificate.RuleRecurrent, entry.Rule, "the exact entry must win even though it was inserted second")
	assert.True(t, m.Exact)
}

func TestBuildConjunctiveGuardFailsOnMissingLiteral(t *testing.T) {
	store := certificate.NewStore()
	store.Add(xGt0(), certificate.Entry{Rule: certificate.RuleRecurrent, Exact: true})
	// y>0 has no entry at all.

	guard := boolexpr.And(boolexpr.Lit(xGt0()), boolexpr.Lit(yGt0()))
	_, ok := Build(guard, store)
	assert.False(t, ok, "a conjunctive guard needs every conjunct replaced")
}

func TestBuildDisjunctiveGuardToleratesMissingLiteral(t *testing.T) {
	store := certificate.NewStore()
	store.Add(xGt0(), certificate.Entry{Rule: certificate.RuleRecurrent, Exact: true})
	// y>0 has no entry at all.

	guard := boolexpr.Or(boolexpr.Lit(xGt0()), boolexpr.Lit(yGt0()))
	m, ok := Build(guard, store)
	require.True(t, ok, "dropping an uncertified disjunct is always sound")

	_, hasX := m.Lookup(xGt0())
	assert.True(t, hasX)
	_, hasY := m.Lookup(yGt0())
	assert.False(t, hasY, "y>0 was never selected, so it is left for the caller to rewrite away as False")
}

func TestBuildClosesDependencyChain(t *testing.T) {
	store := certificate.NewStore()
	// x>0 depends on y>0, which is itself certified independently.
	store.Add(xGt0(), certificate.Entry{
		Rule: certificate.RuleEventualIncrease, Exact: false, Dependencies: []relation.Relation{yGt0()},
	})
	store.Add(yGt0(), certificate.Entry{Rule: certificate.RuleRecurrent, Exact: true})

	m, ok := Build(boolexpr.Lit(xGt0()), store)
	require.True(t, ok)
	_, hasX := m.Lookup(xGt0())
	assert.True(t, hasX)
	_, hasY := m.Lookup(yGt0())
	assert.True(t, hasY, "the dependency must be closed into the map even though it's not itself a guard literal")
	assert.False(t, m.Exact, "an inexact entry anywhere in the selection makes the whole map inexact")
}

func TestBuildDetectsCyclicDependency(t *testing.T) {
	store := certificate.NewStore()
	// x>0 is the only guard literal; its dependency chain runs through
	// z>0 and w>0, which depend on each other and are never themselves
	// guard literals, so the cycle can only be caught by closeDependencies.
	store.Add(xGt0(), certificate.Entry{
		Rule: certificate.RuleRecurrent, Exact: true, Dependencies: []relation.Relation{zGt0()},
	})
	store.Add(zGt0(), certificate.Entry{
		Rule: certificate.RuleEventualIncrease, Exact: false, Dependencies: []relation.Relation{wGt0()},
	})
	store.Add(wGt0(), certificate.Entry{
		Rule: certificate.RuleEventualIncrease, Exact: false, Dependencies: []relation.Relation{zGt0()},
	})

	_, ok := Build(boolexpr.Lit(xGt0()), store)
	assert.False(t, ok, "z>0 depending on w>0 depending on z>0 is not well-founded")
}

func TestVerifyAcceptsAMapBuildProduced(t *testing.T) {
	store := certificate.NewStore()
	store.Add(xGt0(), certificate.Entry{
		Rule: certificate.RuleEventualIncrease, Exact: false, Dependencies: []relation.Relation{yGt0()},
	})
	store.Add(yGt0(), certificate.Entry{Rule: certificate.RuleRecurrent, Exact: true})

	m, ok := Build(boolexpr.Lit(xGt0()), store)
	require.True(t, ok)
	assert.NoError(t, Verify(m), "a map Build actually produced is always well-founded")
}

// Build's own closeDependencies can never hand back a map with a cycle or
// a dangling dependency, so these construct one directly to exercise
// Verify's independent check in isolation.

func TestVerifyRejectsADanglingDependency(t *testing.T) {
	m := &Map{
		selected: map[string]certificate.Entry{
			xGt0().Key(): {Rule: certificate.RuleRecurrent, Exact: true, Dependencies: []relation.Relation{yGt0()}},
		},
		literal: map[string]relation.Relation{xGt0().Key(): xGt0()},
	}

	err := Verify(m)
	require.Error(t, err)
	var fatal *diag.Fatal
	assert.ErrorAs(t, err, &fatal)
	assert.Contains(t, fatal.Message, "never resolved")
}

func TestVerifyRejectsACycleAmongSelectedEntries(t *testing.T) {
	m := &Map{
		selected: map[string]certificate.Entry{
			zGt0().Key(): {Rule: certificate.RuleRecurrent, Exact: true, Dependencies: []relation.Relation{wGt0()}},
			wGt0().Key(): {Rule: certificate.RuleRecurrent, Exact: true, Dependencies: []relation.Relation{zGt0()}},
		},
		literal: map[string]relation.Relation{
			zGt0().Key(): zGt0(),
			wGt0().Key(): wGt0(),
		},
	}

	err := Verify(m)
	require.Error(t, err)
	var fatal *diag.Fatal
	assert.ErrorAs(t, err, &fatal)
	assert.Contains(t, fatal.Message, "cycle")
}
