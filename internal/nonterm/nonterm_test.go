package nonterm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loat/internal/boolexpr"
	"loat/internal/expr"
	"loat/internal/its"
	"loat/internal/relation"
	"loat/internal/smt/linsmt"
	"loat/internal/variable"
)

var x = variable.Variable{ID: 1, Name: "x"}

// Scenario 3 (fixpoint): guard x=0, update x <- x. The identity update
// trivially preserves the guard forever.
func TestFindFixpointWitness(t *testing.T) {
	rule := its.Rule{
		Guard:  boolexpr.Lit(relation.New(expr.NewVar(x), relation.EQ, expr.NewInt(0))),
		Update: its.Update{x: expr.NewVar(x)},
	}
	w, ok, err := Find(context.Background(), linsmt.New(), rule)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, w.Exact)
	lit, isLit := boolexpr.AsLit(w.Invariant)
	require.True(t, isLit)
	assert.Equal(t, relation.EQ, lit.Op)
}

// Scenario 4 (geometric growth): guard x>0, update x <- 2x. The closed form
// 2^n*x is not polynomial, and Find needs none: Rule R certifies x>0 as an
// exact invariant, since doubling a positive number stays positive.
func TestFindNonAffineGeometricGrowthWitness(t *testing.T) {
	rule := its.Rule{
		Guard:  boolexpr.Lit(relation.New(expr.NewVar(x), relation.GT, expr.NewInt(0))),
		Update: its.Update{x: expr.NewProduct(expr.NewInt(2), expr.NewVar(x))},
	}
	w, ok, err := Find(context.Background(), linsmt.New(), rule)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, w.Exact)
	lit, isLit := boolexpr.AsLit(w.Invariant)
	require.True(t, isLit)
	assert.Equal(t, relation.GT, lit.Op)
}

func TestFindFailsWhenGuardIsNotInvariant(t *testing.T) {
	// x>0, update x <- x-1: x eventually leaves the guard, no invariant
	// subset of a single-literal guard can be built.
	rule := its.Rule{
		Guard:  boolexpr.Lit(relation.New(expr.NewVar(x), relation.GT, expr.NewInt(0))),
		Update: its.Update{x: expr.NewSum(expr.NewVar(x), expr.NewInt(-1))},
	}
	_, ok, err := Find(context.Background(), linsmt.New(), rule)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckUnrolledRejectsNonPositiveBound(t *testing.T) {
	rule := its.Rule{
		Guard:  boolexpr.Lit(relation.New(expr.NewVar(x), relation.GT, expr.NewInt(0))),
		Update: its.Update{x: expr.NewVar(x)},
	}
	assert.False(t, CheckUnrolled(context.Background(), linsmt.New(), rule, 0))
}

func TestCheckUnrolledAcceptsSustainedGuard(t *testing.T) {
	rule := its.Rule{
		Guard:  boolexpr.Lit(relation.New(expr.NewVar(x), relation.GT, expr.NewInt(0))),
		Update: its.Update{x: expr.NewSum(expr.NewVar(x), expr.NewInt(1))},
	}
	assert.True(t, CheckUnrolled(context.Background(), linsmt.New(), rule, 3))
}

func TestCheckUnrolledRejectsGuardThatCannotSurviveKSteps(t *testing.T) {
	// x>0 ∧ x<2, update x <- x+1: the three unrolled copies of the guard
	// require x>0 and x<2, then x+1<2 (x<1), then x+2<2 (x<0), and x<0
	// contradicts x>0.
	rule := its.Rule{
		Guard: boolexpr.And(
			boolexpr.Lit(relation.New(expr.NewVar(x), relation.GT, expr.NewInt(0))),
			boolexpr.Lit(relation.New(expr.NewVar(x), relation.LT, expr.NewInt(2))),
		),
		Update: its.Update{x: expr.NewSum(expr.NewVar(x), expr.NewInt(1))},
	}
	assert.False(t, CheckUnrolled(context.Background(), linsmt.New(), rule, 3))
}
