package qe

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

var i = variable.Variable{ID: 1, Name: "i"}
var nVar = variable.Variable{ID: 2, Name: "n"}
var bigN = variable.Variable{ID: 3, Name: "N"}
var k = variable.Variable{ID: 4, Name: "k"}

// Scenario 5: the per-step guard i+k < N, universally quantified over the
// intermediate index k ranging 0..n, eliminates to the k-free formula
// i+n < N via Rule M (the bound substituted for the quantified variable).
func TestEliminateSubstitutesBoundForQuantifiedVariable(t *testing.T) {
	formula := boolexpr.Lit(relation.New(
		expr.NewSum(expr.NewVar(i), expr.NewVar(k)), relation.LT, expr.NewVar(bigN)))
	bound := Bound{Iter: k, Lo: expr.NewInt(0), Hi: expr.NewVar(nVar)}

	res, err := Eliminate(context.Background(), linsmt.New(), NoExternalQE{}, bound, formula, its.Update{})
	require.NoError(t, err)
	assert.True(t, res.Exact)

	lit, isLit := boolexpr.AsLit(res.Formula)
	require.True(t, isLit)
	assert.False(t, expr.Vars(lit.LHS).Has(k), "the quantified variable must be gone from the result")
	want := relation.New(expr.NewSum(expr.NewVar(i), expr.NewVar(nVar)), relation.LT, expr.NewVar(bigN))
	assert.True(t, relation.Equal(want, lit))
}

func TestEliminateFailsOnNonAffineLiteralWithoutExternalOracle(t *testing.T) {
	formula := boolexpr.Lit(relation.New(
		expr.NewProduct(expr.NewVar(i), expr.NewVar(i)), relation.LT, expr.NewVar(bigN)))
	bound := Bound{Iter: k, Lo: expr.NewInt(0), Hi: expr.NewVar(nVar)}

	_, err := Eliminate(context.Background(), linsmt.New(), NoExternalQE{}, bound, formula, its.Update{})
	assert.Error(t, err, "no proof rule can certify a non-affine literal, and there is no external fallback")
}

type stubExternal struct {
	formula boolexpr.BoolExpr
}

func (s stubExternal) Eliminate(context.Context, Bound, boolexpr.BoolExpr) (boolexpr.BoolExpr, bool, error) {
	return s.formula, true, nil
}

func TestEliminateFallsBackToExternalOracle(t *testing.T) {
	formula := boolexpr.Lit(relation.New(
		expr.NewProduct(expr.NewVar(i), expr.NewVar(i)), relation.LT, expr.NewVar(bigN)))
	bound := Bound{Iter: k, Lo: expr.NewInt(0), Hi: expr.NewVar(nVar)}
	replaced := boolexpr.Lit(relation.New(expr.NewVar(i), relation.LT, expr.NewVar(bigN)))

	res, err := Eliminate(context.Background(), linsmt.New(), stubExternal{formula: replaced}, bound, formula, its.Update{})
	require.NoError(t, err)
	assert.False(t, res.Exact, "results handed back by the external oracle are never marked exact")
	assert.Equal(t, replaced, res.Formula)
}
