package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"loat/internal/expr"
	"loat/internal/variable"
)

var x = variable.Variable{ID: 1, Name: "x"}

func TestNegateUsesDualOperator(t *testing.T) {
	r := New(expr.NewVar(x), GT, expr.NewInt(0))
	assert.Equal(t, LE, r.Negate().Op)
	assert.Equal(t, LT, New(expr.NewVar(x), GE, expr.NewInt(0)).Negate().Op)
	assert.Equal(t, NE, New(expr.NewVar(x), EQ, expr.NewInt(0)).Negate().Op)
}

func TestNegateIsInvolution(t *testing.T) {
	r := New(expr.NewVar(x), LE, expr.NewInt(3))
	assert.Equal(t, r, r.Negate().Negate())
}

func TestSubstituteAppliesToBothSides(t *testing.T) {
	y := variable.Variable{ID: 2, Name: "y"}
	r := New(expr.NewVar(x), GT, expr.NewInt(0))
	sub := expr.Substitution{x: expr.NewVar(y)}
	got := Substitute(r, sub)
	assert.True(t, expr.Equal(expr.NewVar(y), got.LHS))
}

func TestStrictNormalFormShiftsNonStrictByOne(t *testing.T) {
	ge := New(expr.NewVar(x), GE, expr.NewInt(0))
	e, ok := StrictNormalForm(ge)
	assert.True(t, ok)
	assert.True(t, expr.Equal(expr.NewSum(expr.NewVar(x), expr.NewInt(1)), e),
		"x >= 0 becomes x+1 > 0 over the integers")

	le := New(expr.NewVar(x), LE, expr.NewInt(5))
	e, ok = StrictNormalForm(le)
	assert.True(t, ok)
	assert.True(t, expr.Equal(expr.NewSum(expr.NewInt(5), expr.NewNeg(expr.NewVar(x)), expr.NewInt(1)), e))
}

func TestStrictNormalFormRejectsEqualityAndDisequality(t *testing.T) {
	_, ok := StrictNormalForm(New(expr.NewVar(x), EQ, expr.NewInt(0)))
	assert.False(t, ok)
	_, ok = StrictNormalForm(New(expr.NewVar(x), NE, expr.NewInt(0)))
	assert.False(t, ok)
}

func TestAsStrictGTPreservesEquality(t *testing.T) {
	eq := New(expr.NewVar(x), EQ, expr.NewInt(0))
	assert.Equal(t, eq, AsStrictGT(eq))
}

func TestKeyIgnoresSyntacticDifferencesThatCancel(t *testing.T) {
	a := New(expr.NewVar(x), GT, expr.NewInt(0))
	b := New(expr.NewSum(expr.NewVar(x), expr.NewInt(1), expr.NewInt(-1)), GT, expr.NewInt(0))
	assert.Equal(t, a.Key(), b.Key())
	assert.True(t, Equal(a, b))
}
