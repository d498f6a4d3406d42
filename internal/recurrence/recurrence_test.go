package recurrence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loat/internal/expr"
	"loat/internal/its"
	"loat/internal/variable"
)

var x = variable.Variable{ID: 1, Name: "x"}
var y = variable.Variable{ID: 2, Name: "y"}
var n = variable.Variable{ID: 3, Name: "n"}

func TestAffineIteratePureIncrement(t *testing.T) {
	update := its.Update{x: expr.NewSum(expr.NewVar(x), expr.NewInt(1))}
	res, ok := Affine{}.Iterate(update, expr.NewInt(1), n)
	require.True(t, ok)

	closed := res.Update.Subst[x]
	want := expr.NewSum(expr.NewVar(x), expr.NewProduct(expr.NewVar(n), expr.NewInt(1)))
	assert.True(t, expr.Equal(want, closed), "x(n) = x0 + n*1")
	assert.True(t, expr.Equal(expr.NewVar(n), res.Cost), "constant cost 1 accumulates to n")
}

func TestAffineIterateFixpoint(t *testing.T) {
	update := its.Update{x: expr.NewVar(x)}
	res, ok := Affine{}.Iterate(update, expr.NewInt(1), n)
	require.True(t, ok)
	assert.True(t, expr.Equal(expr.NewVar(x), res.Update.Subst[x]), "x(n) = x0 when the update is the identity")
}

func TestAffineIterateDependentVariable(t *testing.T) {
	// x += y, y held invariant.
	update := its.Update{x: expr.NewSum(expr.NewVar(x), expr.NewVar(y))}
	res, ok := Affine{}.Iterate(update, expr.NewInt(0), n)
	require.True(t, ok)
	want := expr.NewSum(expr.NewVar(x), expr.NewProduct(expr.NewVar(n), expr.NewVar(y)))
	assert.True(t, expr.Equal(want, res.Update.Subst[x]))
}

func TestAffineIterateGeometricUpdateHasNonPolynomialClosedForm(t *testing.T) {
	// x := 2*x is geometric: the closed form 2^n*x has a variable exponent,
	// so it is produced but is not polynomial.
	update := its.Update{x: expr.NewProduct(expr.NewInt(2), expr.NewVar(x))}
	res, ok := Affine{}.Iterate(update, expr.NewInt(1), n)
	require.True(t, ok)
	assert.False(t, expr.IsPolynomial(res.Update.Subst[x]))
}

func TestAffineIterateDeclinesWhenOtherVariableNotInvariant(t *testing.T) {
	// x := x + y, but y itself changes: the closed form for x in terms of
	// initial values alone is not expressible by this reference solver.
	update := its.Update{
		x: expr.NewSum(expr.NewVar(x), expr.NewVar(y)),
		y: expr.NewSum(expr.NewVar(y), expr.NewInt(1)),
	}
	_, ok := Affine{}.Iterate(update, expr.NewInt(0), n)
	assert.False(t, ok)
}
