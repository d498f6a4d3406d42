// Package itstest provides small builder helpers for constructing guards,
// updates and rules in tests without the verbosity of spelling out a
// variable.Variable and expr.Var literal every time.
package itstest

import (
	"loat/internal/boolexpr"
	"loat/internal/expr"
	"loat/internal/relation"
	"loat/internal/variable"
)

var nextID uint64 = 1000

// Var allocates a fresh program variable with the given display name. Tests
// that need the same variable reused across calls should store the result,
// not call Var twice with the same name.
func Var(name string) variable.Variable {
	nextID++
	return variable.Variable{ID: nextID, Name: name, Kind: variable.Program}
}

// Temp allocates a fresh temporary variable.
func Temp(name string) variable.Variable {
	nextID++
	return variable.Variable{ID: nextID, Name: name, Kind: variable.Temporary}
}

// E wraps v as an expr.Expr.
func E(v variable.Variable) expr.Expr { return expr.NewVar(v) }

// N builds an IntLit.
func N(n int64) expr.Expr { return expr.NewInt(n) }

// Rel builds a Lit(Relation) BoolExpr: Rel(x, relation.GT, N(0)) is "x > 0".
func Rel(lhs expr.Expr, op relation.Op, rhs expr.Expr) boolexpr.BoolExpr {
	return boolexpr.Lit(relation.New(lhs, op, rhs))
}
