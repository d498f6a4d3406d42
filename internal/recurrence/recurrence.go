// Package recurrence defines the recurrence-solver capability (§6.1): given
// an update, optionally produce a closed-form update and iterated cost
// valid from some validity bound onward. It also ships a reference solver
// for self-contained affine recurrences, since no example repository in
// the corpus solves recurrences symbolically and a real solver (as used by
// the original tool) is an external collaborator out of the core's scope.
package recurrence

import (
	"loat/internal/expr"
	"loat/internal/its"
	"loat/internal/variable"
)

// Result is what Solver.Iterate returns on success.
type Result struct {
	Update        its.ClosedForm
	Cost          expr.Expr
	ValidityBound uint64
}

// Solver is the injected collaborator. Absence of a usable closed form
// (Iterate returning ok=false) means "fall back to the non-termination
// path only" (§4.1 step 1).
type Solver interface {
	Iterate(update its.Update, cost expr.Expr, iter variable.Variable) (Result, bool)
}

// Affine is a reference Solver for updates where every variable's new
// value is an affine combination of variables that are themselves
// invariant under the update (i.e. not the identity recursion in general,
// only the single-step-self-referential-or-constant case). This covers
// the calculus's own test scenarios: x ↦ x+1, x ↦ x (fixpoint), x ↦ x+y
// with y held invariant, i ↦ i+1, and x ↦ 2x, for which it returns the
// closed form 2^n·x. That form has a variable exponent and is not
// polynomial, so callers must check IsPolynomial. An own coefficient other
// than 1 combined with a non-zero remainder is declined (see closedForm).
type Affine struct{}

func (Affine) Iterate(update its.Update, cost expr.Expr, iter variable.Variable) (Result, bool) {
	sub := make(expr.Substitution, len(update))

	for v, rhs := range update {
		lf, ok := expr.AsLinear(rhs)
		if !ok {
			return Result{}, false
		}
		a, hasOwn := lf.Coeffs[v]
		if !hasOwn {
			a = 0
		}
		// Every other referenced variable must be invariant (unchanged by
		// the update, whether absent from it entirely or mapped to
		// itself) for a closed form in terms of the *initial* values to
		// make sense.
		for other, c := range lf.Coeffs {
			if other == v || c == 0 {
				continue
			}
			if !isInvariant(update, other) {
				return Result{}, false
			}
		}
		closed, ok := closedForm(v, a, lf, iter)
		if !ok {
			return Result{}, false
		}
		sub[v] = closed
	}

	iteratedCost, ok := iterateCost(cost, sub, iter)
	if !ok {
		return Result{}, false
	}

	return Result{
		Update: its.ClosedForm{
			Subst:         sub,
			Iter:          iter,
			ValidityBound: 0,
		},
		Cost:          iteratedCost,
		ValidityBound: 0,
	}, true
}

// isInvariant reports whether the update leaves v unchanged: either v is
// absent from the map (the Update contract treats absence as identity) or
// it is mapped to exactly itself.
func isInvariant(update its.Update, v variable.Variable) bool {
	rhs, present := update[v]
	if !present {
		return true
	}
	vr, ok := rhs.(expr.Var)
	return ok && vr.V == v
}

// closedForm computes v(n) given v's update is a*v + (terms over invariant
// variables) + b, i.e. rhs = a*v + rest, rest affine in invariant vars:
//
//	a == 1: v(n) = v0 + n*rest0         (rest0 = rest evaluated at v=anything,
//	                                      since v cancels out of rest by
//	                                      construction — rest never
//	                                      references v)
//	a != 1: v(n) = a^n*v0 + rest0*(a^n-1)/(a-1)   when rest0 == 0 simplifies
//	              to v(n) = a^n * v0
//
// a^n is represented as Pow(a, n) with n the iteration variable, which
// IsPolynomial correctly reports as non-polynomial (a variable exponent),
// matching the calculus's scenario of x ↦ 2x producing a non-polynomial
// closed form that only the non-termination path can use.
func closedForm(v variable.Variable, a int64, lf expr.LinearForm, iter variable.Variable) (expr.Expr, bool) {
	rest := expr.LinearForm{Coeffs: map[variable.Variable]int64{}, Offset: lf.Offset}
	for other, c := range lf.Coeffs {
		if other != v {
			rest.Coeffs[other] = c
		}
	}
	restExpr := expr.FromLinear(rest)
	n := expr.NewVar(iter)
	v0 := expr.NewVar(v)

	if a == 1 {
		return expr.NewSum(v0, expr.NewProduct(n, restExpr)), true
	}
	if il, isLit := restExpr.(expr.IntLit); isLit && il.Value == 0 {
		return expr.NewProduct(expr.NewPow(expr.NewInt(a), n), v0), true
	}
	if a == 0 {
		// v(n) = rest0 for n >= 1, v0 for n == 0 — not representable as a
		// single closed form without a case split; decline rather than
		// produce an unsound approximation.
		return nil, false
	}
	// General geometric-with-drift case a^n*v0 + rest0*(a^n-1)/(a-1) is
	// only exact when (a^n-1) is divisible by (a-1) for every n, which
	// holds symbolically but is not expressible with this Expr grammar's
	// integer-only Pow exponent arithmetic; decline and let the caller
	// fall back to the non-termination path.
	return nil, false
}

func iterateCost(cost expr.Expr, closed expr.Substitution, iter variable.Variable) (expr.Expr, bool) {
	lf, ok := expr.AsLinear(cost)
	if !ok {
		return nil, false
	}
	// Sum_{k=0}^{n-1} cost(x(k)). The cost must be affine, and so must the
	// closed form of every variable it references.
	for v := range lf.Coeffs {
		cf, ok := closed[v]
		if !ok {
			continue
		}
		if _, isAffine := expr.AsLinear(cf); !isAffine {
			return nil, false
		}
	}
	n := expr.NewVar(iter)
	// accumulated(v, n) = n*v0 + delta(v)*n*(n-1)/2 needs a division the
	// Expr grammar lacks, so only costs whose referenced variables the
	// update leaves unchanged (closed form free of n) are accepted: each
	// term c*v accumulates to c*n*v and the offset b to b*n. A cost over a
	// variable that changes, e.g. x with closed form x+n, is declined.
	terms := make([]expr.Expr, 0, len(lf.Coeffs)+1)
	for v, c := range lf.Coeffs {
		closedV, ok := closed[v]
		if !ok {
			terms = append(terms, expr.NewProduct(expr.NewInt(c), expr.NewVar(v), n))
			continue
		}
		vlf, _ := expr.AsLinear(closedV)
		if deltaHasN(vlf, iter) {
			return nil, false
		}
		terms = append(terms, expr.NewProduct(expr.NewInt(c), n, expr.NewVar(v)))
	}
	if lf.Offset != 0 {
		terms = append(terms, expr.NewProduct(expr.NewInt(lf.Offset), n))
	}
	return expr.NewSum(terms...), true
}

func deltaHasN(lf expr.LinearForm, iter variable.Variable) bool {
	c, ok := lf.Coeffs[iter]
	return ok && c != 0
}
