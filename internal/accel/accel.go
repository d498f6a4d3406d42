// Package accel implements the acceleration problem of §4.1: the top-level
// dispatcher that combines the non-termination calculus, QE-based
// non-termination, and QE-based acceleration into the ordered sequence of
// attempts accelerationproblem.cpp performs, accumulating every Result
// produced rather than stopping at the first.
package accel

import (
	"context"
	"errors"

	"loat/internal/boolexpr"
	"loat/internal/diag"
	"loat/internal/expr"
	"loat/internal/its"
	"loat/internal/nonterm"
	"loat/internal/proof"
	"loat/internal/qe"
	"loat/internal/relation"
	"loat/internal/smt"
	"loat/internal/varmgr"
	"loat/internal/variable"
)

// unrollDepth is how many concrete iterations §4.6's CheckUnrolled tries
// before the full invariant-style calculus runs; cheap enough to always
// attempt first, and a miss rules out nothing the full calculus wouldn't
// also reject.
const unrollDepth = 3

// attemptNonterm gates nonterm.Find behind §4.6's unrolled check: if the
// guard itself cannot survive unrollDepth concrete steps of the update,
// there is no invariant for nonterm.Find to find either, so the (more
// expensive) saturation loop is skipped entirely.
func attemptNonterm(ctx context.Context, oracle smt.Oracle, rule its.Rule, trace *proof.Trace) (*nonterm.Witness, bool, error) {
	if !nonterm.CheckUnrolled(ctx, oracle, rule, unrollDepth) {
		trace.Line("unrolled check ruled out non-termination after %d steps", unrollDepth)
		return nil, false, nil
	}
	return nonterm.Find(ctx, oracle, rule)
}

// NontermCost is the special "unbounded cost" symbol §4.5 attaches to a
// non-termination result instead of a real cost expression.
var NontermCost expr.Expr = expr.Var{V: variable.Variable{Name: "NontermSymbol"}}

// Result bundles one of compute()'s outputs.
type Result struct {
	NewGuard       boolexpr.BoolExpr
	Cost           expr.Expr
	Exact          bool
	Nonterminating bool
}

// Problem is the acceleration problem of §4.1: a self-loop rule plus an
// optional closed form for its update.
type Problem struct {
	Rule its.Rule

	// HasClosedForm, Closed, IteratedCost, Iter and ValidityBound come
	// from the recurrence solver (§6.1); HasClosedForm false means "no
	// closed form was found" (§4.1 step 1).
	HasClosedForm bool
	Closed        its.ClosedForm
	IteratedCost  expr.Expr
	Iter          variable.Variable
	ValidityBound uint64

	// ComplexityMode gates the cost > 0 obligation on non-termination
	// results (§4.5's original_source/ supplement, internal/config's
	// ComplexityMode flag).
	ComplexityMode bool
}

// Compute is AccelerationProblem.compute() (§4.1). mgr allocates the fresh
// bound variable `m` step 4 needs; external is the §6.3 fallback used only
// when the core's own qe() refuses. A non-nil error is always a
// *diag.Fatal surfaced from the certificate/replacement machinery (§7's
// "internal invariant violation"); callers should abort on it rather than
// treat it as an ordinary "no result found".
func (p *Problem) Compute(ctx context.Context, oracle smt.Oracle, external qe.ExternalOracle, mgr *varmgr.Manager) ([]Result, *proof.Trace, error) {
	trace := &proof.Trace{}
	var results []Result

	guardPoly := boolexpr.IsPolynomial(p.Rule.Guard)
	closedPoly := p.HasClosedForm && closedFormIsPolynomial(p.Closed)

	// Step 1.
	if !p.HasClosedForm || !closedPoly || !guardPoly {
		trace.Line("no polynomial closed form available; trying the non-termination calculus")
		w, ok, err := attemptNonterm(ctx, oracle, p.Rule, trace)
		if err != nil {
			return results, trace, err
		}
		if ok {
			trace.Line("non-termination calculus succeeded")
			if p.costObligationHolds(ctx, oracle, w.Invariant) {
				results = append(results, Result{NewGuard: w.Invariant, Cost: NontermCost, Exact: true, Nonterminating: true})
			}
		}
		if !p.HasClosedForm {
			return results, trace, nil
		}
	}

	// Step 2.
	gn := boolexpr.SubstituteVars(p.Rule.Guard, p.Closed.Subst)

	// Step 3: non-termination via QE. This reduces to exactly the same
	// calculus as step 1, just run over G(n) with a synthetic "update"
	// that advances n by one instead of over the rule's own guard/update.
	ntRule := its.Rule{
		Source: p.Rule.Source,
		Target: p.Rule.Target,
		Guard:  gn,
		Update: its.Update{p.Iter: expr.NewSum(expr.NewVar(p.Iter), expr.NewInt(1))},
	}
	w, ok, err := attemptNonterm(ctx, oracle, ntRule, trace)
	if err != nil {
		return results, trace, err
	}
	if ok {
		trace.Line("QE non-termination check succeeded")
		if p.costObligationHolds(ctx, oracle, w.Invariant) {
			results = append(results, Result{NewGuard: w.Invariant, Cost: NontermCost, Exact: w.Exact, Nonterminating: true})
			if w.Exact {
				return results, trace, nil
			}
		}
	}

	// Step 4: acceleration via QE.
	m := mgr.AddFreshTemporaryVariable("m")
	gm := boolexpr.SubstituteVars(p.Rule.Guard, substituteIter(p.Closed.Subst, p.Iter, m))
	bound := qe.Bound{
		Iter: m,
		Lo:   expr.NewInt(int64(p.ValidityBound)),
		Hi:   expr.NewSum(expr.NewVar(p.Iter), expr.NewInt(-1)),
	}
	elimUpdate := its.Update{m: expr.NewSum(expr.NewVar(m), expr.NewInt(1))}
	res, elimErr := qe.Eliminate(ctx, oracle, external, bound, gm, elimUpdate)
	if elimErr == nil && !boolexpr.IsFalse(res.Formula) {
		trace.Line("acceleration via QE succeeded")
		newGuard := boolexpr.And(res.Formula, boolexpr.Lit(relation.New(expr.NewVar(p.Iter), relation.GE, expr.NewInt(int64(p.ValidityBound)))))
		results = append(results, Result{NewGuard: newGuard, Cost: p.IteratedCost, Exact: res.Exact})
	} else if elimErr != nil {
		var fatal *diag.Fatal
		if errors.As(elimErr, &fatal) {
			return results, trace, elimErr
		}
		trace.Line("acceleration via QE declined: %v", elimErr)
	}

	return results, trace, nil
}

// costObligationHolds implements the original_source/ supplement to §4.5:
// in complexity mode, a non-termination result is only kept once cost > 0
// is proved under the rule's guard.
func (p *Problem) costObligationHolds(ctx context.Context, oracle smt.Oracle, invariant boolexpr.BoolExpr) bool {
	if !p.ComplexityMode {
		return true
	}
	positive := boolexpr.Lit(relation.New(p.Rule.Cost, relation.GT, expr.NewInt(0)))
	ok, err := oracle.IsImplication(ctx, p.Rule.Guard, positive)
	return err == nil && ok
}

func closedFormIsPolynomial(cf its.ClosedForm) bool {
	for _, e := range cf.Subst {
		if !expr.IsPolynomial(e) {
			return false
		}
	}
	return true
}

// substituteIter rewrites a closed-form substitution's own references to
// the original iteration variable (if any) to use m instead, so the same
// closed form can be evaluated at an intermediate point m rather than the
// final n.
func substituteIter(sub expr.Substitution, iter, m variable.Variable) expr.Substitution {
	rename := expr.Substitution{iter: expr.NewVar(m)}
	out := make(expr.Substitution, len(sub))
	for v, e := range sub {
		out[v] = expr.Apply(e, rename)
	}
	return out
}
