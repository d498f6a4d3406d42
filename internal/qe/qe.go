// Package qe implements the core's own quantifier elimination (§4.7): given
// a formula over a single bounded iteration variable n, eliminate n using
// the certificate engine's Rule M (monotonic decrease) together with the
// same Rules R, E (eventual increase) and F the non-termination search
// uses; there is no separate eventual-decrease rule. When the core engine
// cannot certify every literal, an externally supplied Oracle (§6.3) is
// asked instead.
package qe

import (
	"context"
	"fmt"

	"loat/internal/boolexpr"
	"loat/internal/certificate"
	"loat/internal/expr"
	"loat/internal/its"
	"loat/internal/relation"
	"loat/internal/replacement"
	"loat/internal/rewrite"
	"loat/internal/smt"
	"loat/internal/variable"
)

// ExternalOracle is the §6.3 fallback: an injected collaborator capable of
// full quantifier elimination, called by Eliminate whenever the core
// engine cannot certify every literal of the formula. Queries carry a
// single bounded variable (∀n. lo<=n<=hi → φ); a caller with no such tool
// can use NoExternalQE, and Eliminate then fails in those cases.
type ExternalOracle interface {
	Eliminate(ctx context.Context, bound Bound, formula boolexpr.BoolExpr) (boolexpr.BoolExpr, bool, error)
}

// NoExternalQE always refuses, for callers that never exercise §6.3.
type NoExternalQE struct{}

func (NoExternalQE) Eliminate(context.Context, Bound, boolexpr.BoolExpr) (boolexpr.BoolExpr, bool, error) {
	return nil, false, nil
}

// Bound is the quantifier's range: lo <= n <= hi (hi is the "β" the
// certificate engine's Rule M substitutes into a monotone-decreasing
// literal).
type Bound struct {
	Iter variable.Variable
	Lo   expr.Expr
	Hi   expr.Expr
}

// Result is a successful elimination: an n-free formula over the original
// variables, and whether it is exact (true) or merely a sound
// under-approximation (false, e.g. when any literal was only certified via
// Rule E/F rather than Rule M/R).
type Result struct {
	Formula boolexpr.BoolExpr
	Exact   bool
}

// Eliminate implements §4.7's qe(): it tries the core engine first (Rule M
// for monotone literals, plus R/E/F for anything that doesn't depend on n
// at all), and calls external only if replacement.Build fails on the
// core's certificates. A result handed back by external is never marked
// exact and is not re-checked here.
func Eliminate(ctx context.Context, oracle smt.Oracle, external ExternalOracle, bound Bound, formula boolexpr.BoolExpr, update its.Update) (Result, error) {
	n := expr.NewVar(bound.Iter)
	boundedFormula := boolexpr.And(
		boolexpr.Lit(relation.New(n, relation.GE, bound.Lo)),
		boolexpr.Lit(relation.New(n, relation.LE, bound.Hi)),
		formula,
	)

	engine := certificate.NewEngine(oracle, formula, update, certificate.Options{
		EnableR:        true,
		EnableE:        true,
		EnableF:        true,
		EnableM:        true,
		IterVar:        &bound.Iter,
		Bound:          bound.Hi,
		BoundedFormula: boundedFormula,
	})
	store := engine.Saturate(ctx)

	m, ok := replacement.Build(formula, store)
	if !ok {
		if external == nil {
			return Result{}, fmt.Errorf("qe: core engine could not certify every literal and no external oracle was supplied")
		}
		f, ok, err := external.Eliminate(ctx, bound, formula)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{}, fmt.Errorf("qe: neither the core engine nor the external oracle could eliminate %s", formula)
		}
		return Result{Formula: f, Exact: false}, nil
	}
	if err := replacement.Verify(m); err != nil {
		return Result{}, err
	}

	rewritten := rewrite.Guard(formula, m)
	// rewritten no longer mentions bound.Iter at all, so a bare
	// rewritten -> formula check would ask the impossible (formula still
	// quantifies freely over it); the bound itself must be supplied as a
	// hypothesis, since it's what licenses substituting the extremal
	// point for every n in [Lo,Hi] in the first place.
	hypothesis := boolexpr.And(
		rewritten,
		boolexpr.Lit(relation.New(n, relation.GE, bound.Lo)),
		boolexpr.Lit(relation.New(n, relation.LE, bound.Hi)),
	)
	ok, err := oracle.IsImplication(ctx, hypothesis, formula)
	if err != nil {
		return Result{}, fmt.Errorf("qe: soundness check failed: %w", err)
	}
	if !ok {
		return Result{}, fmt.Errorf("qe: eliminated formula %s is not sound w.r.t. %s over [%s,%s]", rewritten, formula, bound.Lo, bound.Hi)
	}
	if stillQuantified(rewritten, bound.Iter) {
		return Result{}, fmt.Errorf("qe: rewritten formula %s still mentions the quantified variable", rewritten)
	}
	return Result{Formula: rewritten, Exact: m.Exact}, nil
}

func stillQuantified(b boolexpr.BoolExpr, iter variable.Variable) bool {
	for _, lit := range boolexpr.Literals(b) {
		if expr.Vars(lit.LHS).Has(iter) || expr.Vars(lit.RHS).Has(iter) {
			return true
		}
	}
	return false
}
