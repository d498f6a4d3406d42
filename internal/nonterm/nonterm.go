// Package nonterm implements the non-termination calculus (§4.5, §4.6): a
// witness that a self-loop rule, once entered, runs forever, built without
// ever needing a closed-form update.
package nonterm

import (
	"context"

	"loat/internal/boolexpr"
	"loat/internal/certificate"
	"loat/internal/its"
	"loat/internal/replacement"
	"loat/internal/rewrite"
	"loat/internal/smt"
)

// Witness is a proof that rule runs forever once its invariant holds: a
// satisfiable invariant (the guard with each literal replaced by its R/E/F
// certificate, §4.5) that implies the guard and is preserved by every
// iteration.
type Witness struct {
	Invariant boolexpr.BoolExpr
	// Exact mirrors the replacement map's own exact flag: true only if
	// every literal of the invariant was certified by an exact rule (R),
	// so the witness is not merely a sound under-approximation.
	Exact bool
}

// Find looks for a non-termination witness using only the invariant-style
// rules R, E and F (never M, which depends on a quantified iteration
// bound that a non-terminating loop by definition has none of). A non-nil
// error is always a *diag.Fatal: an internal invariant violation in the
// certificate/replacement bookkeeping rather than an ordinary failed
// attempt, which is instead reported as ok=false with a nil error.
func Find(ctx context.Context, oracle smt.Oracle, rule its.Rule) (*Witness, bool, error) {
	engine := certificate.NewEngine(oracle, rule.Guard, rule.Update, certificate.Options{
		EnableR: true,
		EnableE: true,
		EnableF: true,
	})
	store := engine.Saturate(ctx)

	m, ok := replacement.Build(rule.Guard, store)
	if !ok {
		return nil, false, nil
	}
	if err := replacement.Verify(m); err != nil {
		return nil, false, err
	}
	rewritten := rewrite.Guard(rule.Guard, m)
	if boolexpr.IsFalse(rewritten) {
		return nil, false, nil
	}
	if err := rewrite.Check(ctx, oracle, rule.Guard, rewritten); err != nil {
		return nil, false, nil
	}

	// The rewritten guard must also be satisfiable (a vacuous invariant
	// proves nothing) and preserved by the update, i.e. it is itself
	// recurrent: rewritten ∧ update ⊨ rewritten'.
	oracle.Push()
	oracle.Assert(rewritten)
	sat, err := oracle.Check(ctx)
	oracle.Pop()
	if err != nil || sat != smt.Sat {
		return nil, false, nil
	}

	rewrittenNext := boolexpr.SubstituteVars(rewritten, rule.Update.AsSubstitution())
	ok, err = oracle.IsImplication(ctx, rewritten, rewrittenNext)
	if err != nil || !ok {
		return nil, false, nil
	}

	return &Witness{Invariant: rewritten, Exact: m.Exact}, true, nil
}

// CheckUnrolled is the direct check of §4.6: rather than building an
// invariant, ask whether some state keeps the guard true on k consecutive
// iterations (the guard asserted for the initial state and after each of
// the next k-1 updates), without requiring a closed form. It returns true
// only when the oracle reports that conjunction satisfiable; an unsat or
// unknown answer gives false. A true result does not prove non-termination
// and produces no witness, so callers still need Find.
func CheckUnrolled(ctx context.Context, oracle smt.Oracle, rule its.Rule, k int) bool {
	if k <= 0 {
		return false
	}
	sub := rule.Update.AsSubstitution()
	oracle.Push()
	defer oracle.Pop()
	current := rule.Guard
	for i := 0; i < k; i++ {
		oracle.Assert(current)
		current = boolexpr.SubstituteVars(current, sub)
	}
	sat, err := oracle.Check(ctx)
	return err == nil && sat == smt.Sat
}
