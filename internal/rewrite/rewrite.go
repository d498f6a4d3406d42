// Package rewrite implements the guard rewriter of §4.4: apply a
// replacement map pointwise over a guard's literals, preserving its
// boolean skeleton, then SMT-check the result against the original.
package rewrite

import (
	"context"
	"fmt"

	"loat/internal/boolexpr"
	"loat/internal/replacement"
	"loat/internal/smt"
)

// Guard rewrites guard using m: every literal with a selected entry is
// replaced by that entry's formula; every literal of a disjunctive guard
// with no entry is dropped to False (Build already rejected that case for
// conjunctive guards). The boolean skeleton (And/Or nesting) is preserved.
func Guard(guard boolexpr.BoolExpr, m *replacement.Map) boolexpr.BoolExpr {
	repl := map[string]boolexpr.BoolExpr{}
	for _, lit := range boolexpr.Literals(guard) {
		if e, ok := m.Lookup(lit); ok {
			repl[lit.Key()] = e.Formula
		} else {
			repl[lit.Key()] = boolexpr.False
		}
	}
	return boolexpr.SubstituteLit(guard, repl)
}

// Check verifies that the rewritten guard does not admit any state the
// original guard forbids, i.e. rewritten → original is valid. A failing
// check means the replacement map produced an unsound guard and the
// acceleration must be rejected rather than returned to the caller (§5:
// unsoundness is never an acceptable output).
func Check(ctx context.Context, oracle smt.Oracle, original, rewritten boolexpr.BoolExpr) error {
	ok, err := oracle.IsImplication(ctx, rewritten, original)
	if err != nil {
		return fmt.Errorf("rewrite: implication check failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("rewrite: accelerated guard %s is not sound w.r.t. original guard %s", rewritten, original)
	}
	return nil
}
