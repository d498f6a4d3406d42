package certificate

import (
	"context"

	"loat/internal/boolexpr"
	"loat/internal/expr"
	"loat/internal/its"
	"loat/internal/relation"
	"loat/internal/smt"
	"loat/internal/variable"
)

// Options configures which proof rules the engine attempts. M is only ever
// meaningful when called from the QE accelerator (§4.7), which supplies
// IterVar/Bound/BoundedFormula; elsewhere it is left disabled.
type Options struct {
	EnableR bool
	EnableE bool
	EnableF bool
	EnableM bool

	// IterVar, Bound and BoundedFormula are Rule M's inputs: the
	// quantified iteration variable n, the bound β substituted for n in
	// the emitted formula, and the caller's per-variable bounds context.
	IterVar        *variable.Variable
	Bound          expr.Expr
	BoundedFormula boolexpr.BoolExpr
}

// Engine runs the certificate saturation loop of §4.2 over a guard and an
// update, parameterized by which rules are enabled.
type Engine struct {
	oracle smt.Oracle
	guard  boolexpr.BoolExpr
	update its.Update
	opts   Options
}

func NewEngine(oracle smt.Oracle, guard boolexpr.BoolExpr, update its.Update, opts Options) *Engine {
	return &Engine{oracle: oracle, guard: guard, update: update, opts: opts}
}

// Saturate tries every enabled proof rule against every literal of the
// guard and appends each successful derivation to the returned store.
// Rules are tried in the order R, E, F (M is independent, tried first
// since it never competes with the others for "already certified").
func (e *Engine) Saturate(ctx context.Context) *Store {
	store := NewStore()
	for _, lit := range boolexpr.Literals(e.guard) {
		if e.opts.EnableM {
			if entry, ok := e.tryMonotonicDecrease(ctx, lit); ok {
				store.Add(lit, entry)
			}
		}
		certified := false
		if e.opts.EnableR {
			if entry, ok := e.tryRecurrent(ctx, lit); ok {
				store.Add(lit, entry)
				certified = true
			}
		}
		if e.opts.EnableE {
			if entry, ok := e.tryEventualIncrease(ctx, lit); ok {
				store.Add(lit, entry)
				certified = true
			}
		}
		if e.opts.EnableF {
			if entry, ok := e.tryFixpoint(ctx, lit, certified); ok {
				store.Add(lit, entry)
			}
		}
	}
	return store
}

// proveUnsat asserts contextLits ++ extra in a fresh scope and, if that
// conjunction is unsatisfiable, returns the unsat core drawn from the same
// set. It is the one place every proof rule below goes through the
// oracle's push/assert/check/unsatCore/pop discipline, so no rule leaks
// assertions into another's scope (§5).
func proveUnsat(ctx context.Context, oracle smt.Oracle, contextLits []relation.Relation, extra ...relation.Relation) ([]relation.Relation, bool, error) {
	oracle.Push()
	defer oracle.Pop()
	assumptions := make([]boolexpr.BoolExpr, 0, len(contextLits)+len(extra))
	for _, l := range contextLits {
		assumptions = append(assumptions, boolexpr.Lit(l))
	}
	for _, l := range extra {
		assumptions = append(assumptions, boolexpr.Lit(l))
	}
	for _, a := range assumptions {
		oracle.Assert(a)
	}
	res, err := oracle.Check(ctx)
	if err != nil {
		return nil, false, err
	}
	if res != smt.Unsat {
		return nil, false, nil
	}
	coreBE, err := oracle.UnsatCore(assumptions)
	if err != nil {
		return nil, false, err
	}
	var core []relation.Relation
	for _, c := range coreBE {
		if r, ok := boolexpr.AsLit(c); ok {
			core = append(core, r)
		}
	}
	return core, true, nil
}

func filterOut(core []relation.Relation, exclude ...relation.Relation) []relation.Relation {
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[e.Key()] = true
	}
	var out []relation.Relation
	for _, c := range core {
		if !skip[c.Key()] {
			out = append(out, c)
		}
	}
	return out
}

// tryRecurrent is Rule R (§4.2): R certifies itself if R → R[x↦U(x)] is
// valid under the guard. The certificate is exact: once R becomes true it
// stays true for every later iteration.
func (e *Engine) tryRecurrent(ctx context.Context, r relation.Relation) (Entry, bool) {
	rPrime := relation.Substitute(r, e.update.AsSubstitution())
	notRPrime := rPrime.Negate()
	core, ok, err := proveUnsat(ctx, e.oracle, boolexpr.Literals(e.guard), r, notRPrime)
	if err != nil || !ok {
		return Entry{}, false
	}
	deps := filterOut(core, r, rPrime, notRPrime)
	return Entry{Rule: RuleRecurrent, Dependencies: deps, Formula: boolexpr.Lit(r), Exact: true}, true
}

// tryEventualIncrease is Rule E (§4.2): lhs(R) is non-decreasing along the
// update and its second difference is non-positive, so R ∧ inc is a sound
// (inexact) replacement.
func (e *Engine) tryEventualIncrease(ctx context.Context, r relation.Relation) (Entry, bool) {
	sub := e.update.AsSubstitution()
	ePrime := expr.Apply(r.LHS, sub)
	eDouble := expr.Apply(ePrime, sub)
	inc := relation.New(r.LHS, relation.LE, ePrime)
	dec := relation.New(ePrime, relation.GT, eDouble)
	notDec := dec.Negate()

	guardLits := boolexpr.Literals(e.guard)

	e.oracle.Push()
	for _, l := range guardLits {
		e.oracle.Assert(boolexpr.Lit(l))
	}
	e.oracle.Assert(boolexpr.Lit(inc))
	e.oracle.Assert(boolexpr.Lit(notDec))
	e.oracle.Assert(boolexpr.Lit(r))
	res, err := e.oracle.Check(ctx)
	e.oracle.Pop()
	if err != nil || res != smt.Sat {
		return Entry{}, false
	}

	core, ok, err := proveUnsat(ctx, e.oracle, guardLits, inc, dec)
	if err != nil || !ok {
		return Entry{}, false
	}
	deps := filterOut(core, inc, dec, notDec, r)
	formula := boolexpr.And(boolexpr.Lit(r), boolexpr.Lit(inc))
	return Entry{Rule: RuleEventualIncrease, Dependencies: deps, Formula: formula, Exact: false}, true
}

// tryFixpoint is Rule F (§4.2): the last resort for a literal no other
// rule certified — assume every variable R transitively depends on (via
// the update) stays fixed, and check that is at least consistent with the
// guard and R.
func (e *Engine) tryFixpoint(ctx context.Context, r relation.Relation, alreadyCertified bool) (Entry, bool) {
	if alreadyCertified {
		return Entry{}, false
	}
	vars := relevantVars(r, e.update)
	eqTerms := make([]boolexpr.BoolExpr, 0, len(vars))
	for _, v := range vars {
		rhs, ok := e.update[v]
		if !ok {
			rhs = expr.NewVar(v)
		}
		eqTerms = append(eqTerms, boolexpr.Lit(relation.New(expr.NewVar(v), relation.EQ, rhs)))
	}
	eqs := boolexpr.And(eqTerms...)
	formula := boolexpr.And(eqs, boolexpr.Lit(r))

	e.oracle.Push()
	for _, l := range boolexpr.Literals(e.guard) {
		e.oracle.Assert(boolexpr.Lit(l))
	}
	e.oracle.Assert(boolexpr.Lit(r))
	e.oracle.Assert(eqs)
	res, err := e.oracle.Check(ctx)
	e.oracle.Pop()
	if err != nil || res != smt.Sat {
		return Entry{}, false
	}
	return Entry{Rule: RuleFixpoint, Dependencies: nil, Formula: formula, Exact: false}, true
}

// tryMonotonicDecrease is Rule M (§4.2), used only by the QE accelerator:
// if the literal, pushed one step of the quantified iteration variable n,
// still implies itself, then evaluating it at the quantifier's bound β is
// a sound (indeed exact, since β is the extreme point of a monotone
// predicate) replacement.
func (e *Engine) tryMonotonicDecrease(ctx context.Context, r relation.Relation) (Entry, bool) {
	if e.opts.IterVar == nil {
		return Entry{}, false
	}
	n := *e.opts.IterVar
	succ := expr.Substitution{n: expr.NewSum(expr.NewVar(n), expr.NewInt(1))}
	rNext := relation.Substitute(r, succ)
	notR := r.Negate()

	contextLits := boolexpr.Literals(e.opts.BoundedFormula)
	core, ok, err := proveUnsat(ctx, e.oracle, contextLits, r, rNext, notR)
	if err != nil || !ok {
		return Entry{}, false
	}
	deps := filterOut(core, r, rNext, notR)
	beta := e.opts.Bound
	formula := boolexpr.Lit(relation.Substitute(r, expr.Substitution{n: beta}))
	return Entry{Rule: RuleMonotonicDecrease, Dependencies: deps, Formula: formula, Exact: true}, true
}

// relevantVars returns the variables transitively reachable from vars(r)
// by following the update's dependency edges (v depends on vars(update[v])).
func relevantVars(r relation.Relation, update its.Update) []variable.Variable {
	seen := variable.NewSet()
	queue := relation.Vars(r).Slice()
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		if seen.Has(v) {
			continue
		}
		seen.Add(v)
		rhs, ok := update[v]
		if !ok {
			continue
		}
		for nv := range expr.Vars(rhs) {
			if !seen.Has(nv) {
				queue = append(queue, nv)
			}
		}
	}
	out := seen.Slice()
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].ID > out[j].ID; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
