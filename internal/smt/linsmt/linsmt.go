// Package linsmt is a reference Smt oracle for the linear-integer-
// arithmetic fragment: conjunctions/disjunctions of affine relations,
// decided over the rationals by Fourier-Motzkin elimination. It exists
// because no example repository in the corpus ships a constraint solver;
// wiring a real external SMT process is explicitly out of the core's
// scope (spec §1/§6.2), so this package is the minimal, self-contained
// decision procedure needed to exercise and test the calculus end to end.
// It is not a production SMT replacement: non-affine literals make Check
// report Unknown rather than a wrong answer, and disequalities are
// special-cased via two affine case splits.
package linsmt

import (
	"context"
	"math/big"

	"loat/internal/boolexpr"
	"loat/internal/expr"
	"loat/internal/relation"
	"loat/internal/smt"
	"loat/internal/variable"
)

// Solver is a push/pop-scoped Smt oracle over conjunctions/disjunctions of
// affine relations.
type Solver struct {
	scopes    [][]boolexpr.BoolExpr
	lastModel expr.Substitution
}

func New() *Solver {
	return &Solver{scopes: [][]boolexpr.BoolExpr{nil}}
}

func (s *Solver) Push() { s.scopes = append(s.scopes, nil) }

func (s *Solver) Pop() {
	if len(s.scopes) > 1 {
		s.scopes = s.scopes[:len(s.scopes)-1]
	}
}

func (s *Solver) Assert(f boolexpr.BoolExpr) {
	top := len(s.scopes) - 1
	s.scopes[top] = append(s.scopes[top], f)
}

func (s *Solver) combined() boolexpr.BoolExpr {
	var all []boolexpr.BoolExpr
	for _, scope := range s.scopes {
		all = append(all, scope...)
	}
	return boolexpr.And(all...)
}

func (s *Solver) Check(_ context.Context) (smt.Result, error) {
	sat, model, ok := decide(s.combined())
	if !ok {
		return smt.Unknown, nil
	}
	if sat {
		s.lastModel = model
		return smt.Sat, nil
	}
	return smt.Unsat, nil
}

func (s *Solver) Model() (expr.Substitution, error) {
	return s.lastModel, nil
}

// UnsatCore returns a minimal subset of assumptions whose conjunction
// (together with the currently asserted scopes) is unsatisfiable, found by
// the standard greedy deletion algorithm: for each assumption, try
// removing it and re-checking; keep it only if the remainder stays unsat.
// Quadratic in the number of assumptions, which is fine for the small
// literal sets the certificate engine works over.
func (s *Solver) UnsatCore(assumptions []boolexpr.BoolExpr) ([]boolexpr.BoolExpr, error) {
	remaining := append([]boolexpr.BoolExpr(nil), assumptions...)
	base := s.combined()
	isUnsat := func(subset []boolexpr.BoolExpr) bool {
		f := boolexpr.And(append([]boolexpr.BoolExpr{base}, subset...)...)
		sat, _, ok := decide(f)
		return ok && !sat
	}
	if !isUnsat(remaining) {
		return remaining, nil
	}
	for i := 0; i < len(remaining); {
		trial := append(append([]boolexpr.BoolExpr{}, remaining[:i]...), remaining[i+1:]...)
		if isUnsat(trial) {
			remaining = trial
			continue
		}
		i++
	}
	return remaining, nil
}

func (s *Solver) IsImplication(_ context.Context, lhs, rhs boolexpr.BoolExpr) (bool, error) {
	negRhs, ok := negate(rhs)
	if !ok {
		return false, nil
	}
	sat, _, decided := decide(boolexpr.And(s.combined(), lhs, negRhs))
	if !decided {
		return false, nil
	}
	return !sat, nil
}

// negate builds the logical negation of a restricted (And/Or/Lit/True/
// False) formula by De Morgan + Relation.Negate, since BoolExpr has no Not
// node.
func negate(b boolexpr.BoolExpr) (boolexpr.BoolExpr, bool) {
	if boolexpr.IsTrue(b) {
		return boolexpr.False, true
	}
	if boolexpr.IsFalse(b) {
		return boolexpr.True, true
	}
	if r, ok := boolexpr.AsLit(b); ok {
		return boolexpr.Lit(r.Negate()), true
	}
	if terms, ok := boolexpr.AsAnd(b); ok {
		neg := make([]boolexpr.BoolExpr, len(terms))
		for i, t := range terms {
			n, ok := negate(t)
			if !ok {
				return nil, false
			}
			neg[i] = n
		}
		return boolexpr.Or(neg...), true
	}
	if terms, ok := boolexpr.AsOr(b); ok {
		neg := make([]boolexpr.BoolExpr, len(terms))
		for i, t := range terms {
			n, ok := negate(t)
			if !ok {
				return nil, false
			}
			neg[i] = n
		}
		return boolexpr.And(neg...), true
	}
	return nil, false
}

// decide expands b to disjunctive normal form and checks each conjunction
// of relations for satisfiability over the rationals via Fourier-Motzkin
// elimination. ok is false if any literal anywhere is non-affine.
func decide(b boolexpr.BoolExpr) (sat bool, model expr.Substitution, ok bool) {
	conjuncts, ok := toDNF(b)
	if !ok {
		return false, nil, false
	}
	for _, lits := range conjuncts {
		if m, sat := satConjunction(lits); sat {
			return true, m, true
		}
	}
	return false, nil, true
}

func toDNF(b boolexpr.BoolExpr) ([][]relation.Relation, bool) {
	if boolexpr.IsTrue(b) {
		return [][]relation.Relation{{}}, true
	}
	if boolexpr.IsFalse(b) {
		return nil, true
	}
	if r, ok := boolexpr.AsLit(b); ok {
		if !relation.IsPolynomial(r) {
			return nil, false
		}
		if _, ok := expr.AsLinear(expr.NewSum(r.LHS, expr.NewNeg(r.RHS))); !ok {
			return nil, false
		}
		return [][]relation.Relation{{r}}, true
	}
	if terms, ok := boolexpr.AsOr(b); ok {
		var out [][]relation.Relation
		for _, t := range terms {
			sub, ok := toDNF(t)
			if !ok {
				return nil, false
			}
			out = append(out, sub...)
		}
		return out, true
	}
	if terms, ok := boolexpr.AsAnd(b); ok {
		combined := [][]relation.Relation{{}}
		for _, t := range terms {
			sub, ok := toDNF(t)
			if !ok {
				return nil, false
			}
			var next [][]relation.Relation
			for _, c := range combined {
				for _, s := range sub {
					merged := append(append([]relation.Relation{}, c...), s...)
					next = append(next, merged)
				}
			}
			combined = next
		}
		return combined, true
	}
	return nil, false
}

// satConjunction decides satisfiability of a conjunction of (affine)
// relations. Equalities are split into <= and >=; disequalities are
// case-split into < and > and only need one case to be satisfiable;
// everything else reduces to Fourier-Motzkin elimination of a system of
// non-strict and strict linear inequalities over the rationals.
func satConjunction(lits []relation.Relation) (expr.Substitution, bool) {
	var neqs []relation.Relation
	base := []ineq{}
	for _, r := range lits {
		switch r.Op {
		case relation.NE:
			neqs = append(neqs, r)
			continue
		case relation.EQ:
			base = append(base, toIneq(relation.New(r.LHS, relation.GE, r.RHS)))
			base = append(base, toIneq(relation.New(r.LHS, relation.LE, r.RHS)))
		default:
			base = append(base, toIneq(r))
		}
	}
	return splitDisequalities(base, neqs)
}

// splitDisequalities tries every combination of resolving each `a != b`
// disequality as `a < b` or `a > b`, returning the first satisfiable
// combination. With k disequalities this is 2^k; the certificate engine
// only ever asks about small literal sets so this stays cheap in practice.
func splitDisequalities(base []ineq, neqs []relation.Relation) (expr.Substitution, bool) {
	if len(neqs) == 0 {
		return solveFM(base)
	}
	head, rest := neqs[0], neqs[1:]
	lt := append(append([]ineq{}, base...), toIneq(relation.New(head.LHS, relation.LT, head.RHS)))
	if m, ok := splitDisequalities(lt, rest); ok {
		return m, true
	}
	gt := append(append([]ineq{}, base...), toIneq(relation.New(head.LHS, relation.GT, head.RHS)))
	return splitDisequalities(gt, rest)
}

// ineq is c1*v1 + ... + cn*vn + offset `cmp` 0, cmp in {>,>=}. Every
// relation is normalized to this shape (>= for non-strict, > for strict)
// after moving everything to the left-hand side.
type ineq struct {
	coeffs map[variable.Variable]*big.Rat
	offset *big.Rat
	strict bool
}

func toIneq(r relation.Relation) ineq {
	lf, ok := expr.AsLinear(expr.NewSum(r.LHS, expr.NewNeg(r.RHS)))
	if !ok {
		// Unreachable: callers only build ineq from literals already
		// confirmed affine by toDNF.
		lf = expr.LinearForm{Coeffs: map[variable.Variable]int64{}}
	}
	strict := r.Op == relation.GT || r.Op == relation.LT
	flip := r.Op == relation.LT || r.Op == relation.LE
	coeffs := make(map[variable.Variable]*big.Rat, len(lf.Coeffs))
	for v, c := range lf.Coeffs {
		rc := big.NewRat(c, 1)
		if flip {
			rc.Neg(rc)
		}
		coeffs[v] = rc
	}
	offset := big.NewRat(lf.Offset, 1)
	if flip {
		offset.Neg(offset)
	}
	return ineq{coeffs: coeffs, offset: offset, strict: strict}
}

// solveFM decides satisfiability of a conjunction of `ineq`s over the
// rationals by eliminating one variable at a time (classic Fourier-
// Motzkin), then back-substitutes a witness value per eliminated variable.
// The decision is made over the rationals even though the calculus's
// variables are conceptually integers, and the witness values are rounded
// to integers that need not satisfy every constraint: this reference
// oracle decides sat/unsat and drives unsat cores; it does not hand back
// integer-exact models.
func solveFM(cs []ineq) (expr.Substitution, bool) {
	vars := collectVars(cs)
	if len(vars) == 0 {
		for _, c := range cs {
			if !holds(c.offset, c.strict) {
				return nil, false
			}
		}
		return expr.Substitution{}, true
	}
	v := vars[0]
	var lowers, uppers, rest []ineq
	for _, c := range cs {
		coef, has := c.coeffs[v]
		if !has || coef.Sign() == 0 {
			rest = append(rest, dropVar(c, v))
			continue
		}
		if coef.Sign() > 0 {
			// coef*v + rest >(=) 0  =>  v >(=) -rest/coef
			lowers = append(lowers, normalizeBound(c, v, coef))
		} else {
			uppers = append(uppers, normalizeBound(c, v, coef))
		}
	}
	if len(lowers) == 0 || len(uppers) == 0 {
		// Unbounded on at least one side: project away, always satisfiable
		// w.r.t. v given the remaining constraints are; pick 0 as witness
		// once the rest is solved.
		reduced := rest
		model, ok := solveFM(reduced)
		if !ok {
			return nil, false
		}
		val := boundWitness(lowers, uppers, model)
		model[v] = expr.NewInt(val)
		return model, true
	}
	combined := append([]ineq{}, rest...)
	for _, lo := range lowers {
		for _, up := range uppers {
			combined = append(combined, combineBounds(lo, up))
		}
	}
	model, ok := solveFM(combined)
	if !ok {
		return nil, false
	}
	val := resolveWitness(lowers, uppers, model)
	model[v] = expr.NewInt(val)
	return model, true
}

func collectVars(cs []ineq) []variable.Variable {
	set := variable.NewSet()
	for _, c := range cs {
		for v := range c.coeffs {
			if c.coeffs[v].Sign() != 0 {
				set.Add(v)
			}
		}
	}
	out := set.Slice()
	// deterministic order
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].ID > out[j].ID; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func dropVar(c ineq, v variable.Variable) ineq {
	coeffs := make(map[variable.Variable]*big.Rat, len(c.coeffs))
	for k, val := range c.coeffs {
		if k == v {
			continue
		}
		coeffs[k] = val
	}
	return ineq{coeffs: coeffs, offset: c.offset, strict: c.strict}
}

// normalizeBound rewrites `coef*v + rest cmp 0` (cmp in {>,>=}) into the
// bound form `v cmp' bound`, keeping the non-v coefficients so later
// elimination steps can combine a lower and an upper bound.
func normalizeBound(c ineq, v variable.Variable, coef *big.Rat) ineq {
	coeffs := make(map[variable.Variable]*big.Rat, len(c.coeffs))
	inv := new(big.Rat).Inv(coef)
	absInv := new(big.Rat).Abs(inv)
	for k, val := range c.coeffs {
		if k == v {
			continue
		}
		coeffs[k] = new(big.Rat).Mul(val, absInv)
	}
	offset := new(big.Rat).Mul(c.offset, absInv)
	return ineq{coeffs: coeffs, offset: offset, strict: c.strict}
}

// combineBounds eliminates v given a normalized lower bound `v + loRest >=
// 0` (i.e. v >= -loRest) and upper bound `-v + upRest >= 0` (i.e. v <=
// upRest), producing `loRest + upRest >= 0` (strict if either side was).
func combineBounds(lo, up ineq) ineq {
	coeffs := make(map[variable.Variable]*big.Rat, len(lo.coeffs)+len(up.coeffs))
	for k, val := range lo.coeffs {
		coeffs[k] = new(big.Rat).Set(val)
	}
	for k, val := range up.coeffs {
		if cur, ok := coeffs[k]; ok {
			coeffs[k] = new(big.Rat).Add(cur, val)
		} else {
			coeffs[k] = new(big.Rat).Set(val)
		}
	}
	offset := new(big.Rat).Add(lo.offset, up.offset)
	return ineq{coeffs: coeffs, offset: offset, strict: lo.strict || up.strict}
}

func evalRest(c ineq, model expr.Substitution) *big.Rat {
	sum := new(big.Rat).Set(c.offset)
	for v, coef := range c.coeffs {
		val := witnessOf(model, v)
		sum.Add(sum, new(big.Rat).Mul(coef, val))
	}
	return sum
}

func witnessOf(model expr.Substitution, v variable.Variable) *big.Rat {
	e, ok := model[v]
	if !ok {
		return big.NewRat(0, 1)
	}
	if il, ok := e.(expr.IntLit); ok {
		return big.NewRat(il.Value, 1)
	}
	return big.NewRat(0, 1)
}

// resolveWitness picks an integer value for v from the tightest lower and
// upper bounds implied by lowers/uppers evaluated at model (both sets are
// non-empty here): the smallest integer meeting the lower bound, or the
// floor of the upper bound when that overshoots it. The strictness of the
// upper bound is not considered, and when no integer lies between the
// bounds the value violates one of them.
func resolveWitness(lowers, uppers []ineq, model expr.Substitution) int64 {
	lo := new(big.Rat)
	first := true
	loStrict := false
	for _, l := range lowers {
		bound := new(big.Rat).Neg(evalRest(l, model))
		if first || bound.Cmp(lo) > 0 {
			lo = bound
			loStrict = l.strict
			first = false
		}
	}
	hi := new(big.Rat)
	first = true
	for _, u := range uppers {
		bound := evalRest(u, model)
		if first || bound.Cmp(hi) < 0 {
			hi = bound
			first = false
		}
	}
	return pickInt(lo, loStrict, hi)
}

func boundWitness(lowers, uppers []ineq, model expr.Substitution) int64 {
	if len(lowers) == 0 && len(uppers) == 0 {
		return 0
	}
	if len(lowers) > 0 {
		lo := new(big.Rat)
		first := true
		strict := false
		for _, l := range lowers {
			bound := new(big.Rat).Neg(evalRest(l, model))
			if first || bound.Cmp(lo) > 0 {
				lo = bound
				strict = l.strict
				first = false
			}
		}
		return ceilBound(lo, strict)
	}
	hi := new(big.Rat)
	first := true
	for _, u := range uppers {
		bound := evalRest(u, model)
		if first || bound.Cmp(hi) < 0 {
			hi = bound
			first = false
		}
	}
	return floorBound(hi)
}

func ceilBound(lo *big.Rat, strict bool) int64 {
	f := new(big.Float).SetRat(lo)
	v, _ := f.Int64()
	if big.NewRat(v, 1).Cmp(lo) < 0 || (strict && big.NewRat(v, 1).Cmp(lo) == 0) {
		v++
	}
	return v
}

func floorBound(hi *big.Rat) int64 {
	f := new(big.Float).SetRat(hi)
	v, _ := f.Int64()
	if big.NewRat(v, 1).Cmp(hi) > 0 {
		v--
	}
	return v
}

func pickInt(lo *big.Rat, loStrict bool, hi *big.Rat) int64 {
	v := ceilBound(lo, loStrict)
	if big.NewRat(v, 1).Cmp(hi) > 0 {
		v = floorBound(hi)
	}
	return v
}

func holds(offset *big.Rat, strict bool) bool {
	if strict {
		return offset.Sign() > 0
	}
	return offset.Sign() >= 0
}
