package expr

import "loat/internal/variable"

// Substitution maps variables to replacement expressions. An Update (one
// step of a loop) and a ClosedForm (an n-fold closed-form update) are both
// Substitutions with different invariants enforced by their owning
// packages, not by this type.
type Substitution map[variable.Variable]Expr

// Compose returns the substitution that applies s first, then other: for
// every variable v, (other∘s)(v) = other(s(v)) with s's own domain
// substituted through other as well.
func (s Substitution) Compose(other Substitution) Substitution {
	out := make(Substitution, len(s)+len(other))
	for v, e := range s {
		out[v] = Apply(e, other)
	}
	for v, e := range other {
		if _, ok := s[v]; !ok {
			out[v] = e
		}
	}
	return out
}

// Restrict returns the subset of s whose domain is in vars.
func (s Substitution) Restrict(vars variable.Set) Substitution {
	out := make(Substitution, len(vars))
	for v := range vars {
		if e, ok := s[v]; ok {
			out[v] = e
		}
	}
	return out
}

// Apply replaces every free occurrence of a variable in e according to sub.
// Variables absent from sub are left untouched.
func Apply(e Expr, sub Substitution) Expr {
	if len(sub) == 0 {
		return e
	}
	switch n := e.(type) {
	case IntLit:
		return n
	case Var:
		if repl, ok := sub[n.V]; ok {
			return repl
		}
		return n
	case Neg:
		return NewNeg(Apply(n.X, sub))
	case Sum:
		terms := make([]Expr, len(n.Terms))
		for i, t := range n.Terms {
			terms[i] = Apply(t, sub)
		}
		return NewSum(terms...)
	case Product:
		factors := make([]Expr, len(n.Factors))
		for i, f := range n.Factors {
			factors[i] = Apply(f, sub)
		}
		return NewProduct(factors...)
	case Pow:
		return NewPow(Apply(n.Base, sub), Apply(n.Exp, sub))
	default:
		return e
	}
}

// LinearForm is the result of AsLinear: e == Offset + sum(Coeffs[v] * v).
type LinearForm struct {
	Coeffs map[variable.Variable]int64
	Offset int64
}

// AsLinear attempts to read e as an affine combination of variables with
// integer coefficients. It is used both by the reference SMT decision
// procedure (which only handles linear arithmetic) and by the reference
// recurrence solver (which only solves affine updates).
func AsLinear(e Expr) (LinearForm, bool) {
	lf := LinearForm{Coeffs: map[variable.Variable]int64{}}
	ok := addLinear(e, 1, &lf)
	return lf, ok
}

func addLinear(e Expr, scale int64, lf *LinearForm) bool {
	switch n := e.(type) {
	case IntLit:
		lf.Offset += scale * n.Value
		return true
	case Var:
		lf.Coeffs[n.V] += scale
		return true
	case Neg:
		return addLinear(n.X, -scale, lf)
	case Sum:
		for _, t := range n.Terms {
			if !addLinear(t, scale, lf) {
				return false
			}
		}
		return true
	case Product:
		// A product is linear only if at most one factor is non-constant.
		constScale := scale
		var nonConst Expr
		count := 0
		for _, f := range n.Factors {
			if il, ok := f.(IntLit); ok {
				constScale *= il.Value
				continue
			}
			nonConst = f
			count++
		}
		if count == 0 {
			lf.Offset += constScale
			return true
		}
		if count == 1 {
			return addLinear(nonConst, constScale, lf)
		}
		return false
	default:
		return false
	}
}

// FromLinear rebuilds an Expr from a LinearForm, in a canonical variable
// order (by ID) so tests and proof output are deterministic.
func FromLinear(lf LinearForm) Expr {
	terms := make([]Expr, 0, len(lf.Coeffs)+1)
	vars := make([]variable.Variable, 0, len(lf.Coeffs))
	for v, c := range lf.Coeffs {
		if c != 0 {
			vars = append(vars, v)
		}
	}
	sortVars(vars)
	for _, v := range vars {
		terms = append(terms, NewProduct(IntLit{Value: lf.Coeffs[v]}, Var{V: v}))
	}
	if lf.Offset != 0 || len(terms) == 0 {
		terms = append(terms, IntLit{Value: lf.Offset})
	}
	return NewSum(terms...)
}

func sortVars(vs []variable.Variable) {
	for i := 1; i < len(vs); i++ {
		for j := i; j > 0 && vs[j-1].ID > vs[j].ID; j-- {
			vs[j-1], vs[j] = vs[j], vs[j-1]
		}
	}
}
