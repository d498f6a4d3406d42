// Package expr implements the arithmetic expression language the
// acceleration calculus rewrites: integer literals, variables, negation,
// n-ary sums and products, and integer power. Equality and structural
// hashing are implemented via a canonical string key rather than a
// hash-consing interner: correctness does not depend on sharing, only on
// Equal/Key agreeing, and it keeps every node a plain immutable value.
package expr

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"loat/internal/variable"
)

// Expr is a node of the arithmetic expression DAG. All concrete types are
// immutable and comparable via Key.
type Expr interface {
	fmt.Stringer
	// Key returns a canonical textual representation used for structural
	// equality and hashing.
	Key() string
	isExpr()
}

// Equal reports whether two expressions are structurally identical.
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Key() == b.Key()
}

// IntLit is an integer literal.
type IntLit struct{ Value int64 }

func NewInt(v int64) Expr { return IntLit{Value: v} }

func (l IntLit) String() string { return strconv.FormatInt(l.Value, 10) }
func (l IntLit) Key() string    { return "#" + strconv.FormatInt(l.Value, 10) }
func (IntLit) isExpr()          {}

// Var references a Variable.
type Var struct{ V variable.Variable }

func NewVar(v variable.Variable) Expr { return Var{V: v} }

func (v Var) String() string { return v.V.Name }
func (v Var) Key() string    { return "v" + strconv.FormatUint(v.V.ID, 10) }
func (Var) isExpr()          {}

// Neg is arithmetic negation.
type Neg struct{ X Expr }

func NewNeg(x Expr) Expr {
	if il, ok := x.(IntLit); ok {
		return IntLit{Value: -il.Value}
	}
	if n, ok := x.(Neg); ok {
		return n.X
	}
	return Neg{X: x}
}

func (n Neg) String() string { return "-(" + n.X.String() + ")" }
func (n Neg) Key() string    { return "(-" + n.X.Key() + ")" }
func (Neg) isExpr()          {}

// Sum is an n-ary addition. Construction flattens nested sums and folds
// all integer literals into one so that Key is a true canonical form for
// commutative/associative addition.
type Sum struct{ Terms []Expr }

func NewSum(terms ...Expr) Expr {
	flat := make([]Expr, 0, len(terms))
	var constant int64
	hasConst := false
	for _, t := range terms {
		if s, ok := t.(Sum); ok {
			flat = append(flat, s.Terms...)
			continue
		}
		flat = append(flat, t)
	}
	nonConst := flat[:0:0]
	for _, t := range flat {
		if il, ok := t.(IntLit); ok {
			constant += il.Value
			hasConst = true
			continue
		}
		nonConst = append(nonConst, t)
	}
	if hasConst && (constant != 0 || len(nonConst) == 0) {
		nonConst = append(nonConst, IntLit{Value: constant})
	}
	sortExprs(nonConst)
	if len(nonConst) == 0 {
		return IntLit{Value: 0}
	}
	if len(nonConst) == 1 {
		return nonConst[0]
	}
	return Sum{Terms: nonConst}
}

func (s Sum) String() string {
	parts := make([]string, len(s.Terms))
	for i, t := range s.Terms {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, " + ") + ")"
}

func (s Sum) Key() string {
	parts := make([]string, len(s.Terms))
	for i, t := range s.Terms {
		parts[i] = t.Key()
	}
	return "(+" + strings.Join(parts, ",") + ")"
}
func (Sum) isExpr() {}

// Product is an n-ary multiplication, canonicalized the same way as Sum.
type Product struct{ Factors []Expr }

func NewProduct(factors ...Expr) Expr {
	flat := make([]Expr, 0, len(factors))
	for _, f := range factors {
		if p, ok := f.(Product); ok {
			flat = append(flat, p.Factors...)
			continue
		}
		flat = append(flat, f)
	}
	var constant int64 = 1
	hasConst := false
	nonConst := flat[:0:0]
	for _, f := range flat {
		if il, ok := f.(IntLit); ok {
			constant *= il.Value
			hasConst = true
			continue
		}
		nonConst = append(nonConst, f)
	}
	if hasConst && constant == 0 {
		return IntLit{Value: 0}
	}
	if hasConst && (constant != 1 || len(nonConst) == 0) {
		nonConst = append(nonConst, IntLit{Value: constant})
	}
	sortExprs(nonConst)
	if len(nonConst) == 0 {
		return IntLit{Value: 1}
	}
	if len(nonConst) == 1 {
		return nonConst[0]
	}
	return Product{Factors: nonConst}
}

func (p Product) String() string {
	parts := make([]string, len(p.Factors))
	for i, f := range p.Factors {
		parts[i] = f.String()
	}
	return "(" + strings.Join(parts, " * ") + ")"
}

func (p Product) Key() string {
	parts := make([]string, len(p.Factors))
	for i, f := range p.Factors {
		parts[i] = f.Key()
	}
	return "(*" + strings.Join(parts, ",") + ")"
}
func (Product) isExpr() {}

// Pow is exponentiation. Exponent is itself an Expr because the recurrence
// solver may legitimately produce an exponential closed form like x0*2^n,
// whose exponent is the iteration counter rather than a literal; such a
// node is, by construction, never polynomial (see IsPolynomial).
type Pow struct {
	Base Expr
	Exp  Expr
}

func NewPow(base, exponent Expr) Expr {
	if il, ok := exponent.(IntLit); ok && il.Value == 1 {
		return base
	}
	if il, ok := exponent.(IntLit); ok && il.Value == 0 {
		return IntLit{Value: 1}
	}
	return Pow{Base: base, Exp: exponent}
}

func (p Pow) String() string { return p.Base.String() + "^" + p.Exp.String() }
func (p Pow) Key() string    { return "(^" + p.Base.Key() + "," + p.Exp.Key() + ")" }
func (Pow) isExpr()          {}

func sortExprs(es []Expr) {
	sort.Slice(es, func(i, j int) bool { return es[i].Key() < es[j].Key() })
}

// Vars returns the set of variables occurring in e.
func Vars(e Expr) variable.Set {
	out := variable.NewSet()
	collectVars(e, out)
	return out
}

func collectVars(e Expr, out variable.Set) {
	switch n := e.(type) {
	case Var:
		out.Add(n.V)
	case Neg:
		collectVars(n.X, out)
	case Sum:
		for _, t := range n.Terms {
			collectVars(t, out)
		}
	case Product:
		for _, f := range n.Factors {
			collectVars(f, out)
		}
	case Pow:
		collectVars(n.Base, out)
		collectVars(n.Exp, out)
	}
}

// IsPolynomial reports whether every occurrence of a variable in e is under
// a product tower with a non-negative integer literal exponent only.
func IsPolynomial(e Expr) bool {
	switch n := e.(type) {
	case IntLit, Var:
		return true
	case Neg:
		return IsPolynomial(n.X)
	case Sum:
		for _, t := range n.Terms {
			if !IsPolynomial(t) {
				return false
			}
		}
		return true
	case Product:
		for _, f := range n.Factors {
			if !IsPolynomial(f) {
				return false
			}
		}
		return true
	case Pow:
		il, ok := n.Exp.(IntLit)
		if !ok || il.Value < 0 {
			return false
		}
		return IsPolynomial(n.Base)
	default:
		return false
	}
}
