// Package relation implements the atomic literals of a guard: an ordered
// triple (lhs, operator, rhs) together with the strict-normal-form
// rewriting the acceleration calculus relies on.
package relation

import (
	"loat/internal/expr"
	"loat/internal/variable"
)

type Op int

const (
	LT Op = iota
	LE
	EQ
	NE
	GE
	GT
)

func (o Op) String() string {
	switch o {
	case LT:
		return "<"
	case LE:
		return "<="
	case EQ:
		return "="
	case NE:
		return "!="
	case GE:
		return ">="
	case GT:
		return ">"
	default:
		return "?"
	}
}

// Relation is an atomic literal: lhs Op rhs.
type Relation struct {
	LHS expr.Expr
	Op  Op
	RHS expr.Expr
}

func New(lhs expr.Expr, op Op, rhs expr.Expr) Relation {
	return Relation{LHS: lhs, Op: op, RHS: rhs}
}

func (r Relation) String() string {
	return r.LHS.String() + " " + r.Op.String() + " " + r.RHS.String()
}

// Key is the canonical string used for equality/hashing/map-keys.
func (r Relation) Key() string {
	return r.LHS.Key() + string(rune('0'+int(r.Op))) + r.RHS.Key()
}

func Equal(a, b Relation) bool {
	return a.Key() == b.Key()
}

// Negate returns the logical negation of r, expressed with the dual
// operator rather than wrapping it in a boolean Not (the calculus never
// needs a Not node: every rule that needs a negated literal, e.g. Rule E's
// ¬dec, builds it via Negate so BoolExpr stays restricted to And/Or/Lit).
func (r Relation) Negate() Relation {
	switch r.Op {
	case LT:
		return Relation{LHS: r.LHS, Op: GE, RHS: r.RHS}
	case LE:
		return Relation{LHS: r.LHS, Op: GT, RHS: r.RHS}
	case EQ:
		return Relation{LHS: r.LHS, Op: NE, RHS: r.RHS}
	case NE:
		return Relation{LHS: r.LHS, Op: EQ, RHS: r.RHS}
	case GE:
		return Relation{LHS: r.LHS, Op: LT, RHS: r.RHS}
	case GT:
		return Relation{LHS: r.LHS, Op: LE, RHS: r.RHS}
	default:
		return r
	}
}

// Substitute applies sub to both sides of r, e.g. to build R' := R[x ↦ U(x)].
func Substitute(r Relation, sub expr.Substitution) Relation {
	return Relation{LHS: expr.Apply(r.LHS, sub), Op: r.Op, RHS: expr.Apply(r.RHS, sub)}
}

func Vars(r Relation) variable.Set {
	return expr.Vars(r.LHS).Union(expr.Vars(r.RHS))
}

func IsPolynomial(r Relation) bool {
	return expr.IsPolynomial(r.LHS) && expr.IsPolynomial(r.RHS)
}

// StrictNormalForm rewrites an inequality literal into the `e > 0` shape
// the acceleration calculus is specified over. Equalities and
// disequalities are preserved verbatim. Over integers, `a <= b` is `a < b+1`
// and `a >= b` is `a > b-1`, so the `<=`/`>=` cases shift by one rather
// than merely flipping strictness.
func StrictNormalForm(r Relation) (e expr.Expr, ok bool) {
	switch r.Op {
	case GT:
		return expr.NewSum(r.LHS, expr.NewNeg(r.RHS)), true
	case LT:
		return expr.NewSum(r.RHS, expr.NewNeg(r.LHS)), true
	case GE:
		return expr.NewSum(r.LHS, expr.NewNeg(r.RHS), expr.NewInt(1)), true
	case LE:
		return expr.NewSum(r.RHS, expr.NewNeg(r.LHS), expr.NewInt(1)), true
	default:
		return nil, false
	}
}

// AsStrictGT rewrites any inequality relation to the equivalent `e > 0`
// Relation (lhs=e, rhs=0); equalities/disequalities are returned unchanged.
func AsStrictGT(r Relation) Relation {
	if e, ok := StrictNormalForm(r); ok {
		return Relation{LHS: e, Op: GT, RHS: expr.NewInt(0)}
	}
	return r
}
