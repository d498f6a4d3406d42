// Package parser builds an its.Rule (and the supporting Expr/BoolExpr
// trees) from a parsed grammar.Program, resolving every identifier through
// a varmgr.Manager so the same name always maps to the same Variable
// within one rule. Tokenizing and precedence-climbing are already handled
// declaratively by participle via grammar's struct tags, so this package
// is purely the grammar-AST-to-core-semantics step: a small semantic pass
// walking a parsed AST into the calculus's own typed expressions.
package parser

import (
	"fmt"

	"loat/grammar"
	"loat/internal/boolexpr"
	"loat/internal/expr"
	"loat/internal/its"
	"loat/internal/relation"
	"loat/internal/varmgr"
)

// Builder resolves identifiers to Variables via mgr, reusing the same
// Variable for repeated occurrences of a name within one rule.
type Builder struct {
	mgr   *varmgr.Manager
	names map[string]expr.Expr
}

func NewBuilder(mgr *varmgr.Manager) *Builder {
	return &Builder{mgr: mgr, names: map[string]expr.Expr{}}
}

// Rule builds an its.Rule from decl. The returned rule is always a
// self-loop (Source == Target == decl.Name), matching §1's restriction
// that the core only ever accelerates self-loops.
func (b *Builder) Rule(decl *grammar.RuleDecl) (its.Rule, error) {
	loc := its.Location(decl.Name)

	guard, err := b.boolExpr(decl.Guard.Expr)
	if err != nil {
		return its.Rule{}, fmt.Errorf("rule %s: guard: %w", decl.Name, err)
	}

	update := its.Update{}
	for _, a := range decl.Update.Assignments {
		rhs, err := b.addExpr(a.Value)
		if err != nil {
			return its.Rule{}, fmt.Errorf("rule %s: update of %s: %w", decl.Name, a.Var, err)
		}
		update[b.varOf(a.Var).(expr.Var).V] = rhs
	}

	cost := expr.Expr(expr.NewInt(1))
	if decl.Cost != nil {
		cost, err = b.addExpr(decl.Cost.Expr)
		if err != nil {
			return its.Rule{}, fmt.Errorf("rule %s: cost: %w", decl.Name, err)
		}
	}

	return its.Rule{Source: loc, Target: loc, Guard: guard, Update: update, Cost: cost}, nil
}

func (b *Builder) varOf(name string) expr.Expr {
	if v, ok := b.names[name]; ok {
		return v
	}
	v := b.mgr.AddFreshVariable(name)
	e := b.mgr.GetVarSymbol(v)
	b.names[name] = e
	return e
}

func (b *Builder) boolExpr(or *grammar.OrExpr) (boolexpr.BoolExpr, error) {
	terms := make([]boolexpr.BoolExpr, 0, 1+len(or.Rest))
	first, err := b.andExpr(or.Left)
	if err != nil {
		return nil, err
	}
	terms = append(terms, first)
	for _, and := range or.Rest {
		t, err := b.andExpr(and)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return boolexpr.Or(terms...), nil
}

func (b *Builder) andExpr(and *grammar.AndExpr) (boolexpr.BoolExpr, error) {
	terms := make([]boolexpr.BoolExpr, 0, 1+len(and.Rest))
	first, err := b.relExpr(and.Left)
	if err != nil {
		return nil, err
	}
	terms = append(terms, first)
	for _, rel := range and.Rest {
		t, err := b.relExpr(rel)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return boolexpr.And(terms...), nil
}

func (b *Builder) relExpr(rel *grammar.RelExpr) (boolexpr.BoolExpr, error) {
	lhs, err := b.addExpr(rel.Left)
	if err != nil {
		return nil, err
	}
	rhs, err := b.addExpr(rel.Right)
	if err != nil {
		return nil, err
	}
	op, err := relOp(rel.Op)
	if err != nil {
		return nil, err
	}
	return boolexpr.Lit(relation.New(lhs, op, rhs)), nil
}

func relOp(op string) (relation.Op, error) {
	switch op {
	case "<":
		return relation.LT, nil
	case "<=":
		return relation.LE, nil
	case "==":
		return relation.EQ, nil
	case "!=":
		return relation.NE, nil
	case ">=":
		return relation.GE, nil
	case ">":
		return relation.GT, nil
	default:
		return 0, fmt.Errorf("unknown relational operator %q", op)
	}
}

func (b *Builder) addExpr(a *grammar.AddExpr) (expr.Expr, error) {
	left, err := b.mulExpr(a.Left)
	if err != nil {
		return nil, err
	}
	for _, tail := range a.Tail {
		right, err := b.mulExpr(tail.Right)
		if err != nil {
			return nil, err
		}
		switch tail.Op {
		case "+":
			left = expr.NewSum(left, right)
		case "-":
			left = expr.NewSum(left, expr.NewNeg(right))
		default:
			return nil, fmt.Errorf("unknown additive operator %q", tail.Op)
		}
	}
	return left, nil
}

func (b *Builder) mulExpr(m *grammar.MulExpr) (expr.Expr, error) {
	left, err := b.unaryExpr(m.Left)
	if err != nil {
		return nil, err
	}
	for _, tail := range m.Tail {
		right, err := b.unaryExpr(tail.Right)
		if err != nil {
			return nil, err
		}
		left = expr.NewProduct(left, right)
	}
	return left, nil
}

func (b *Builder) unaryExpr(u *grammar.UnaryExpr) (expr.Expr, error) {
	a, err := b.atom(u.Atom)
	if err != nil {
		return nil, err
	}
	if u.Neg {
		return expr.NewNeg(a), nil
	}
	return a, nil
}

func (b *Builder) atom(a *grammar.Atom) (expr.Expr, error) {
	switch {
	case a.Int != nil:
		return expr.NewInt(*a.Int), nil
	case a.Ident != nil:
		return b.varOf(*a.Ident), nil
	case a.Paren != nil:
		return b.addExpr(a.Paren)
	default:
		return nil, fmt.Errorf("empty expression atom")
	}
}
