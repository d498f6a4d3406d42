// Package boolexpr implements the boolean-connective DAG the guard of a
// rule is built from: And, Or, Lit(Relation), and the constants True/False.
package boolexpr

import (
	"strings"

	"loat/internal/expr"
	"loat/internal/relation"
	"loat/internal/variable"
)

type BoolExpr interface {
	Key() string
	String() string
	isBoolExpr()
}

type andNode struct{ Terms []BoolExpr }
type orNode struct{ Terms []BoolExpr }
type litNode struct{ R relation.Relation }
type trueNode struct{}
type falseNode struct{}

var True BoolExpr = trueNode{}
var False BoolExpr = falseNode{}

func Lit(r relation.Relation) BoolExpr { return litNode{R: r} }

// And flattens nested conjunctions and drops redundant True terms; an
// empty conjunction is True, and any False term collapses the whole thing.
func And(terms ...BoolExpr) BoolExpr {
	flat := make([]BoolExpr, 0, len(terms))
	for _, t := range terms {
		switch n := t.(type) {
		case trueNode:
			continue
		case falseNode:
			return False
		case andNode:
			flat = append(flat, n.Terms...)
		default:
			flat = append(flat, t)
		}
	}
	flat = dedup(flat)
	if len(flat) == 0 {
		return True
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return andNode{Terms: flat}
}

// Or flattens nested disjunctions; any True term collapses the whole thing.
func Or(terms ...BoolExpr) BoolExpr {
	flat := make([]BoolExpr, 0, len(terms))
	for _, t := range terms {
		switch n := t.(type) {
		case falseNode:
			continue
		case trueNode:
			return True
		case orNode:
			flat = append(flat, n.Terms...)
		default:
			flat = append(flat, t)
		}
	}
	flat = dedup(flat)
	if len(flat) == 0 {
		return False
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return orNode{Terms: flat}
}

func dedup(bs []BoolExpr) []BoolExpr {
	seen := make(map[string]bool, len(bs))
	out := bs[:0:0]
	for _, b := range bs {
		k := b.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, b)
	}
	return out
}

func (a andNode) isBoolExpr()   {}
func (o orNode) isBoolExpr()    {}
func (l litNode) isBoolExpr()   {}
func (trueNode) isBoolExpr()    {}
func (falseNode) isBoolExpr()   {}

func (a andNode) Key() string {
	parts := make([]string, len(a.Terms))
	for i, t := range a.Terms {
		parts[i] = t.Key()
	}
	return "(&" + strings.Join(parts, ",") + ")"
}

func (o orNode) Key() string {
	parts := make([]string, len(o.Terms))
	for i, t := range o.Terms {
		parts[i] = t.Key()
	}
	return "(|" + strings.Join(parts, ",") + ")"
}

func (l litNode) Key() string { return "L" + l.R.Key() }
func (trueNode) Key() string  { return "T" }
func (falseNode) Key() string { return "F" }

func (a andNode) String() string {
	parts := make([]string, len(a.Terms))
	for i, t := range a.Terms {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, " && ") + ")"
}

func (o orNode) String() string {
	parts := make([]string, len(o.Terms))
	for i, t := range o.Terms {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, " || ") + ")"
}

func (l litNode) String() string { return l.R.String() }
func (trueNode) String() string  { return "true" }
func (falseNode) String() string { return "false" }

// AsAnd reports whether b is a top-level conjunction, returning its terms.
func AsAnd(b BoolExpr) ([]BoolExpr, bool) {
	n, ok := b.(andNode)
	if !ok {
		return nil, false
	}
	return n.Terms, true
}

// AsOr reports whether b is a top-level disjunction, returning its terms.
func AsOr(b BoolExpr) ([]BoolExpr, bool) {
	n, ok := b.(orNode)
	if !ok {
		return nil, false
	}
	return n.Terms, true
}

func IsTrue(b BoolExpr) bool  { _, ok := b.(trueNode); return ok }
func IsFalse(b BoolExpr) bool { _, ok := b.(falseNode); return ok }

// AsLit reports whether b is a single literal, returning its Relation.
func AsLit(b BoolExpr) (relation.Relation, bool) {
	l, ok := b.(litNode)
	if !ok {
		return relation.Relation{}, false
	}
	return l.R, true
}

// IsConjunction reports whether b is a single And (or a lone literal, True
// or False) — the shape the replacement-map builder needs to know about, since
// disjunctive guards allow uncertified literals to be dropped to False
// instead of failing the whole acceleration.
func IsConjunction(b BoolExpr) bool {
	switch b.(type) {
	case andNode, litNode, trueNode, falseNode:
		return true
	default:
		return false
	}
}

// Literals returns the distinct relations occurring in b, in a stable
// left-to-right, depth-first order (first occurrence wins).
func Literals(b BoolExpr) []relation.Relation {
	seen := map[string]bool{}
	var out []relation.Relation
	var walk func(BoolExpr)
	walk = func(n BoolExpr) {
		switch t := n.(type) {
		case andNode:
			for _, c := range t.Terms {
				walk(c)
			}
		case orNode:
			for _, c := range t.Terms {
				walk(c)
			}
		case litNode:
			k := t.R.Key()
			if !seen[k] {
				seen[k] = true
				out = append(out, t.R)
			}
		}
	}
	walk(b)
	return out
}

// SubstituteLit rewrites every literal of b whose relation key is present
// in repl with the mapped formula, preserving the And/Or skeleton
// elsewhere. Literals not present in repl are left as-is.
func SubstituteLit(b BoolExpr, repl map[string]BoolExpr) BoolExpr {
	switch n := b.(type) {
	case andNode:
		terms := make([]BoolExpr, len(n.Terms))
		for i, t := range n.Terms {
			terms[i] = SubstituteLit(t, repl)
		}
		return And(terms...)
	case orNode:
		terms := make([]BoolExpr, len(n.Terms))
		for i, t := range n.Terms {
			terms[i] = SubstituteLit(t, repl)
		}
		return Or(terms...)
	case litNode:
		if r, ok := repl[n.R.Key()]; ok {
			return r
		}
		return n
	default:
		return b
	}
}

// SubstituteVars rewrites every literal's underlying relation by applying a
// variable substitution, preserving the boolean skeleton.
func SubstituteVars(b BoolExpr, sub expr.Substitution) BoolExpr {
	switch n := b.(type) {
	case andNode:
		terms := make([]BoolExpr, len(n.Terms))
		for i, t := range n.Terms {
			terms[i] = SubstituteVars(t, sub)
		}
		return And(terms...)
	case orNode:
		terms := make([]BoolExpr, len(n.Terms))
		for i, t := range n.Terms {
			terms[i] = SubstituteVars(t, sub)
		}
		return Or(terms...)
	case litNode:
		return Lit(relation.Substitute(n.R, sub))
	default:
		return b
	}
}

func Vars(b BoolExpr) variable.Set {
	out := variable.NewSet()
	for _, lit := range Literals(b) {
		out = out.Union(relation.Vars(lit))
	}
	return out
}

func IsPolynomial(b BoolExpr) bool {
	for _, lit := range Literals(b) {
		if !relation.IsPolynomial(lit) {
			return false
		}
	}
	return true
}
