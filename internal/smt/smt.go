// Package smt defines the SMT oracle capability the certificate engine
// depends on (§6.2): satisfiability, model extraction, unsat cores,
// implication checking, and a scoped push/pop discipline. The calculus
// never asserts outside a rule's own scope and never leaks assertions
// across proof rules (§5).
package smt

import (
	"context"

	"loat/internal/boolexpr"
	"loat/internal/expr"
)

type Result int

const (
	Unknown Result = iota
	Sat
	Unsat
)

func (r Result) String() string {
	switch r {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// Oracle is the narrow capability interface the core depends on. A real
// implementation wraps an external SMT process; this package also ships a
// reference implementation (linsmt) sufficient for the linear-arithmetic
// fragment exercised by the calculus's own tests.
type Oracle interface {
	// Push opens a nested scope.
	Push()
	// Pop closes the most recently opened scope, discarding its assertions.
	Pop()
	// Assert adds f to the current scope.
	Assert(f boolexpr.BoolExpr)
	// Check decides satisfiability of the current scope's assertions. A
	// caller-supplied timeout is honored via ctx; a timeout or an
	// undecidable fragment is reported as Unknown, never as an error that
	// aborts the caller (§7.1: oracle timeout/unknown is non-fatal).
	Check(ctx context.Context) (Result, error)
	// Model returns a satisfying assignment for the most recent Sat check.
	Model() (expr.Substitution, error)
	// UnsatCore returns a minimal unsatisfiable subset of assumptions,
	// valid only immediately after a Check that returned Unsat with
	// assumptions asserted in the current scope.
	UnsatCore(assumptions []boolexpr.BoolExpr) ([]boolexpr.BoolExpr, error)
	// IsImplication decides whether lhs -> rhs is valid.
	IsImplication(ctx context.Context, lhs, rhs boolexpr.BoolExpr) (bool, error)
}
