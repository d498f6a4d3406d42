// Package certificate implements the per-literal proof rules of the
// acceleration calculus (§4.2) and the append-only store of everything
// they derive (§3 CertificateStore).
package certificate

import (
	"loat/internal/boolexpr"
	"loat/internal/relation"
)

type Rule string

const (
	RuleRecurrent         Rule = "R"
	RuleEventualIncrease  Rule = "E"
	RuleFixpoint          Rule = "F"
	RuleMonotonicDecrease Rule = "M"
)

// Entry is one certified rewriting of a literal.
type Entry struct {
	Rule         Rule
	Dependencies []relation.Relation
	Formula      boolexpr.BoolExpr
	Exact        bool
}

// Store is an append-only Map<Relation, []Entry>. Several entries per
// literal are allowed; at most one is ultimately selected by the
// replacement-map builder.
type Store struct {
	order   []relation.Relation
	entries map[string][]Entry
}

func NewStore() *Store {
	return &Store{entries: map[string][]Entry{}}
}

// Add appends e to r's bucket, preserving insertion order both of literals
// and of entries within a literal's bucket.
func (s *Store) Add(r relation.Relation, e Entry) {
	key := r.Key()
	if _, ok := s.entries[key]; !ok {
		s.order = append(s.order, r)
	}
	s.entries[key] = append(s.entries[key], e)
}

// Entries returns the certified entries for r, in insertion order.
func (s *Store) Entries(r relation.Relation) []Entry {
	return s.entries[r.Key()]
}

// Literals returns every literal that has at least one certified entry, in
// the order they were first added.
func (s *Store) Literals() []relation.Relation {
	return append([]relation.Relation(nil), s.order...)
}
