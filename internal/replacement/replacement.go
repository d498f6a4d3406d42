// Package replacement builds the replacement map of §4.3: given a
// CertificateStore, pick at most one entry per literal, close the
// selection under its dependencies, and check the result forms a valid
// (well-founded) replacement for the rule's guard.
package replacement

import (
	"fmt"

	"loat/internal/boolexpr"
	"loat/internal/certificate"
	"loat/internal/diag"
	"loat/internal/relation"
)

// Map is the selected {literal ↦ entry} assignment, plus whether every
// selected entry is Exact (the overall acceleration is exact only if all
// of them are).
type Map struct {
	selected map[string]certificate.Entry
	literal  map[string]relation.Relation
	Exact    bool
}

// Lookup returns the entry selected for r, if any.
func (m *Map) Lookup(r relation.Relation) (certificate.Entry, bool) {
	e, ok := m.selected[r.Key()]
	return e, ok
}

// Build selects one entry per literal of guard from store and closes the
// selection under dependency edges, failing if:
//   - guard is a conjunction and some literal has no certified entry at all
//     (§4.3 step 2: a conjunctive guard needs every conjunct replaced), or
//   - the dependency closure is not well-founded, i.e. no selection order
//     makes every dependency available strictly before the literal that
//     needs it (a cyclic certificate can never be discharged).
//
// Disjunctive (non-conjunction) guards tolerate literals with no entry: per
// §4.3 step 3 those are simply replaced by False, since dropping a disjunct
// is always sound.
func Build(guard boolexpr.BoolExpr, store *certificate.Store) (*Map, bool) {
	literals := boolexpr.Literals(guard)
	conjunctive := boolexpr.IsConjunction(guard)

	m := &Map{selected: map[string]certificate.Entry{}, literal: map[string]relation.Relation{}, Exact: true}
	for _, lit := range literals {
		entries := store.Entries(lit)
		if len(entries) == 0 {
			if conjunctive {
				return nil, false
			}
			continue
		}
		// Prefer an exact entry when one exists, otherwise take the first
		// (insertion-ordered, so Rule R/E/F priority from the engine's own
		// saturation order is preserved).
		chosen := entries[0]
		for _, e := range entries {
			if e.Exact {
				chosen = e
				break
			}
		}
		m.selected[lit.Key()] = chosen
		m.literal[lit.Key()] = lit
		if !chosen.Exact {
			m.Exact = false
		}
	}

	if !closeDependencies(m, store, conjunctive) {
		return nil, false
	}
	return m, true
}

// Verify re-derives, from scratch and by a different algorithm (Kahn's
// topological sort rather than closeDependencies' recursive DFS), the two
// properties Build is already supposed to guarantee for the map it
// returns: every dependency of a selected entry is itself selected, and
// the dependency graph has no cycle. Both should be structurally
// impossible once Build has returned ok=true; either one failing here
// means the saturation/closure bookkeeping itself is broken, which is
// §7's "internal invariant violation" rather than an ordinary failed
// acceleration attempt, so it is reported as a *diag.Fatal instead of a
// plain bool.
func Verify(m *Map) error {
	indegree := make(map[string]int, len(m.selected))
	successors := make(map[string][]string, len(m.selected))
	for key := range m.selected {
		if _, ok := indegree[key]; !ok {
			indegree[key] = 0
		}
	}
	for key, entry := range m.selected {
		for _, dep := range entry.Dependencies {
			depKey := dep.Key()
			if _, ok := m.selected[depKey]; !ok {
				return &diag.Fatal{Message: fmt.Sprintf(
					"replacement map selected %s but its dependency %s was never resolved into the map",
					m.literal[key], dep)}
			}
			successors[depKey] = append(successors[depKey], key)
			indegree[key]++
		}
	}

	var queue []string
	for key, d := range indegree {
		if d == 0 {
			queue = append(queue, key)
		}
	}
	visited := 0
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range successors[key] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	if visited != len(m.selected) {
		return &diag.Fatal{Message: fmt.Sprintf(
			"replacement map contains a dependency cycle among %d of its %d entries",
			len(m.selected)-visited, len(m.selected))}
	}
	return nil
}

// closeDependencies brings every dependency of a selected entry into the
// map too, recursively, detecting cycles along the way (a dependency chain
// that revisits a literal still awaiting its own selection is not
// well-founded and the whole acceleration must fail).
func closeDependencies(m *Map, store *certificate.Store, conjunctive bool) bool {
	inProgress := map[string]bool{}
	var resolve func(r relation.Relation) bool
	resolve = func(r relation.Relation) bool {
		key := r.Key()
		if _, ok := m.selected[key]; ok {
			return true
		}
		if inProgress[key] {
			return false
		}
		entries := store.Entries(r)
		if len(entries) == 0 {
			return !conjunctive
		}
		inProgress[key] = true
		defer delete(inProgress, key)

		chosen := entries[0]
		for _, e := range entries {
			if e.Exact {
				chosen = e
				break
			}
		}
		for _, dep := range chosen.Dependencies {
			if !resolve(dep) {
				return false
			}
		}
		m.selected[key] = chosen
		m.literal[key] = r
		if !chosen.Exact {
			m.Exact = false
		}
		return true
	}

	// Snapshot the already-selected literals' dependencies before mutating
	// the map via resolve (Go map iteration order is otherwise undefined,
	// but we only read m.selected's current keys here, not during resolve's
	// own writes to it).
	var pending []certificate.Entry
	for _, e := range m.selected {
		pending = append(pending, e)
	}
	for _, e := range pending {
		for _, dep := range e.Dependencies {
			if !resolve(dep) {
				return false
			}
		}
	}
	return true
}
