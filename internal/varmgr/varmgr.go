// Package varmgr implements the variable manager external interface (§6.5):
// an append-only allocator for program and temporary variables, owned by
// the caller and shared across the acceleration calculus.
package varmgr

import (
	"sync"

	"loat/internal/expr"
	"loat/internal/variable"
)

// Manager hands out fresh variables. It is the only place in the calculus
// that mutates shared state, and it never removes a variable once added.
type Manager struct {
	mu      sync.Mutex
	nextID  uint64
	isTemp  map[variable.Variable]bool
	counter map[string]int
}

func New() *Manager {
	return &Manager{
		nextID:  1,
		isTemp:  make(map[variable.Variable]bool),
		counter: make(map[string]int),
	}
}

// AddFreshVariable allocates a new program variable. If name collides with
// one already handed out, a numeric suffix is appended so symbols stay
// distinguishable in proof output while IDs remain the true identity.
func (m *Manager) AddFreshVariable(name string) variable.Variable {
	return m.add(name, variable.Program)
}

// AddFreshTemporaryVariable allocates a new temporary variable. Temporaries
// are universally quantified in the resulting accelerated rule.
func (m *Manager) AddFreshTemporaryVariable(name string) variable.Variable {
	return m.add(name, variable.Temporary)
}

func (m *Manager) add(name string, kind variable.Kind) variable.Variable {
	m.mu.Lock()
	defer m.mu.Unlock()
	display := name
	if n := m.counter[name]; n > 0 {
		display = name + itoa(n)
	}
	m.counter[name]++
	v := variable.Variable{ID: m.nextID, Name: display, Kind: kind}
	m.nextID++
	if kind == variable.Temporary {
		m.isTemp[v] = true
	}
	return v
}

// GetVarSymbol returns the expression referencing v.
func (m *Manager) GetVarSymbol(v variable.Variable) expr.Expr {
	return expr.NewVar(v)
}

// IsTempVar reports whether v was allocated via AddFreshTemporaryVariable.
func (m *Manager) IsTempVar(v variable.Variable) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isTemp[v]
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
