package variable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariableIdentityIsByID(t *testing.T) {
	a := Variable{ID: 1, Name: "x", Kind: Program}
	b := Variable{ID: 2, Name: "x", Kind: Program}
	assert.NotEqual(t, a, b, "same name but different IDs must be distinct variables")
	assert.Equal(t, "x", a.String())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "program", Program.String())
	assert.Equal(t, "temp", Temporary.String())
}

func TestIsTemporary(t *testing.T) {
	assert.False(t, Variable{Kind: Program}.IsTemporary())
	assert.True(t, Variable{Kind: Temporary}.IsTemporary())
}

func TestSetOperations(t *testing.T) {
	x := Variable{ID: 1, Name: "x"}
	y := Variable{ID: 2, Name: "y"}
	z := Variable{ID: 3, Name: "z"}

	s := NewSet(x, y)
	assert.True(t, s.Has(x))
	assert.False(t, s.Has(z))

	s.Add(z)
	assert.True(t, s.Has(z))

	other := NewSet(y, z)
	union := s.Union(other)
	assert.Len(t, union, 3)
	assert.ElementsMatch(t, []Variable{x, y, z}, union.Slice())
}
