package diag

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func init() {
	color.NoColor = true
}

func TestFormatRendersCodeMessageAndLocation(t *testing.T) {
	source := "rule loop {\n  guard x > 0\n  update x := x + 1\n}\n"
	r := NewReporter("loop.rules", source)

	d := Diagnostic{
		Level:   Error,
		Code:    "E0001",
		Message: "oracle reported unknown for a non-linear literal",
		Pos:     Position{Filename: "loop.rules", Line: 2, Column: 9},
	}

	out := r.Format(d)
	assert.Contains(t, out, "E0001")
	assert.Contains(t, out, "oracle reported unknown for a non-linear literal")
	assert.Contains(t, out, "loop.rules:2:9")
	assert.Contains(t, out, "guard x > 0", "the offending source line is quoted for context")
}

func TestFormatOmitsCodeWhenEmpty(t *testing.T) {
	r := NewReporter("loop.rules", "guard x > 0\n")
	d := Diagnostic{Level: Warn, Message: "unsupported prefix ignored"}

	out := r.Format(d)
	assert.NotContains(t, out, "[]")
	assert.Contains(t, out, "unsupported prefix ignored")
}

func TestFormatAppendsNotes(t *testing.T) {
	r := NewReporter("loop.rules", "guard x > 0\n")
	d := Diagnostic{
		Level:   Note,
		Message: "falling back to the external oracle",
		Notes:   []string{"no proof rule could certify this literal directly"},
	}

	out := r.Format(d)
	assert.Contains(t, out, "note:")
	assert.Contains(t, out, "no proof rule could certify this literal directly")
}

func TestFormatSkipsSourceContextWithoutAPosition(t *testing.T) {
	r := NewReporter("loop.rules", "guard x > 0\n")
	d := Diagnostic{Level: Error, Message: "internal invariant violation"}

	out := r.Format(d)
	assert.NotContains(t, out, "-->")
}

func TestFatalErrorMessage(t *testing.T) {
	err := &Fatal{Message: "unsat core came back empty"}
	assert.Equal(t, "internal invariant violation: unsat core came back empty", err.Error())
}
