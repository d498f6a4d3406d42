package repl

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"loat/internal/config"
)

func run(t *testing.T, src string) string {
	t.Helper()
	var out strings.Builder
	cfg := config.Default()
	cfg.OracleTimeout = time.Second
	Start(strings.NewReader(src), &out, cfg)
	return out.String()
}

func TestStartPrintsAcceleratedGuardForABoundedCounter(t *testing.T) {
	out := run(t, "rule counter { guard: i < N; update: i = i + 1; cost: 1; }\n")
	assert.Contains(t, out, Prompt)
	assert.Contains(t, out, "counter: accelerated guard")
	assert.Contains(t, out, "exact=true")
}

func TestStartPrintsNonterminationForAnUnboundedIncrement(t *testing.T) {
	out := run(t, "rule grows { guard: x > 0; update: x = x + 1; }\n")
	assert.Contains(t, out, "grows: non-terminating under")
}

func TestStartSkipsBlankLines(t *testing.T) {
	out := run(t, "\n\n")
	assert.Equal(t, strings.Repeat(Prompt, 3), out, "each scanned line, blank or not, reprints the prompt; only blank lines produce no rule output")
}

func TestStartReportsParseErrorsAndKeepsGoing(t *testing.T) {
	out := run(t, "not a rule\nrule grows { guard: x > 0; update: x = x + 1; }\n")
	assert.Contains(t, out, "grows: non-terminating under", "a later valid line still gets processed after a parse error")
}

func TestStartPrintsNoResultWhenCertificationFails(t *testing.T) {
	out := run(t, "rule stuck { guard: x > 0 && x < 1; update: x = x * x; }\n")
	assert.Contains(t, out, "stuck: no result")
}

func TestStartExitsCleanlyOnEOF(t *testing.T) {
	out := run(t, "")
	assert.Equal(t, Prompt, out, "a single prompt is printed before Scan observes EOF and Start returns")
}
