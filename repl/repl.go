// Package repl is an interactive read-eval-print loop for the rule DSL:
// each line is parsed as one rule, fed through the acceleration pipeline,
// and the results are printed immediately.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"loat/grammar"
	"loat/internal/accel"
	"loat/internal/config"
	"loat/internal/diag"
	"loat/internal/parser"
	"loat/internal/qe"
	"loat/internal/recurrence"
	"loat/internal/smt/linsmt"
	"loat/internal/varmgr"
)

const Prompt = ">> "

// Start runs the loop until in is exhausted, writing prompts and output to out.
func Start(in io.Reader, out io.Writer, cfg config.Options) {
	scanner := bufio.NewScanner(in)
	mgr := varmgr.New()
	builder := parser.NewBuilder(mgr)
	oracle := linsmt.New()

	for {
		fmt.Fprint(out, Prompt)
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		if line == "" {
			continue
		}

		program, err := grammar.ParseString("<repl>", line)
		if err != nil {
			grammar.ReportParseError(line, err)
			continue
		}

		for _, decl := range program.Rules {
			rule, err := builder.Rule(decl)
			if err != nil {
				fmt.Fprintf(out, "error: %s\n", err)
				continue
			}

			iter := mgr.AddFreshTemporaryVariable("n")
			closed, hasClosedForm := recurrence.Affine{}.Iterate(rule.Update, rule.Cost, iter)
			problem := &accel.Problem{Rule: rule, HasClosedForm: hasClosedForm, Iter: iter, ComplexityMode: cfg.ComplexityMode}
			if hasClosedForm {
				problem.Closed = closed.Update
				problem.IteratedCost = closed.Cost
				problem.ValidityBound = closed.ValidityBound
			}

			ctx, cancel := context.WithTimeout(context.Background(), cfg.OracleTimeout)
			results, _, err := problem.Compute(ctx, oracle, qe.NoExternalQE{}, mgr)
			cancel()

			// The REPL session stays up across a *diag.Fatal, same as the
			// LSP server; only cmd/loat-cli's batch run aborts the process.
			var fatal *diag.Fatal
			if errors.As(err, &fatal) {
				fmt.Fprintf(out, "%s: %s\n", decl.Name, fatal.Error())
				continue
			}

			if len(results) == 0 {
				fmt.Fprintf(out, "%s: no result\n", decl.Name)
				continue
			}
			for _, r := range results {
				if r.Nonterminating {
					fmt.Fprintf(out, "%s: non-terminating under %s (exact=%v)\n", decl.Name, r.NewGuard, r.Exact)
					continue
				}
				fmt.Fprintf(out, "%s: accelerated guard %s, cost %s (exact=%v)\n", decl.Name, r.NewGuard, r.Cost, r.Exact)
			}
		}
	}
}
