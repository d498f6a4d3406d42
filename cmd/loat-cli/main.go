// SPDX-License-Identifier: Apache-2.0
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/fatih/color"

	"loat/grammar"
	"loat/internal/accel"
	"loat/internal/config"
	"loat/internal/diag"
	"loat/internal/its"
	"loat/internal/parser"
	"loat/internal/proof"
	"loat/internal/qe"
	"loat/internal/recurrence"
	"loat/internal/smt/linsmt"
	"loat/internal/varmgr"
)

func main() {
	cfg := config.Default()
	fs := flag.NewFlagSet("loat", flag.ExitOnError)
	config.RegisterFlags(fs, &cfg)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: loat [flags] <file.loat>")
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	path := fs.Arg(0)
	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("Failed to read file: %s", err)
		os.Exit(1)
	}

	program, err := grammar.ParseString(path, string(source))
	if err != nil {
		grammar.ReportParseError(string(source), err)
		os.Exit(1)
	}

	mgr := varmgr.New()
	builder := parser.NewBuilder(mgr)
	oracle := linsmt.New()
	external := qe.NoExternalQE{}
	reporter := diag.NewReporter(path, string(source))

	failed := false
	for _, decl := range program.Rules {
		rule, err := builder.Rule(decl)
		if err != nil {
			fmt.Print(reporter.Format(diag.Diagnostic{
				Level:   diag.Error,
				Message: fmt.Sprintf("failed to build rule %s: %s", decl.Name, err),
				Pos:     posOf(decl.Pos),
			}))
			failed = true
			continue
		}
		if !runRule(cfg, decl, rule, mgr, oracle, external, reporter) {
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
}

// posOf bridges the DSL parser's source positions into diag's own Position,
// which carries no dependency on the parser library.
func posOf(p lexer.Position) diag.Position {
	return diag.Position{Filename: p.Filename, Line: p.Line, Column: p.Column}
}

// runRule reports one rule's acceleration results through reporter and
// returns false if the rule's own Compute call hit a *diag.Fatal, which
// aborts the whole process once every rule has been attempted.
func runRule(cfg config.Options, decl *grammar.RuleDecl, rule its.Rule, mgr *varmgr.Manager, oracle *linsmt.Solver, external qe.ExternalOracle, reporter *diag.Reporter) bool {
	color.Cyan("== %s ==", decl.Name)

	iter := mgr.AddFreshTemporaryVariable("n")
	closedResult, hasClosedForm := recurrence.Affine{}.Iterate(rule.Update, rule.Cost, iter)

	problem := &accel.Problem{
		Rule:           rule,
		HasClosedForm:  hasClosedForm,
		Iter:           iter,
		ComplexityMode: cfg.ComplexityMode,
	}
	if hasClosedForm {
		problem.Closed = closedResult.Update
		problem.IteratedCost = closedResult.Cost
		problem.ValidityBound = closedResult.ValidityBound
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.OracleTimeout)
	defer cancel()

	results, trace, err := problem.Compute(ctx, oracle, external, mgr)

	if cfg.Verbose {
		printTrace(trace)
	}

	var fatal *diag.Fatal
	if errors.As(err, &fatal) {
		fmt.Print(reporter.Format(diag.Diagnostic{
			Level:   diag.Error,
			Message: fmt.Sprintf("%s: %s", decl.Name, fatal.Error()),
			Pos:     posOf(decl.Pos),
		}))
		return false
	}

	if len(results) == 0 {
		fmt.Print(reporter.Format(diag.Diagnostic{
			Level:   diag.Info,
			Message: fmt.Sprintf("no acceleration or non-termination result found for %s", decl.Name),
			Pos:     posOf(decl.Pos),
		}))
		return true
	}
	for _, r := range results {
		if r.Nonterminating {
			fmt.Print(reporter.Format(diag.Diagnostic{
				Level:   diag.Warn,
				Message: fmt.Sprintf("%s does not terminate (exact=%v): %s", decl.Name, r.Exact, r.NewGuard),
				Pos:     posOf(decl.Pos),
			}))
			continue
		}
		fmt.Print(reporter.Format(diag.Diagnostic{
			Level:   diag.Hint,
			Message: fmt.Sprintf("accelerated guard for %s (exact=%v): %s", decl.Name, r.Exact, r.NewGuard),
			Pos:     posOf(decl.Pos),
			Notes:   []string{fmt.Sprintf("iterated cost: %s", r.Cost)},
		}))
	}
	return true
}

func printTrace(trace *proof.Trace) {
	for _, e := range trace.Entries() {
		if e.Line != "" {
			fmt.Printf("  . %s\n", e.Line)
			continue
		}
		fmt.Printf("  [%s] %s -> %s\n", e.Rule, e.Literal, e.EmittedFormula)
	}
}
