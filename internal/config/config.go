// Package config defines the calculus's ambient runtime options: a small
// Options struct populated from the standard library's flag package
// rather than reaching for an unused dependency.
package config

import (
	"flag"
	"time"
)

// Options controls the parts of the calculus that are not purely
// determined by the input rule: the per-rule oracle deadline, whether the
// §4.5/original_source cost>0 obligation applies to non-termination
// results, and proof-trace verbosity.
type Options struct {
	// OracleTimeout is the deadline of the context each front end passes
	// to one rule's Compute call, so every oracle call for that rule shares
	// it (§6.2: "no timing contract is fixed by the core; implementations
	// commonly use 1s"). The bundled linsmt oracle does not consult it.
	OracleTimeout time.Duration
	// ComplexityMode gates the cost > 0 obligation on non-termination
	// results (§4.5's original_source/ supplement).
	ComplexityMode bool
	// Verbose prints the proof trace; without it no trace is printed.
	Verbose bool
}

// Default picks a timeout that keeps oracle calls snappy in interactive use.
func Default() Options {
	return Options{OracleTimeout: time.Second, ComplexityMode: false, Verbose: false}
}

// RegisterFlags wires o's fields to the standard flag.FlagSet.
func RegisterFlags(fs *flag.FlagSet, o *Options) {
	fs.DurationVar(&o.OracleTimeout, "oracle-timeout", o.OracleTimeout, "per-rule SMT/QE oracle deadline")
	fs.BoolVar(&o.ComplexityMode, "complexity", o.ComplexityMode, "require cost > 0 before accepting a non-termination result")
	fs.BoolVar(&o.Verbose, "verbose", o.Verbose, "print the full proof trace")
}
