// SPDX-License-Identifier: Apache-2.0
package main

import (
	"flag"
	"os"

	"loat/internal/config"
	"loat/repl"
)

func main() {
	cfg := config.Default()
	fs := flag.NewFlagSet("loat-repl", flag.ExitOnError)
	config.RegisterFlags(fs, &cfg)
	fs.Parse(os.Args[1:])

	repl.Start(os.Stdin, os.Stdout, cfg)
}
