// SPDX-License-Identifier: Apache-2.0
package main

import (
	"flag"
	"log"
	"os"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"loat/internal/config"
	"loat/internal/lsp"
)

const lsName = "loat"

var version = "0.0.1"

func main() {
	cfg := config.Default()
	fs := flag.NewFlagSet("loat-lsp", flag.ExitOnError)
	config.RegisterFlags(fs, &cfg)
	fs.Parse(os.Args[1:])

	commonlog.Configure(1, nil)

	h := lsp.NewHandler(cfg)

	handler := protocol.Handler{
		Initialize:            h.Initialize,
		Initialized:           h.Initialized,
		Shutdown:              h.Shutdown,
		TextDocumentDidOpen:   h.TextDocumentDidOpen,
		TextDocumentDidClose:  h.TextDocumentDidClose,
		TextDocumentDidChange: h.TextDocumentDidChange,
	}

	s := server.NewServer(&handler, lsName, false)

	log.Println("Starting loat LSP server...")
	if err := s.RunStdio(); err != nil {
		log.Println("Error starting loat LSP server:", err)
		os.Exit(1)
	}
}
