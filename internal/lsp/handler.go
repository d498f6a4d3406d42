// Package lsp implements the language server for the rule DSL (grammar
// package): on every open/change of a .loat file it reparses, builds the
// its.Rule, and republishes diagnostics summarizing what the acceleration
// calculus found for it. One Handler struct holds per-document state
// behind a mutex and is wired to a protocol.Handler by cmd/loat-lsp.
package lsp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/alecthomas/participle/v2"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

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

// Handler implements the LSP server handlers for the rule DSL.
type Handler struct {
	mu      sync.RWMutex
	content map[string]string
	cfg     config.Options
}

// NewHandler creates a new Handler using cfg for every acceleration run.
func NewHandler(cfg config.Options) *Handler {
	return &Handler{content: make(map[string]string), cfg: cfg}
}

func (h *Handler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
		},
	}, nil
}

func (h *Handler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (h *Handler) Shutdown(ctx *glsp.Context) error {
	return nil
}

func (h *Handler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	return h.refresh(ctx, params.TextDocument.URI, params.TextDocument.Text)
}

func (h *Handler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	// TextDocumentSyncKindFull guarantees the last change event carries the
	// whole document text.
	last := params.ContentChanges[len(params.ContentChanges)-1]
	full, ok := last.(protocol.TextDocumentContentChangeEventWhole)
	if !ok {
		return nil
	}
	return h.refresh(ctx, params.TextDocument.URI, full.Text)
}

func (h *Handler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}
	h.mu.Lock()
	delete(h.content, path)
	h.mu.Unlock()
	return nil
}

// refresh reparses and reaccelerates the document, then publishes either the
// parse error or one diagnostic per rule summarizing what was found.
func (h *Handler) refresh(ctx *glsp.Context, uri protocol.DocumentUri, text string) error {
	path, err := uriToPath(uri)
	if err != nil {
		return fmt.Errorf("failed to convert URI %s: %w", uri, err)
	}

	h.mu.Lock()
	h.content[path] = text
	h.mu.Unlock()

	program, err := grammar.ParseString(path, text)
	if err != nil {
		ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
			URI:         uri,
			Diagnostics: []protocol.Diagnostic{parseErrorDiagnostic(err)},
		})
		return nil
	}

	diagnostics := h.accelerateAll(program)
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
	return nil
}

func (h *Handler) accelerateAll(program *grammar.Program) []protocol.Diagnostic {
	mgr := varmgr.New()
	builder := parser.NewBuilder(mgr)
	oracle := linsmt.New()

	var diagnostics []protocol.Diagnostic
	for _, decl := range program.Rules {
		rule, err := builder.Rule(decl)
		if err != nil {
			diagnostics = append(diagnostics, ruleDiagnostic(decl, diag.Diagnostic{Level: diag.Error, Message: err.Error()}))
			continue
		}

		iter := mgr.AddFreshTemporaryVariable("n")
		closed, hasClosedForm := recurrence.Affine{}.Iterate(rule.Update, rule.Cost, iter)
		problem := &accel.Problem{Rule: rule, HasClosedForm: hasClosedForm, Iter: iter, ComplexityMode: h.cfg.ComplexityMode}
		if hasClosedForm {
			problem.Closed = closed.Update
			problem.IteratedCost = closed.Cost
			problem.ValidityBound = closed.ValidityBound
		}

		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.OracleTimeout)
		results, _, err := problem.Compute(ctx, oracle, qe.NoExternalQE{}, mgr)
		cancel()

		// Unlike cmd/loat-cli, the server is long-lived: a *diag.Fatal is
		// reported as an ordinary error diagnostic on the offending rule
		// rather than aborting the whole process.
		var fatal *diag.Fatal
		if errors.As(err, &fatal) {
			diagnostics = append(diagnostics, ruleDiagnostic(decl, diag.Diagnostic{Level: diag.Error, Message: fatal.Error()}))
			continue
		}

		if len(results) == 0 {
			diagnostics = append(diagnostics, ruleDiagnostic(decl, diag.Diagnostic{Level: diag.Info, Message: "no acceleration or non-termination result found"}))
			continue
		}
		for _, r := range results {
			if r.Nonterminating {
				diagnostics = append(diagnostics, ruleDiagnostic(decl, diag.Diagnostic{
					Level:   diag.Warn,
					Message: fmt.Sprintf("non-terminating under: %s", r.NewGuard),
				}))
				continue
			}
			diagnostics = append(diagnostics, ruleDiagnostic(decl, diag.Diagnostic{
				Level:   diag.Hint,
				Message: fmt.Sprintf("accelerated guard: %s (cost %s)", r.NewGuard, r.Cost),
			}))
		}
	}
	return diagnostics
}

// diagSeverity maps a diag.Level onto the LSP severity it corresponds to.
// diag.Note has no LSP counterpart and, like any unknown level, maps to
// Information.
func diagSeverity(level diag.Level) protocol.DiagnosticSeverity {
	switch level {
	case diag.Error:
		return protocol.DiagnosticSeverityError
	case diag.Warn:
		return protocol.DiagnosticSeverityWarning
	case diag.Info:
		return protocol.DiagnosticSeverityInformation
	case diag.Hint:
		return protocol.DiagnosticSeverityHint
	default:
		return protocol.DiagnosticSeverityInformation
	}
}

func ruleDiagnostic(decl *grammar.RuleDecl, d diag.Diagnostic) protocol.Diagnostic {
	sev := diagSeverity(d.Level)
	line := uint32(decl.Pos.Line - 1)
	col := uint32(decl.Pos.Column - 1)
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: col},
			End:   protocol.Position{Line: line, Character: col + uint32(len(decl.Name)) + 5},
		},
		Severity: &sev,
		Source:   ptrString("loat"),
		Message:  d.Message,
	}
}

func parseErrorDiagnostic(err error) protocol.Diagnostic {
	sev := protocol.DiagnosticSeverityError
	line, col := uint32(0), uint32(0)
	if pe, ok := err.(participle.Error); ok {
		pos := pe.Position()
		if pos.Line > 0 {
			line = uint32(pos.Line - 1)
		}
		if pos.Column > 0 {
			col = uint32(pos.Column - 1)
		}
	}
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: col},
			End:   protocol.Position{Line: line, Character: col + 1},
		},
		Severity: &sev,
		Source:   ptrString("loat-parser"),
		Message:  err.Error(),
	}
}

func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(string(rawURI))
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}

	path := u.Path
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}
	return filepath.FromSlash(path), nil
}

func ptrBool(b bool) *bool { return &b }

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind { return &k }

func ptrString(s string) *string { return &s }
