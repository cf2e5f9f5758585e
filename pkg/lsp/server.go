package lsp

import (
	"context"
	"encoding/json"
	"strings"

	lsp "github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
	"src.marktree.dev/pkg/diag"
	"src.marktree.dev/pkg/md"
	"src.marktree.dev/pkg/md/ast"
	"src.marktree.dev/pkg/parse"
)

var (
	errMethodNotFound = &jsonrpc2.Error{
		Code: jsonrpc2.CodeMethodNotFound, Message: "method not found"}
	errInvalidParams = &jsonrpc2.Error{
		Code: jsonrpc2.CodeInvalidParams, Message: "invalid params"}
	errUnknownDocument = &jsonrpc2.Error{
		Code: jsonrpc2.CodeInvalidParams, Message: "unknown document"}
)

type document struct {
	session *md.Session
	content string
	result  md.Result
}

type server struct {
	opts     md.Options
	docs     map[lsp.DocumentURI]*document
	shutdown bool
	// Called on exit.
	exit func()
}

func newServer(opts md.Options, exit func()) *server {
	return &server{opts: opts, docs: make(map[lsp.DocumentURI]*document), exit: exit}
}

func (s *server) handler() jsonrpc2.Handler {
	return routingHandler(map[string]method{
		"initialize":                  s.initialize,
		"shutdown":                    s.shutdownMethod,
		"exit":                        s.exitMethod,
		"textDocument/didOpen":        s.didOpen,
		"textDocument/didChange":      s.didChange,
		"textDocument/didClose":       s.didClose,
		"textDocument/documentSymbol": s.documentSymbol,

		// Required by the LSP protocol.
		"initialized": noop,
		// Called by clients even when server doesn't advertise support:
		// https://microsoft.github.io/language-server-protocol/specification#workspace_didChangeWatchedFiles
		"workspace/didChangeWatchedFiles": noop,
	})
}

type method func(context.Context, jsonrpc2.JSONRPC2, json.RawMessage) (any, error)

func noop(_ context.Context, _ jsonrpc2.JSONRPC2, _ json.RawMessage) (any, error) {
	return nil, nil
}

func routingHandler(methods map[string]method) jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		fn, ok := methods[req.Method]
		if !ok {
			logger.Debugf("unhandled method %s", req.Method)
			return nil, errMethodNotFound
		}
		var params json.RawMessage
		if req.Params != nil {
			params = *req.Params
		}
		return fn(ctx, conn, params)
	})
}

// Handler implementations. These are all called synchronously.

func (s *server) initialize(_ context.Context, _ jsonrpc2.JSONRPC2, _ json.RawMessage) (any, error) {
	return &lsp.InitializeResult{
		Capabilities: lsp.ServerCapabilities{
			TextDocumentSync: &lsp.TextDocumentSyncOptionsOrKind{
				Options: &lsp.TextDocumentSyncOptions{
					OpenClose: true,
					Change:    lsp.TDSKIncremental,
				},
			},
			DocumentSymbolProvider: true,
		},
	}, nil
}

func (s *server) shutdownMethod(_ context.Context, _ jsonrpc2.JSONRPC2, _ json.RawMessage) (any, error) {
	s.shutdown = true
	clear(s.docs)
	return nil, nil
}

func (s *server) exitMethod(_ context.Context, _ jsonrpc2.JSONRPC2, _ json.RawMessage) (any, error) {
	if !s.shutdown {
		logger.Warning("exit without shutdown")
	}
	if s.exit != nil {
		s.exit()
	}
	return nil, nil
}

func (s *server) didOpen(ctx context.Context, conn jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DidOpenTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}

	uri := params.TextDocument.URI
	doc := &document{session: md.NewSession(string(uri), s.opts)}
	s.docs[uri] = doc
	doc.update(params.TextDocument.Text)
	go publishDiagnostics(ctx, conn, uri, doc.content, doc.result.Diagnostics)
	return nil, nil
}

func (s *server) didChange(ctx context.Context, conn jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DidChangeTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}

	uri := params.TextDocument.URI
	doc, ok := s.docs[uri]
	if !ok {
		return nil, errUnknownDocument
	}
	content := doc.content
	for _, change := range params.ContentChanges {
		content = applyChange(content, change)
	}
	doc.update(content)
	logger.Debugf("%s: reparsed from token %d of %d",
		uri, doc.result.Stats.ResumedAt, doc.result.Stats.Tokens)
	go publishDiagnostics(ctx, conn, uri, doc.content, doc.result.Diagnostics)
	return nil, nil
}

func (s *server) didClose(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DidCloseTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	delete(s.docs, params.TextDocument.URI)
	return nil, nil
}

func (s *server) documentSymbol(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DocumentSymbolParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	uri := params.TextDocument.URI
	doc, ok := s.docs[uri]
	if !ok {
		return nil, errUnknownDocument
	}
	return headingSymbols(uri, doc.content, doc.result.Tree), nil
}

func (d *document) update(content string) {
	d.content = content
	d.result = d.session.Update(content)
}

// Applies a content change. A change without a range replaces the whole
// content.
func applyChange(content string, change lsp.TextDocumentContentChangeEvent) string {
	if change.Range == nil {
		return change.Text
	}
	from := lspPositionToIdx(content, change.Range.Start)
	to := lspPositionToIdx(content, change.Range.End)
	if to < from {
		from, to = to, from
	}
	return content[:from] + change.Text + content[to:]
}

// Lists headings, each contained in the closest preceding heading of a lower
// level.
func headingSymbols(uri lsp.DocumentURI, content string, tree *parse.Node) []lsp.SymbolInformation {
	symbols := []lsp.SymbolInformation{}
	var outline [7]string
	parse.Walk(tree, func(n *parse.Node, entering bool) parse.WalkStatus {
		if !entering {
			return parse.WalkContinue
		}
		if n.Type != ast.Heading {
			if ast.IsBlock(n.Type) {
				return parse.WalkContinue
			}
			return parse.WalkSkipChildren
		}
		level := int(n.Value[0] - '0')
		name := strings.TrimSpace(ast.PlainText(n))
		var container string
		for l := level - 1; l > 0; l-- {
			if outline[l] != "" {
				container = outline[l]
				break
			}
		}
		outline[level] = name
		for l := level + 1; l < len(outline); l++ {
			outline[l] = ""
		}
		symbols = append(symbols, lsp.SymbolInformation{
			Name:          name,
			Kind:          lsp.SKString,
			Location:      lsp.Location{URI: uri, Range: lspRangeFromRange(content, n)},
			ContainerName: container,
		})
		return parse.WalkSkipChildren
	})
	return symbols
}

func publishDiagnostics(ctx context.Context, conn jsonrpc2.JSONRPC2, uri lsp.DocumentURI, content string, errs []*diag.Error) {
	err := conn.Notify(ctx, "textDocument/publishDiagnostics",
		lsp.PublishDiagnosticsParams{URI: uri, Diagnostics: diagnostics(content, errs)})
	if err != nil {
		logger.Debugf("publish diagnostics for %s: %v", uri, err)
	}
}

func diagnostics(content string, errs []*diag.Error) []lsp.Diagnostic {
	diags := make([]lsp.Diagnostic, len(errs))
	for i, err := range errs {
		diags[i] = lsp.Diagnostic{
			Range:    lspRangeFromRange(content, err),
			Severity: lsp.Error,
			Source:   "marktree",
			Message:  err.Type + ": " + err.Message,
		}
	}
	return diags
}

func lspRangeFromRange(s string, r diag.Ranger) lsp.Range {
	rg := r.Range()
	return lsp.Range{
		Start: lspPositionFromIdx(s, rg.From),
		End:   lspPositionFromIdx(s, rg.To),
	}
}

func lspPositionToIdx(s string, pos lsp.Position) int {
	var idx int
	walkString(s, func(i int, p lsp.Position) bool {
		idx = i
		return p.Line < pos.Line || (p.Line == pos.Line && p.Character < pos.Character)
	})
	return idx
}

func lspPositionFromIdx(s string, idx int) lsp.Position {
	var pos lsp.Position
	walkString(s, func(i int, p lsp.Position) bool {
		pos = p
		return i < idx
	})
	return pos
}

// Generates (index, lspPosition) pairs in s, stopping if f returns false.
func walkString(s string, f func(i int, p lsp.Position) bool) {
	var p lsp.Position
	lastCR := false

	for i, r := range s {
		if r == '\n' && lastCR {
			// The \n of a \r\n sequence has no position of its own.
			lastCR = false
			continue
		}
		if !f(i, p) {
			return
		}
		switch {
		case r == '\r', r == '\n':
			p.Line++
			p.Character = 0
		case r <= 0xFFFF:
			// Encoded in UTF-16 with one unit
			p.Character++
		default:
			// Encoded in UTF-16 with two units
			p.Character += 2
		}
		lastCR = r == '\r'
	}
	f(len(s), p)
}
