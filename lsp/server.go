// Package lsp is a language server for RE^2 assembly source.
package lsp

import (
	"path"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"
)

const NAME = "re2-lsp"

var log = commonlog.GetLogger(NAME)

// document is an open text document and its latest analysis.
type document struct {
	text     string
	analysis *Analysis
}

// Server bridges LSP editor features to the assembler.
type Server struct {
	Version string

	mu   sync.Mutex
	docs map[protocol.DocumentUri]*document

	handler protocol.Handler
	server  *glspserver.Server
}

// NewServer creates a new language server.
func NewServer(version string) (s *Server) {
	s = &Server{
		Version: version,
		docs:    make(map[protocol.DocumentUri]*document),
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
	}

	s.server = glspserver.NewServer(&s.handler, NAME, false)

	return
}

// RunStdio serves on stdin and stdout until the client disconnects.
func (s *Server) RunStdio() error {
	return s.server.RunStdio()
}

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("initializing")

	capabilities := s.handler.CreateServerCapabilities()

	openClose := true
	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &openClose,
		Change:    &syncKind,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"."},
	}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    NAME,
			Version: &s.Version,
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// update stores a new document text and analyses it.
func (s *Server) update(uri protocol.DocumentUri, text string) (an *Analysis) {
	an = Analyze(path.Base(string(uri)), text)

	s.mu.Lock()
	s.docs[uri] = &document{text: text, analysis: an}
	s.mu.Unlock()

	log.Debugf("%v: %v diagnostic(s)", uri, len(an.Diagnostics))

	return
}

// lookup returns an open document.
func (s *Server) lookup(uri protocol.DocumentUri) (doc *document, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok = s.docs[uri]
	return
}

func (s *Server) publish(ctx *glsp.Context, uri protocol.DocumentUri, an *Analysis) {
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: an.diagnostics(NAME),
	})
}

func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.publish(ctx, uri, s.update(uri, params.TextDocument.Text))
	return nil
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	if len(params.ContentChanges) == 0 {
		return nil
	}

	switch change := params.ContentChanges[len(params.ContentChanges)-1].(type) {
	case protocol.TextDocumentContentChangeEventWhole:
		s.publish(ctx, uri, s.update(uri, change.Text))
	default:
		log.Warningf("%v: incremental change ignored", uri)
	}

	return nil
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *Server) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc, ok := s.lookup(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	prefix := extractPrefix(doc.text, params.Position)
	if len(prefix) == 0 {
		return nil, nil
	}

	return doc.analysis.complete(prefix), nil
}

func (s *Server) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, ok := s.lookup(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	text, ok := doc.analysis.hover(extractWord(doc.text, params.Position))
	if !ok {
		return nil, nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: text,
		},
	}, nil
}

func (s *Server) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI

	doc, ok := s.lookup(uri)
	if !ok {
		return nil, nil
	}

	loc := doc.analysis.definition(uri, extractWord(doc.text, params.Position))
	if loc == nil {
		return nil, nil
	}

	return loc, nil
}
