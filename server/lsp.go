// Package server implements the language server for fuzzy rule files.
//
// Every open document is compiled on each change. Parse, lowering and
// resolution failures are published as diagnostics; when no variables are
// configured only parsing and lowering are checked.
package server

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf16"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/fuzzyvm/compiler"
	"github.com/chazu/fuzzyvm/pkg/fuzzy"
	"github.com/chazu/fuzzyvm/pkg/sexp"
)

const lspName = "fuzzyvm-lsp"

var log = commonlog.GetLogger("fuzzyvm.lsp")

// Keywords of the rule language offered by completion.
var Keywords = []string{"if", "is", "and", "or", "set!"}

// LspServer serves diagnostics, completion, hover and references for rule
// files.
type LspServer struct {
	compiler *compiler.Compiler
	inputs   map[string]fuzzy.Variable
	outputs  map[string]fuzzy.Variable

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// Option configures an LspServer.
type Option func(*LspServer)

// WithCompiler replaces the compiler built from the embedded rules.
func WithCompiler(c *compiler.Compiler) Option {
	return func(s *LspServer) { s.compiler = c }
}

// WithVariables enables resolution against the controller's inputs and
// outputs.
func WithVariables(inputs, outputs map[string]fuzzy.Variable) Option {
	return func(s *LspServer) {
		s.inputs = inputs
		s.outputs = outputs
	}
}

// NewLSP creates a new language server.
func NewLSP(opts ...Option) (*LspServer, error) {
	s := &LspServer{
		docs:    make(map[string]string),
		version: "0.1.0",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.compiler == nil {
		c, err := compiler.New(nil)
		if err != nil {
			return nil, err
		}
		s.compiler = c
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
		TextDocumentReferences: s.textDocumentReferences,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s, nil
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("fuzzyvm LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"("},
	}

	capabilities.HoverProvider = true
	capabilities.ReferencesProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	prefix := extractPrefix(text, params.Position)
	return s.complete(prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	return s.hover(word), nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	uri := params.TextDocument.URI
	text, ok := s.document(uri)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}

	var locations []protocol.Location
	for _, r := range occurrences(text, word) {
		locations = append(locations, protocol.Location{URI: uri, Range: r})
	}
	return locations, nil
}

// complete returns keywords, variable names and level names starting with
// prefix. An empty prefix matches everything.
func (s *LspServer) complete(prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	seen := make(map[string]bool)
	add := func(label, detail string, kind protocol.CompletionItemKind) {
		if seen[label] || !strings.HasPrefix(label, prefix) {
			return
		}
		seen[label] = true
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &label,
		})
	}

	for _, kw := range Keywords {
		add(kw, "keyword", protocol.CompletionItemKindKeyword)
	}
	for _, name := range sortedNames(s.inputs) {
		add(name, "input", protocol.CompletionItemKindVariable)
	}
	for _, name := range sortedNames(s.outputs) {
		add(name, "output", protocol.CompletionItemKindVariable)
	}
	for _, vars := range []map[string]fuzzy.Variable{s.inputs, s.outputs} {
		for _, name := range sortedNames(vars) {
			for _, level := range vars[name].LevelNames() {
				add(level, "level of "+name, protocol.CompletionItemKindEnumMember)
			}
		}
	}
	return items
}

// hover describes an input or output and its levels.
func (s *LspServer) hover(word string) *protocol.Hover {
	var b strings.Builder
	for _, d := range []struct {
		kind string
		vars map[string]fuzzy.Variable
	}{{"input", s.inputs}, {"output", s.outputs}} {
		v, ok := d.vars[word]
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n---\n\n")
		}
		fmt.Fprintf(&b, "**%s** %s\n\n", word, d.kind)
		for _, level := range v.LevelNames() {
			mf, _ := v.Level(level)
			if t, ok := mf.(*fuzzy.Triangle); ok {
				fmt.Fprintf(&b, "- `%s` [%d %d %d]\n", level, t.X1, t.X2, t.X3)
			} else {
				fmt.Fprintf(&b, "- `%s` apex %d\n", level, mf.Apex())
			}
		}
	}
	if b.Len() == 0 {
		return nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := s.diagnose(text)
	log.Debugf("%s: %d diagnostics", uri, len(diagnostics))

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// diagnose compiles text and reports the first failure. An empty document
// is not an error while it is being written.
func (s *LspServer) diagnose(text string) []protocol.Diagnostic {
	program, err := sexp.ParseString(text)
	if err == nil {
		if program == nil {
			return []protocol.Diagnostic{}
		}
		if s.inputs != nil && s.outputs != nil {
			_, err = s.compiler.Compile(program, s.inputs, s.outputs)
		} else {
			_, err = s.compiler.Lower(program)
		}
	}
	if err == nil {
		return []protocol.Diagnostic{}
	}

	severity := protocol.DiagnosticSeverityError
	source := lspName
	return []protocol.Diagnostic{{
		Range:    errorRange(text, err),
		Severity: &severity,
		Source:   &source,
		Message:  err.Error(),
	}}
}

// errorRange locates err in text. Syntax errors carry a position; resolve
// errors are placed on the first use of the offending name. Anything else
// is reported at the start of the document.
func errorRange(text string, err error) protocol.Range {
	var se *sexp.SyntaxError
	if errors.As(err, &se) {
		p := toPosition(text, se.Pos)
		return protocol.Range{Start: p, End: p}
	}

	var re *compiler.ResolveError
	if errors.As(err, &re) {
		if r, ok := firstUse(text, re.Name, re.Level); ok {
			return r
		}
	}
	return protocol.Range{}
}

// firstUse finds the first symbol name, or with level set the first level
// symbol directly following name.
func firstUse(text, name, level string) (protocol.Range, bool) {
	tokens, err := sexp.Tokenize(strings.NewReader(text))
	if err != nil {
		return protocol.Range{}, false
	}
	for i, tok := range tokens {
		if tok.Type != sexp.TokenSymbol || tok.Literal != name {
			continue
		}
		if level == "" {
			return tokenRange(text, tok), true
		}
		if i+1 < len(tokens) && tokens[i+1].Type == sexp.TokenSymbol && tokens[i+1].Literal == level {
			return tokenRange(text, tokens[i+1]), true
		}
	}
	return protocol.Range{}, false
}

// occurrences returns the range of every symbol spelled word.
func occurrences(text, word string) []protocol.Range {
	tokens, err := sexp.Tokenize(strings.NewReader(text))
	if err != nil {
		return nil
	}
	var ranges []protocol.Range
	for _, tok := range tokens {
		if tok.Type == sexp.TokenSymbol && tok.Literal == word {
			ranges = append(ranges, tokenRange(text, tok))
		}
	}
	return ranges
}

func tokenRange(text string, tok sexp.Token) protocol.Range {
	end := tok.Pos
	end.Offset += len(tok.Literal)
	return protocol.Range{Start: toPosition(text, tok.Pos), End: toPosition(text, end)}
}

// toPosition converts a lexer position in text to an LSP position. LSP
// characters count UTF-16 code units, lexer columns count bytes.
func toPosition(text string, p sexp.Position) protocol.Position {
	pos := protocol.Position{Line: protocol.UInteger(max(p.Line-1, 0))}
	if p.Offset > len(text) {
		// Past the synthetic newline at end of input.
		return pos
	}
	off := max(p.Offset, 0)
	for _, r := range text[strings.LastIndexByte(text[:off], '\n')+1 : off] {
		pos.Character += protocol.UInteger(utf16Len(r))
	}
	return pos
}

// byteColumn converts a UTF-16 character offset on line to a byte index,
// clamped to the line length.
func byteColumn(line string, character protocol.UInteger) int {
	units := 0
	for i, r := range line {
		if units >= int(character) {
			return i
		}
		units += utf16Len(r)
	}
	return len(line)
}

func utf16Len(r rune) int {
	return max(utf16.RuneLen(r), 1)
}

// --- Text extraction helpers ---

func isSymbolByte(b byte) bool {
	switch b {
	case '(', ')', ';', ' ', '\t', '\r', '\n':
		return false
	}
	return true
}

// extractPrefix returns the symbol fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := byteColumn(line, pos.Character)

	start := col
	for start > 0 && isSymbolByte(line[start-1]) {
		start--
	}
	return line[start:col]
}

// extractWord returns the full symbol under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := byteColumn(line, pos.Character)

	start := col
	for start > 0 && isSymbolByte(line[start-1]) {
		start--
	}
	end := col
	for end < len(line) && isSymbolByte(line[end]) {
		end++
	}
	return line[start:end]
}

func sortedNames(vars map[string]fuzzy.Variable) []string {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func boolPtr(b bool) *bool {
	return &b
}
