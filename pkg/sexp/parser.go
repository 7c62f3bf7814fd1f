package sexp

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Parser consumes lexer events and builds the top-level list of forms.
type Parser struct {
	lex    *Lexer
	source string

	stack []*Builder  // open accumulators, root first
	opens []Position // position of the "(" that opened each non-root accumulator
}

// NewParser creates a parser over r. source names the input in errors.
func NewParser(r io.Reader, source string) *Parser {
	return &Parser{
		lex:    NewLexer(r),
		source: source,
		stack:  []*Builder{{}},
	}
}

func (p *Parser) fail(pos Position, err error) error {
	if se, ok := err.(*SyntaxError); ok {
		se.Source = p.source
		return se
	}
	return &SyntaxError{Source: p.source, Pos: pos, Err: err}
}

// Parse reads every form and returns them as one list.
func (p *Parser) Parse() (*Cons, error) {
	for {
		tok, err := p.lex.Next()
		if err != nil {
			if _, ok := err.(*SyntaxError); !ok {
				return nil, fmt.Errorf("reading %s: %w", p.name(), err)
			}
			return nil, p.fail(tok.Pos, err)
		}

		switch tok.Type {
		case TokenSymbol:
			p.top().Append(Symbol(tok.Literal))

		case TokenOpen:
			p.stack = append(p.stack, &Builder{})
			p.opens = append(p.opens, tok.Pos)

		case TokenClose:
			if len(p.stack) == 1 {
				return nil, p.fail(tok.Pos, fmt.Errorf("%w: unexpected )", ErrUnbalanced))
			}
			done := p.top().List()
			p.stack = p.stack[:len(p.stack)-1]
			p.opens = p.opens[:len(p.opens)-1]
			p.top().Append(ListAtom(done))

		case TokenEOF:
			if len(p.stack) != 1 {
				open := p.opens[len(p.opens)-1]
				return nil, p.fail(open, fmt.Errorf("%w: ( at %s is never closed", ErrUnbalanced, open))
			}
			return p.stack[0].List(), nil
		}
	}
}

func (p *Parser) name() string {
	if p.source == "" {
		return "input"
	}
	return p.source
}

func (p *Parser) top() *Builder {
	return p.stack[len(p.stack)-1]
}

// Parse reads all forms from r.
func Parse(r io.Reader) (*Cons, error) {
	return NewParser(r, "").Parse()
}

// ParseString reads all forms from s.
func ParseString(s string) (*Cons, error) {
	return NewParser(strings.NewReader(s), "").Parse()
}

// ParseFile reads all forms from the file at path.
func ParseFile(path string) (*Cons, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	defer f.Close()
	return NewParser(f, path).Parse()
}
