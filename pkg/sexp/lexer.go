package sexp

import (
	"errors"
	"io"
	"unicode/utf8"
)

// chunkSize is the number of bytes pulled from the reader per refill.
const chunkSize = 4096

// ---------------------------------------------------------------------------
// Lexer: streaming tokenizer for rule source
// ---------------------------------------------------------------------------

// Lexer turns a byte stream into symbol / open / close events. It reads the
// underlying reader in fixed-size chunks so sources of any size can be
// tokenized without loading them whole.
type Lexer struct {
	r   io.Reader
	buf [chunkSize]byte
	n   int // valid bytes in buf
	i   int // next unread byte in buf

	atEOF bool // reader is exhausted
	synth bool // synthetic trailing newline consumed
	err   error

	offset int
	line   int
	col    int

	inComment bool
	sym       []byte
	symPos    Position
}

// NewLexer creates a lexer reading from r.
func NewLexer(r io.Reader) *Lexer {
	return &Lexer{r: r, line: 1, col: 1}
}

func (l *Lexer) position() Position {
	return Position{Offset: l.offset, Line: l.line, Column: l.col}
}

// refill reads the next chunk. It returns false once the reader is drained.
func (l *Lexer) refill() bool {
	for !l.atEOF {
		n, err := l.r.Read(l.buf[:])
		l.n, l.i = n, 0
		if err != nil {
			l.atEOF = true
			if !errors.Is(err, io.EOF) {
				l.err = err
			}
		}
		if n > 0 {
			return true
		}
	}
	return false
}

// peek returns the current byte without consuming it. End of input reads as
// a single synthetic '\n' so a trailing symbol or comment is terminated. A
// read error surfaces only after the bytes read alongside it are consumed.
func (l *Lexer) peek() (byte, bool) {
	if l.i < l.n {
		return l.buf[l.i], true
	}
	if l.refill() {
		return l.buf[l.i], true
	}
	if l.err != nil {
		return 0, false
	}
	if !l.synth {
		return '\n', true
	}
	return 0, false
}

func (l *Lexer) advance(b byte) {
	if l.i < l.n {
		l.i++
	} else {
		l.synth = true
	}
	l.offset++
	if b == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', ';', ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

func (l *Lexer) flushSymbol() (Token, error) {
	text := l.sym
	l.sym = l.sym[:0]
	if !utf8.Valid(text) {
		return Token{}, &SyntaxError{Pos: l.symPos, Err: ErrInvalidUTF8}
	}
	return Token{Type: TokenSymbol, Literal: string(text), Pos: l.symPos}, nil
}

// Next returns the next token. After TokenEOF every call returns TokenEOF.
func (l *Lexer) Next() (Token, error) {
	for {
		b, ok := l.peek()
		if !ok {
			if l.err != nil {
				return Token{}, l.err
			}
			return Token{Type: TokenEOF, Pos: l.position()}, nil
		}

		if l.inComment {
			l.advance(b)
			if b == '\n' {
				l.inComment = false
			}
			continue
		}

		if !isDelimiter(b) {
			if len(l.sym) == 0 {
				l.symPos = l.position()
			}
			l.sym = append(l.sym, b)
			l.advance(b)
			continue
		}

		// A delimiter ends the pending symbol; it is handled on the next call.
		if len(l.sym) > 0 {
			return l.flushSymbol()
		}

		pos := l.position()
		l.advance(b)
		switch b {
		case '(':
			return Token{Type: TokenOpen, Pos: pos}, nil
		case ')':
			return Token{Type: TokenClose, Pos: pos}, nil
		case ';':
			l.inComment = true
		}
	}
}

// Tokenize lexes all of r.
func Tokenize(r io.Reader) ([]Token, error) {
	l := NewLexer(r)
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return toks, err
		}
		if tok.Type == TokenEOF {
			return toks, nil
		}
		toks = append(toks, tok)
	}
}
