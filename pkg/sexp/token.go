package sexp

import "fmt"

// TokenType represents the type of a token.
type TokenType int

const (
	TokenEOF    TokenType = iota
	TokenSymbol           // maximal run of non-delimiter bytes
	TokenOpen             // (
	TokenClose            // )
)

var tokenNames = map[TokenType]string{
	TokenEOF:    "EOF",
	TokenSymbol: "SYMBOL",
	TokenOpen:   "(",
	TokenClose:  ")",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Position is a location in rule source.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number, counted in bytes
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token represents a lexical event.
type Token struct {
	Type    TokenType
	Literal string   // symbol text, empty for parens and EOF
	Pos     Position // start position
}

func (t Token) String() string {
	if t.Type == TokenSymbol {
		return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
	}
	return t.Type.String()
}
