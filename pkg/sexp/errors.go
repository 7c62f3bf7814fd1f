package sexp

import (
	"errors"
	"fmt"
)

var (
	// ErrUnbalanced reports an unmatched "(" or a stray ")".
	ErrUnbalanced = errors.New("unbalanced parentheses")

	// ErrInvalidUTF8 reports a symbol that is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("malformed UTF-8")
)

// SyntaxError is a lex or parse failure at a known position.
type SyntaxError struct {
	Source string // file name, empty for in-memory input
	Pos    Position
	Err    error
}

func (e *SyntaxError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s:%s: %v", e.Source, e.Pos, e.Err)
	}
	return fmt.Sprintf("syntax error at %s: %v", e.Pos, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}
