// Package hash computes content hashes of parsed rule programs. Two sources
// that parse to the same tree hash the same, whatever their layout and
// comments.
package hash

import (
	"crypto/sha256"
	"io"

	"github.com/chazu/fuzzyvm/pkg/sexp"
)

// Program computes the SHA-256 content hash of program.
func Program(program *sexp.Cons) [32]byte {
	return sha256.Sum256(Serialize(program))
}

// Source parses rule source from r and hashes the result. source names
// the input in syntax errors.
func Source(r io.Reader, source string) ([32]byte, *sexp.Cons, error) {
	program, err := sexp.NewParser(r, source).Parse()
	if err != nil {
		return [32]byte{}, nil, err
	}
	return Program(program), program, nil
}
