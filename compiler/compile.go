package compiler

import (
	"io"

	"github.com/chazu/fuzzyvm/pkg/bytecode"
	"github.com/chazu/fuzzyvm/pkg/fuzzy"
	"github.com/chazu/fuzzyvm/pkg/sexp"
)

// Compile lowers, resolves and encodes program. The chunk's stack bound is
// verified against the compiler's stack limit.
func (c *Compiler) Compile(program *sexp.Cons, inputs, outputs map[string]fuzzy.Variable) (*bytecode.Chunk, error) {
	instrs, err := c.Lower(program)
	if err != nil {
		return nil, err
	}
	st, resolved, err := Resolve(instrs, inputs, outputs)
	if err != nil {
		return nil, err
	}
	chunk, err := bytecode.Encode(resolved, c.MaxStack())
	if err != nil {
		return nil, err
	}
	st.Layout(chunk)
	log.Debugf("compiled %d instructions into %d cells, max stack %d", len(resolved), len(chunk.Code), chunk.MaxStack)
	return chunk, nil
}

// CompileReader parses rule source from r and compiles it. source names
// the input in syntax errors.
func (c *Compiler) CompileReader(r io.Reader, source string, inputs, outputs map[string]fuzzy.Variable) (*bytecode.Chunk, error) {
	program, err := sexp.NewParser(r, source).Parse()
	if err != nil {
		return nil, err
	}
	return c.Compile(program, inputs, outputs)
}
