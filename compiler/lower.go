package compiler

import (
	"fmt"

	"github.com/chazu/fuzzyvm/pkg/bytecode"
	"github.com/chazu/fuzzyvm/pkg/sexp"
)

// Instructions converts a fully lowered program into named instructions.
// Every element must be a list spelling one of pop, min, max,
// (get-input <in>), (call-member-function <in> <level>) or
// (feed <out> <level>); anything else fails with ErrNotLowered.
func Instructions(program *sexp.Cons) ([]bytecode.Instruction, error) {
	if program == nil {
		return nil, ErrCompiledToNothing
	}
	out := make([]bytecode.Instruction, 0, program.Len())
	for l := program; l != nil; l = l.Cdr {
		in, err := instruction(l.Car)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

func instruction(form sexp.Atom) (bytecode.Instruction, error) {
	notLowered := func() (bytecode.Instruction, error) {
		return bytecode.Instruction{}, fmt.Errorf("%w: %s", ErrNotLowered, form)
	}
	if !form.IsList() {
		return notLowered()
	}
	op, ok := bytecode.LookupOpcode(form.List.Head())
	if !ok || !op.IsNamed() && op.Width() != 1 {
		return notLowered()
	}
	args := form.List.Cdr.Slice()
	if len(args) != bytecode.GetOpcodeInfo(op).Operands {
		return notLowered()
	}
	for _, a := range args {
		if a.Kind != sexp.KindSymbol {
			return notLowered()
		}
	}
	in := bytecode.Instruction{Op: op}
	if len(args) > 0 {
		in.Name = args[0].Sym
	}
	if len(args) > 1 {
		in.Level = args[1].Sym
	}
	return in, nil
}
