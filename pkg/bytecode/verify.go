package bytecode

import (
	"errors"
	"fmt"
)

// DefaultMaxStack is the stack depth limit used when none is configured.
const DefaultMaxStack = 64

var (
	ErrStackUnderflow = errors.New("stack underflow")
	ErrStackOverflow  = errors.New("stack overflow")
	ErrUnresolved     = errors.New("unresolved instruction")
	ErrUnknownOpcode  = errors.New("unknown opcode")
	ErrInvalidChunk   = errors.New("invalid chunk")
)

// VerifyError locates a verification failure in a program.
type VerifyError struct {
	Index int         // Instruction index
	Instr Instruction // Offending instruction
	Err   error
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("instruction %d %s: %v", e.Index, e.Instr, e.Err)
}

func (e *VerifyError) Unwrap() error {
	return e.Err
}

// Verify simulates the stack effect of a straight-line program and returns
// the deepest stack it reaches. A pop from an empty stack fails with
// ErrStackUnderflow; a depth above limit fails with ErrStackOverflow. A
// limit <= 0 selects DefaultMaxStack.
func Verify(instrs []Instruction, limit int) (int, error) {
	if limit <= 0 {
		limit = DefaultMaxStack
	}
	depth, deepest := 0, 0
	for i, in := range instrs {
		if !in.Op.Known() {
			return 0, &VerifyError{Index: i, Instr: in, Err: ErrUnknownOpcode}
		}
		info := GetOpcodeInfo(in.Op)
		if depth < info.StackPop {
			return 0, &VerifyError{Index: i, Instr: in, Err: ErrStackUnderflow}
		}
		depth += info.StackPush - info.StackPop
		if depth > limit {
			return 0, &VerifyError{
				Index: i,
				Instr: in,
				Err:   fmt.Errorf("%w: depth %d exceeds %d", ErrStackOverflow, depth, limit),
			}
		}
		deepest = max(deepest, depth)
	}
	return deepest, nil
}
