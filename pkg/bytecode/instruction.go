package bytecode

import (
	"fmt"
	"strings"
)

// Instruction is one element of a lowered program. Named ops carry Name
// (the input or output) and, for member function calls and feeds, Level.
// Resolved ops carry integer operands in A and B.
type Instruction struct {
	Op    Opcode
	Name  string
	Level string
	A, B  int64
}

// Named constructors.
func Pop() Instruction                  { return Instruction{Op: OpPop} }
func Min() Instruction                  { return Instruction{Op: OpMin} }
func Max() Instruction                  { return Instruction{Op: OpMax} }
func GetInput(in string) Instruction    { return Instruction{Op: OpGetInput, Name: in} }
func Feed(out, level string) Instruction { return Instruction{Op: OpFeed, Name: out, Level: level} }

func CallMemberFunction(in, level string) Instruction {
	return Instruction{Op: OpCallMemberFunction, Name: in, Level: level}
}

// Resolved constructors.
func GetInputByIndex(i int64) Instruction   { return Instruction{Op: OpGetInputByIndex, A: i} }
func CallFunctionByRef(h int64) Instruction { return Instruction{Op: OpCallFunctionByRef, A: h} }

func FeedDefuzzerFast(out, bucket int64) Instruction {
	return Instruction{Op: OpFeedDefuzzerFast, A: out, B: bucket}
}

// String renders the instruction as the S-expression it was lowered from,
// e.g. "(call-member-function x hi)" or "(feed-defuzzer-fast 0 150)".
func (in Instruction) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(in.Op.String())
	switch in.Op {
	case OpGetInput:
		fmt.Fprintf(&sb, " %s", in.Name)
	case OpCallMemberFunction, OpFeed:
		fmt.Fprintf(&sb, " %s %s", in.Name, in.Level)
	case OpGetInputByIndex, OpCallFunctionByRef:
		fmt.Fprintf(&sb, " %d", in.A)
	case OpFeedDefuzzerFast:
		fmt.Fprintf(&sb, " %d %d", in.A, in.B)
	}
	sb.WriteByte(')')
	return sb.String()
}

// Format renders a program one instruction per line.
func Format(instrs []Instruction) string {
	var sb strings.Builder
	for _, in := range instrs {
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
