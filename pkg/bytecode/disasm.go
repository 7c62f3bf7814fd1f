package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the chunk.
func (c *Chunk) Disassemble() string {
	return c.DisassembleWithName("")
}

// DisassembleWithName returns a listing with a name header.
func (c *Chunk) DisassembleWithName(name string) string {
	var sb strings.Builder

	// Header
	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; fuzzyvm bytecode v%d\n", c.Version))
	sb.WriteString(fmt.Sprintf("; Max stack: %d\n", c.MaxStack))

	if len(c.Inputs) > 0 {
		sb.WriteString("; Inputs:\n")
		for i, n := range c.Inputs {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, n))
		}
	}
	if len(c.Outputs) > 0 {
		sb.WriteString("; Outputs:\n")
		for i, n := range c.Outputs {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, n))
		}
	}
	if len(c.Functions) > 0 {
		sb.WriteString("; Functions:\n")
		for i, f := range c.Functions {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, f))
		}
	}
	sb.WriteString("\n")

	// Code section
	sb.WriteString("; Code:\n")
	pc := 0
	for pc < len(c.Code) {
		line, width := c.disassembleInstruction(pc)
		sb.WriteString(fmt.Sprintf("%04d  %s\n", pc, line))
		pc += width
	}

	return sb.String()
}

// disassembleInstruction formats the instruction at pc and returns its
// width. Malformed cells are shown one at a time.
func (c *Chunk) disassembleInstruction(pc int) (string, int) {
	op := Opcode(c.Code[pc])
	w := op.Width()
	if c.Code[pc] < 0 || c.Code[pc] > 0xFF || w == 0 || pc+w > len(c.Code) {
		return fmt.Sprintf("??? %d", c.Code[pc]), 1
	}

	switch op {
	case OpGetInputByIndex:
		i := c.Code[pc+1]
		return fmt.Sprintf("%-20s %d%s", op, i, c.comment(c.Inputs, i)), w
	case OpCallFunctionByRef:
		h := c.Code[pc+1]
		note := ""
		if h >= 0 && h < int64(len(c.Functions)) {
			note = " ; " + c.Functions[h].String()
		}
		return fmt.Sprintf("%-20s %d%s", op, h, note), w
	case OpFeedDefuzzerFast:
		o, bucket := c.Code[pc+1], c.Code[pc+2]
		return fmt.Sprintf("%-20s %d %d%s", op, o, bucket, c.comment(c.Outputs, o)), w
	default:
		return op.String(), w
	}
}

func (c *Chunk) comment(names []string, i int64) string {
	if i < 0 || i >= int64(len(names)) {
		return ""
	}
	return " ; " + names[i]
}
