package bytecode

import "fmt"

// Opcode identifies an instruction. Resolved opcodes are encoded into a
// Chunk as one cell followed by their operands. Named opcodes refer to
// inputs, outputs and levels by name; they exist only between lowering and
// symbol resolution and can never be encoded.
type Opcode byte

const (
	// ========================================================================
	// Resolved (encodable) opcodes
	// ========================================================================

	OpPop               Opcode = 0x01 // Drop top of stack
	OpMin               Opcode = 0x02 // Pop two, push the smaller
	OpMax               Opcode = 0x03 // Pop two, push the larger
	OpGetInputByIndex   Opcode = 0x04 // Push input register: <index>
	OpCallFunctionByRef Opcode = 0x05 // Replace TOS with fn(TOS): <handle>
	OpFeedDefuzzerFast  Opcode = 0x06 // Feed TOS to a defuzzer, no pop: <output> <bucket>

	// ========================================================================
	// Named opcodes (lowering output, resolved before encoding)
	// ========================================================================

	OpGetInput           Opcode = 0x80 // (get-input <input>)
	OpCallMemberFunction Opcode = 0x81 // (call-member-function <input> <level>)
	OpFeed               Opcode = 0x82 // (feed <output> <level>)
)

// OpcodeInfo describes an opcode's spelling, stack effect and encoded width.
type OpcodeInfo struct {
	Name      string // Spelling in lowered programs and listings
	StackPop  int    // Values consumed
	StackPush int    // Values produced
	Width     int    // Cells in the encoded form, opcode included; 0 = named
	Operands  int    // Symbolic operands of a named op
}

// Feed peeks at TOS; it is modelled as pop 1, push 1.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpPop:               {"pop", 1, 0, 1, 0},
	OpMin:               {"min", 2, 1, 1, 0},
	OpMax:               {"max", 2, 1, 1, 0},
	OpGetInputByIndex:   {"get-input-by-index", 0, 1, 2, 0},
	OpCallFunctionByRef: {"call-function-by-ref", 1, 1, 2, 0},
	OpFeedDefuzzerFast:  {"feed-defuzzer-fast", 1, 1, 3, 0},

	OpGetInput:           {"get-input", 0, 1, 0, 1},
	OpCallMemberFunction: {"call-member-function", 1, 1, 0, 2},
	OpFeed:               {"feed", 1, 1, 0, 2},
}

var opcodeByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeInfoTable))
	for op, info := range opcodeInfoTable {
		m[info.Name] = op
	}
	return m
}()

// GetOpcodeInfo returns metadata for an opcode.
// Returns an OpcodeInfo named "UNKNOWN(0x..)" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// LookupOpcode returns the opcode spelled name.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opcodeByName[name]
	return op, ok
}

// String returns the opcode's spelling.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Width returns the number of cells the encoded instruction occupies.
func (op Opcode) Width() int {
	return GetOpcodeInfo(op).Width
}

// Known reports whether op is defined.
func (op Opcode) Known() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// IsNamed reports whether op still refers to symbols by name.
func (op Opcode) IsNamed() bool {
	return op.Known() && op.Width() == 0
}

// AllOpcodes returns every defined opcode.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}
