package bytecode

import "fmt"

// Version is the current chunk format version.
// Increment when making incompatible changes to the format.
const Version uint16 = 1

// Direction tells which side of the controller a function handle belongs to.
type Direction uint8

const (
	DirInput  Direction = 0
	DirOutput Direction = 1
)

// String returns "in" or "out".
func (d Direction) String() string {
	switch d {
	case DirInput:
		return "in"
	case DirOutput:
		return "out"
	default:
		return fmt.Sprintf("Direction(%d)", d)
	}
}

// FunctionRef names the membership function behind a handle. The handle is
// the ref's index in Chunk.Functions.
type FunctionRef struct {
	Dir   Direction `cbor:"1,keyasint"`
	Owner string    `cbor:"2,keyasint"`
	Level string    `cbor:"3,keyasint"`
}

func (f FunctionRef) String() string {
	return fmt.Sprintf("%s %s.%s", f.Dir, f.Owner, f.Level)
}

// Chunk is an encoded controller program together with the symbol layout
// needed to bind it: input and output names by index and function refs by
// handle. A Chunk is immutable once built.
type Chunk struct {
	Version   uint16        `cbor:"1,keyasint"`
	Code      []int64       `cbor:"2,keyasint"`
	Inputs    []string      `cbor:"3,keyasint"`
	Outputs   []string      `cbor:"4,keyasint"`
	Functions []FunctionRef `cbor:"5,keyasint"`
	MaxStack  int           `cbor:"6,keyasint"`
}

// CodeLen returns the number of cells needed to encode instrs.
func CodeLen(instrs []Instruction) int {
	n := 0
	for _, in := range instrs {
		n += in.Op.Width()
	}
	return n
}

// Encode verifies the stack discipline of a resolved program and packs it
// into cells. The buffer is sized up front from the opcode widths. The
// returned chunk has Code and MaxStack set; the caller fills in the symbol
// layout.
func Encode(instrs []Instruction, limit int) (*Chunk, error) {
	for i, in := range instrs {
		if in.Op.IsNamed() {
			return nil, &VerifyError{Index: i, Instr: in, Err: ErrUnresolved}
		}
	}
	depth, err := Verify(instrs, limit)
	if err != nil {
		return nil, err
	}
	code := make([]int64, 0, CodeLen(instrs))
	for _, in := range instrs {
		code = append(code, int64(in.Op))
		switch in.Op.Width() {
		case 2:
			code = append(code, in.A)
		case 3:
			code = append(code, in.A, in.B)
		}
	}
	return &Chunk{
		Version:  Version,
		Code:     code,
		MaxStack: depth,
	}, nil
}

// Instructions decodes the code buffer.
func (c *Chunk) Instructions() ([]Instruction, error) {
	var out []Instruction
	for pc := 0; pc < len(c.Code); {
		op := Opcode(c.Code[pc])
		if c.Code[pc] < 0 || c.Code[pc] > 0xFF || !op.Known() || op.IsNamed() {
			return nil, fmt.Errorf("%w: cell %d: bad opcode %d", ErrInvalidChunk, pc, c.Code[pc])
		}
		w := op.Width()
		if pc+w > len(c.Code) {
			return nil, fmt.Errorf("%w: cell %d: %s truncated", ErrInvalidChunk, pc, op)
		}
		in := Instruction{Op: op}
		if w >= 2 {
			in.A = c.Code[pc+1]
		}
		if w == 3 {
			in.B = c.Code[pc+2]
		}
		out = append(out, in)
		pc += w
	}
	return out, nil
}

// Validate checks a chunk from an untrusted source: the version, the
// encoding, operand ranges against the symbol layout and the stack bound.
func (c *Chunk) Validate() error {
	if c.Version != Version {
		return fmt.Errorf("%w: version %d, want %d", ErrInvalidChunk, c.Version, Version)
	}
	if c.MaxStack < 0 {
		return fmt.Errorf("%w: negative max stack", ErrInvalidChunk)
	}
	instrs, err := c.Instructions()
	if err != nil {
		return err
	}
	for i, in := range instrs {
		var bad bool
		switch in.Op {
		case OpGetInputByIndex:
			bad = in.A < 0 || in.A >= int64(len(c.Inputs))
		case OpCallFunctionByRef:
			bad = in.A < 0 || in.A >= int64(len(c.Functions)) || c.Functions[in.A].Dir != DirInput
		case OpFeedDefuzzerFast:
			bad = in.A < 0 || in.A >= int64(len(c.Outputs))
		}
		if bad {
			return &VerifyError{Index: i, Instr: in, Err: fmt.Errorf("%w: operand out of range", ErrInvalidChunk)}
		}
	}
	if c.MaxStack == 0 && len(instrs) > 0 {
		return fmt.Errorf("%w: zero max stack for non-empty code", ErrInvalidChunk)
	}
	_, err = Verify(instrs, c.MaxStack)
	return err
}
