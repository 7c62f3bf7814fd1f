package bytecode

import (
	"errors"
	"reflect"
	"testing"
)

// x is hi and z is lo => feed y big
func andProgram() []Instruction {
	return []Instruction{
		GetInputByIndex(0),
		CallFunctionByRef(0),
		GetInputByIndex(1),
		CallFunctionByRef(1),
		Min(),
		FeedDefuzzerFast(0, 150),
		Pop(),
	}
}

func andChunk(t *testing.T) *Chunk {
	t.Helper()
	c, err := Encode(andProgram(), 0)
	if err != nil {
		t.Fatal(err)
	}
	c.Inputs = []string{"x", "z"}
	c.Outputs = []string{"y"}
	c.Functions = []FunctionRef{
		{Dir: DirInput, Owner: "x", Level: "hi"},
		{Dir: DirInput, Owner: "z", Level: "lo"},
		{Dir: DirOutput, Owner: "y", Level: "big"},
	}
	return c
}

func TestEncode(t *testing.T) {
	c := andChunk(t)
	want := []int64{4, 0, 5, 0, 4, 1, 5, 1, 2, 6, 0, 150, 1}
	if !reflect.DeepEqual(c.Code, want) {
		t.Errorf("Code = %v, want %v", c.Code, want)
	}
	if len(c.Code) != CodeLen(andProgram()) {
		t.Errorf("CodeLen = %d, len(Code) = %d", CodeLen(andProgram()), len(c.Code))
	}
	if c.MaxStack != 2 {
		t.Errorf("MaxStack = %d, want 2", c.MaxStack)
	}
	if c.Version != Version {
		t.Errorf("Version = %d", c.Version)
	}
}

func TestEncodeRejectsNamed(t *testing.T) {
	_, err := Encode([]Instruction{GetInput("x"), Pop()}, 0)
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("got %v, want ErrUnresolved", err)
	}
	var ve *VerifyError
	if !errors.As(err, &ve) || ve.Index != 0 {
		t.Errorf("error does not locate instruction 0: %v", err)
	}
}

func TestVerifyUnderflow(t *testing.T) {
	tests := [][]Instruction{
		{Pop()},
		{GetInputByIndex(0), Min()},
		{CallFunctionByRef(0)},
		{FeedDefuzzerFast(0, 1)},
	}
	for _, prog := range tests {
		if _, err := Verify(prog, 0); !errors.Is(err, ErrStackUnderflow) {
			t.Errorf("Verify(%s) = %v, want ErrStackUnderflow", Format(prog), err)
		}
	}
}

func TestVerifyOverflow(t *testing.T) {
	var prog []Instruction
	for i := 0; i < 5; i++ {
		prog = append(prog, GetInputByIndex(0))
	}
	if _, err := Verify(prog, 4); !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("got %v, want ErrStackOverflow", err)
	}
	depth, err := Verify(prog, 5)
	if err != nil || depth != 5 {
		t.Errorf("Verify = %d, %v, want 5", depth, err)
	}
}

func TestVerifyNamedStackEffects(t *testing.T) {
	prog := []Instruction{
		GetInput("x"),
		CallMemberFunction("x", "hi"),
		Feed("y", "big"),
		Pop(),
	}
	depth, err := Verify(prog, 0)
	if err != nil || depth != 1 {
		t.Errorf("Verify = %d, %v, want 1", depth, err)
	}
}

func TestInstructionsRoundTrip(t *testing.T) {
	c := andChunk(t)
	got, err := c.Instructions()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, andProgram()) {
		t.Errorf("decoded %s, want %s", Format(got), Format(andProgram()))
	}
}

func TestValidate(t *testing.T) {
	if err := andChunk(t).Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Chunk)
	}{
		{"version", func(c *Chunk) { c.Version = 99 }},
		{"truncated", func(c *Chunk) { c.Code = c.Code[:len(c.Code)-2] }},
		{"bad opcode", func(c *Chunk) { c.Code[0] = 0x80 }},
		{"input range", func(c *Chunk) { c.Code[1] = 7 }},
		{"handle range", func(c *Chunk) { c.Code[3] = -1 }},
		{"output handle", func(c *Chunk) { c.Code[3] = 2 }},
		{"output range", func(c *Chunk) { c.Code[10] = 1 }},
		{"stack bound", func(c *Chunk) { c.MaxStack = 1 }},
		{"zero stack", func(c *Chunk) { c.MaxStack = 0 }},
	}
	for _, tt := range tests {
		c := andChunk(t)
		tt.mutate(c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: Validate succeeded", tt.name)
		}
	}
}

func TestWireRoundTrip(t *testing.T) {
	c := andChunk(t)
	data, err := MarshalChunk(c)
	if err != nil {
		t.Fatal(err)
	}
	again, err := MarshalChunk(c)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(again) {
		t.Error("encoding is not deterministic")
	}
	got, err := UnmarshalChunk(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, c) {
		t.Errorf("got %+v, want %+v", got, c)
	}
	if _, err := UnmarshalChunk([]byte{0xff, 0x00}); err == nil {
		t.Error("garbage decoded")
	}
}
