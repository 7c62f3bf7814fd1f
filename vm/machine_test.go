package vm

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/fuzzyvm/compiler"
	"github.com/chazu/fuzzyvm/pkg/bytecode"
	"github.com/chazu/fuzzyvm/pkg/fuzzy"
)

func variable(t *testing.T, spans map[string]fuzzy.Span) fuzzy.Variable {
	t.Helper()
	l := fuzzy.NewLevels()
	for name, s := range spans {
		if err := l.Add(name, fuzzy.NewTriangle(s[0], s[1])); err != nil {
			t.Fatal(err)
		}
	}
	return l
}

func vars(t *testing.T) (inputs, outputs map[string]fuzzy.Variable) {
	t.Helper()
	inputs = map[string]fuzzy.Variable{
		"x":      variable(t, map[string]fuzzy.Span{"lo": {0, 20}, "hi": {10, 30}}),
		"z":      variable(t, map[string]fuzzy.Span{"lo": {0, 20}, "hi": {10, 30}}),
		"unused": variable(t, map[string]fuzzy.Span{"any": {0, 2}}),
	}
	outputs = map[string]fuzzy.Variable{
		"y": variable(t, map[string]fuzzy.Span{"small": {0, 100}, "big": {100, 200}}),
	}
	return inputs, outputs
}

func machine(t *testing.T, src string, opts ...Option) *Machine {
	t.Helper()
	inputs, outputs := vars(t)
	m, err := NewFromReader(strings.NewReader(src), "test.scm", inputs, outputs, opts...)
	if err != nil {
		t.Fatalf("NewFromReader: %v", err)
	}
	return m
}

func run(t *testing.T, m *Machine, in map[string]int64) int64 {
	t.Helper()
	for name, v := range in {
		if err := m.Input(name, v); err != nil {
			t.Fatal(err)
		}
	}
	m.Run()
	y, err := m.Output("y")
	if err != nil {
		t.Fatal(err)
	}
	return y
}

const twoRules = `
; small when low, big when high
(if (is x lo) (set! y small))
(if (is x hi) (set! y big))
`

func TestEndToEnd(t *testing.T) {
	tests := []struct {
		name string
		src  string
		in   map[string]int64
		want int64
	}{
		{"full membership gives apex", "(if (is x hi) (set! y big))", map[string]int64{"x": 20}, 150},
		{"zero membership gives zero", "(if (is x hi) (set! y big))", map[string]int64{"x": 5}, 0},
		{"only lo fires", twoRules, map[string]int64{"x": 5}, 50},
		{"even split", twoRules, map[string]int64{"x": 15}, 100},
		{"outside every level", twoRules, map[string]int64{"x": 40}, 0},
		{"and takes the minimum", "(if (and (is x hi) (is z lo)) (set! y big))", map[string]int64{"x": 20, "z": 15}, 150},
		{"and of nothing", "(if (and (is x hi) (is z hi)) (set! y big))", map[string]int64{"x": 20, "z": 0}, 0},
		{"or takes the maximum", "(if (or (is x hi) (is z hi)) (set! y big))", map[string]int64{"x": 0, "z": 20}, 150},
		{"nested if", "(if (is x hi) (if (is z hi) (set! y big)) (set! y small))", map[string]int64{"x": 20, "z": 20}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := machine(t, tt.src)
			if got := run(t, m, tt.in); got != tt.want {
				t.Errorf("y = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRunResetsDefuzzers(t *testing.T) {
	m := machine(t, twoRules)
	first := run(t, m, map[string]int64{"x": 15})
	second := run(t, m, map[string]int64{"x": 15})
	if first != second {
		t.Errorf("repeated runs differ: %d then %d", first, second)
	}
	if got := run(t, m, map[string]int64{"x": 5}); got != 50 {
		t.Errorf("after new input y = %d, want 50", got)
	}
}

func TestUnknownIdentifiers(t *testing.T) {
	inputs, outputs := vars(t)
	_, err := NewFromReader(strings.NewReader("(if (is q hi) (set! y big))"), "", inputs, outputs)
	if !errors.Is(err, ErrUnknownInput) {
		t.Errorf("unknown input: got %v", err)
	}
	_, err = NewFromReader(strings.NewReader("(if (is x hi) (set! q big))"), "", inputs, outputs)
	if !errors.Is(err, ErrUnknownOutput) {
		t.Errorf("unknown output: got %v", err)
	}
	_, err = NewFromReader(strings.NewReader("(if (is x huge) (set! y big))"), "", inputs, outputs)
	if !errors.Is(err, compiler.ErrUnknownLevel) {
		t.Errorf("unknown level: got %v", err)
	}

	m := machine(t, twoRules)
	if err := m.Input("x", 15); err != nil {
		t.Fatal(err)
	}
	if err := m.Input("nope", 99); !errors.Is(err, ErrUnknownInput) {
		t.Errorf("Input(nope) = %v", err)
	}
	if _, err := m.Output("nope"); !errors.Is(err, ErrUnknownOutput) {
		t.Errorf("Output(nope) = %v", err)
	}
	m.Run()
	if y, _ := m.Output("y"); y != 100 {
		t.Errorf("failed Input disturbed state: y = %d", y)
	}
}

func TestUnreferencedInputIsAddressable(t *testing.T) {
	m := machine(t, twoRules)
	if err := m.Input("unused", 1); err != nil {
		t.Errorf("Input(unused) = %v", err)
	}
	if got := strings.Join(m.Inputs(), ","); got != "x,unused,z" {
		t.Errorf("Inputs = %s", got)
	}
}

func TestStackSizedToProgram(t *testing.T) {
	m := machine(t, "(if (and (is x hi) (is z lo)) (set! y big))")
	if len(m.stack) != 2 || m.Chunk().MaxStack != 2 {
		t.Errorf("stack = %d slots, MaxStack = %d, want 2", len(m.stack), m.Chunk().MaxStack)
	}

	inputs, outputs := vars(t)
	_, err := NewFromReader(strings.NewReader("(if (and (is x hi) (is z lo)) (set! y big))"), "",
		inputs, outputs, WithMaxStack(1))
	if !errors.Is(err, bytecode.ErrStackOverflow) {
		t.Errorf("got %v, want ErrStackOverflow", err)
	}
}

func TestClone(t *testing.T) {
	m := machine(t, twoRules)
	if err := m.Input("x", 5); err != nil {
		t.Fatal(err)
	}
	c := m.Clone()
	if got := run(t, c, nil); got != 50 {
		t.Errorf("clone did not copy inputs: y = %d", got)
	}
	if got := run(t, c, map[string]int64{"x": 25}); got != 150 {
		t.Errorf("clone y = %d, want 150", got)
	}
	if got := run(t, m, nil); got != 50 {
		t.Errorf("original changed by clone: y = %d", got)
	}
}

func TestLoadWireChunk(t *testing.T) {
	m := machine(t, twoRules)
	data, err := bytecode.MarshalChunk(m.Chunk())
	if err != nil {
		t.Fatal(err)
	}
	chunk, err := bytecode.UnmarshalChunk(data)
	if err != nil {
		t.Fatal(err)
	}
	inputs, outputs := vars(t)
	loaded, err := Load(chunk, inputs, outputs)
	if err != nil {
		t.Fatal(err)
	}
	if got := run(t, loaded, map[string]int64{"x": 15}); got != 100 {
		t.Errorf("loaded y = %d, want 100", got)
	}

	chunk.Code[len(chunk.Code)-1] = 0x7f
	if _, err := Load(chunk, inputs, outputs); !errors.Is(err, bytecode.ErrInvalidChunk) {
		t.Errorf("tampered chunk: got %v", err)
	}

	delete(inputs, "x")
	chunk, _ = bytecode.UnmarshalChunk(data)
	if _, err := Load(chunk, inputs, outputs); !errors.Is(err, ErrUnknownInput) {
		t.Errorf("missing input: got %v", err)
	}
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.scm")
	if err := os.WriteFile(path, []byte(twoRules), 0o644); err != nil {
		t.Fatal(err)
	}
	inputs, outputs := vars(t)
	m, err := New(inputs, outputs, path)
	if err != nil {
		t.Fatal(err)
	}
	if got := run(t, m, map[string]int64{"x": 15}); got != 100 {
		t.Errorf("y = %d, want 100", got)
	}
	if _, err := New(inputs, outputs, filepath.Join(t.TempDir(), "missing.scm")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: got %v", err)
	}
}

func TestCompiledToNothing(t *testing.T) {
	inputs, outputs := vars(t)
	_, err := NewFromReader(strings.NewReader("(if (is x hi))"), "", inputs, outputs)
	if !errors.Is(err, compiler.ErrCompiledToNothing) {
		t.Errorf("got %v, want ErrCompiledToNothing", err)
	}
}
