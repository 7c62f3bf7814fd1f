// Package vm executes compiled fuzzy controller programs.
//
// A Machine owns one set of input registers, an operand stack sized to the
// program's static stack bound and one defuzzer per output. Run executes the
// whole straight-line program; outputs are read back as the defuzzed
// centroid of everything fed during the last run.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/fuzzyvm/compiler"
	"github.com/chazu/fuzzyvm/pkg/bytecode"
	"github.com/chazu/fuzzyvm/pkg/fuzzy"
	"github.com/chazu/fuzzyvm/pkg/rewrite"
)

var log = commonlog.GetLogger("fuzzyvm.vm")

// Runtime lookups report the same errors as symbol resolution.
var (
	ErrUnknownInput  = compiler.ErrUnknownInput
	ErrUnknownOutput = compiler.ErrUnknownOutput
)

// Option configures program construction.
type Option func(*config)

type config struct {
	rules    *rewrite.RuleSet
	compiler []compiler.Option
}

// WithRules replaces the embedded lowering rules.
func WithRules(rules *rewrite.RuleSet) Option {
	return func(c *config) { c.rules = rules }
}

// WithMaxStack sets the stack depth a program may reach.
func WithMaxStack(n int) Option {
	return func(c *config) { c.compiler = append(c.compiler, compiler.WithMaxStack(n)) }
}

// WithMaxRounds bounds every rewrite fixpoint during compilation.
func WithMaxRounds(n int) Option {
	return func(c *config) { c.compiler = append(c.compiler, compiler.WithMaxRounds(n)) }
}

// Machine is a loaded controller. It is not safe for concurrent use; give
// each goroutine its own Clone.
type Machine struct {
	chunk       *bytecode.Chunk
	funcs       []fuzzy.MemberFunction // by handle
	inputIndex  map[string]int
	outputIndex map[string]int

	inputs    []int64
	stack     []int64
	defuzzers []fuzzy.Defuzzer
}

// New compiles the rule file at rulePath against inputs and outputs.
func New(inputs, outputs map[string]fuzzy.Variable, rulePath string, opts ...Option) (*Machine, error) {
	f, err := os.Open(rulePath)
	if err != nil {
		return nil, fmt.Errorf("opening rules: %w", err)
	}
	defer f.Close()
	return NewFromReader(f, rulePath, inputs, outputs, opts...)
}

// NewFromReader compiles rule source read from r. source names the input
// in syntax errors.
func NewFromReader(r io.Reader, source string, inputs, outputs map[string]fuzzy.Variable, opts ...Option) (*Machine, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	c, err := compiler.New(cfg.rules, cfg.compiler...)
	if err != nil {
		return nil, err
	}
	chunk, err := c.CompileReader(r, source, inputs, outputs)
	if err != nil {
		return nil, err
	}
	return bind(chunk, inputs, outputs)
}

// Load binds a previously compiled chunk, typically one decoded from the
// wire or the cache. The chunk is validated first.
func Load(chunk *bytecode.Chunk, inputs, outputs map[string]fuzzy.Variable) (*Machine, error) {
	if err := chunk.Validate(); err != nil {
		return nil, err
	}
	return bind(chunk, inputs, outputs)
}

func bind(chunk *bytecode.Chunk, inputs, outputs map[string]fuzzy.Variable) (*Machine, error) {
	m := &Machine{
		chunk:       chunk,
		inputIndex:  make(map[string]int, len(chunk.Inputs)),
		outputIndex: make(map[string]int, len(chunk.Outputs)),
	}
	for i, name := range chunk.Inputs {
		if _, ok := inputs[name]; !ok {
			return nil, &compiler.ResolveError{Err: ErrUnknownInput, Name: name}
		}
		m.inputIndex[name] = i
	}
	for i, name := range chunk.Outputs {
		if _, ok := outputs[name]; !ok {
			return nil, &compiler.ResolveError{Err: ErrUnknownOutput, Name: name}
		}
		m.outputIndex[name] = i
	}
	funcs, err := compiler.BindFunctions(chunk.Functions, inputs, outputs)
	if err != nil {
		return nil, err
	}
	m.funcs = funcs
	m.reset()
	log.Debugf("loaded %d cells, %d inputs, %d outputs, stack %d",
		len(chunk.Code), len(chunk.Inputs), len(chunk.Outputs), chunk.MaxStack)
	return m, nil
}

func (m *Machine) reset() {
	m.inputs = make([]int64, len(m.chunk.Inputs))
	m.stack = make([]int64, m.chunk.MaxStack)
	m.defuzzers = make([]fuzzy.Defuzzer, len(m.chunk.Outputs))
}

// Chunk returns the program the machine runs.
func (m *Machine) Chunk() *bytecode.Chunk {
	return m.chunk
}

// Inputs returns the input names in register order.
func (m *Machine) Inputs() []string {
	return append([]string(nil), m.chunk.Inputs...)
}

// Outputs returns the output names in defuzzer order.
func (m *Machine) Outputs() []string {
	return append([]string(nil), m.chunk.Outputs...)
}

// Input sets the crisp value of an input register. An unknown name leaves
// the machine untouched.
func (m *Machine) Input(name string, v int64) error {
	i, ok := m.inputIndex[name]
	if !ok {
		return &compiler.ResolveError{Err: ErrUnknownInput, Name: name}
	}
	m.inputs[i] = v
	return nil
}

// Output returns the defuzzed value of an output after the last Run.
func (m *Machine) Output(name string) (int64, error) {
	i, ok := m.outputIndex[name]
	if !ok {
		return 0, &compiler.ResolveError{Err: ErrUnknownOutput, Name: name}
	}
	return m.defuzzers[i].Defuzz(), nil
}

// Run resets the defuzzers and executes the program once. The program has
// no branches, so every cell is visited exactly once.
func (m *Machine) Run() {
	for i := range m.defuzzers {
		m.defuzzers[i].Reset()
	}

	code := m.chunk.Code
	stack := m.stack
	sp := 0
	for pc := 0; pc < len(code); {
		switch op := bytecode.Opcode(code[pc]); op {
		case bytecode.OpPop:
			sp--
			pc++

		case bytecode.OpMin:
			sp--
			stack[sp-1] = min(stack[sp-1], stack[sp])
			pc++

		case bytecode.OpMax:
			sp--
			stack[sp-1] = max(stack[sp-1], stack[sp])
			pc++

		case bytecode.OpGetInputByIndex:
			stack[sp] = m.inputs[code[pc+1]]
			sp++
			pc += 2

		case bytecode.OpCallFunctionByRef:
			stack[sp-1] = m.funcs[code[pc+1]].Eval(stack[sp-1])
			pc += 2

		case bytecode.OpFeedDefuzzerFast:
			// Peek: the degree stays on the stack for the next feed.
			m.defuzzers[code[pc+1]].Feed(code[pc+2], stack[sp-1])
			pc += 3

		default:
			// Chunks are validated before binding.
			panic(fmt.Sprintf("vm: bad opcode %s at %d", op, pc))
		}
	}
}

// Clone returns an independent machine sharing the immutable program and
// function table. Input values are copied.
func (m *Machine) Clone() *Machine {
	c := &Machine{
		chunk:       m.chunk,
		funcs:       m.funcs,
		inputIndex:  m.inputIndex,
		outputIndex: m.outputIndex,
	}
	c.reset()
	copy(c.inputs, m.inputs)
	return c
}
