package compiler

import (
	"sort"

	"github.com/chazu/fuzzyvm/pkg/bytecode"
	"github.com/chazu/fuzzyvm/pkg/fuzzy"
)

// SymbolTable is the dense numbering of a program's symbols. Inputs,
// outputs and function handles are numbered in first-seen order; inputs
// and outputs the program never mentions follow, sorted by name.
type SymbolTable struct {
	Inputs    []string
	Outputs   []string
	Functions []bytecode.FunctionRef

	inputIndex  map[string]int
	outputIndex map[string]int
	handles     map[bytecode.FunctionRef]int
}

func newSymbolTable() *SymbolTable {
	return &SymbolTable{
		inputIndex:  make(map[string]int),
		outputIndex: make(map[string]int),
		handles:     make(map[bytecode.FunctionRef]int),
	}
}

// InputIndex returns the register index of input name.
func (st *SymbolTable) InputIndex(name string) (int, bool) {
	i, ok := st.inputIndex[name]
	return i, ok
}

// OutputIndex returns the defuzzer index of output name.
func (st *SymbolTable) OutputIndex(name string) (int, bool) {
	i, ok := st.outputIndex[name]
	return i, ok
}

// Handle returns the function handle for ref.
func (st *SymbolTable) Handle(ref bytecode.FunctionRef) (int, bool) {
	h, ok := st.handles[ref]
	return h, ok
}

func (st *SymbolTable) input(name string) int {
	if i, ok := st.inputIndex[name]; ok {
		return i
	}
	st.inputIndex[name] = len(st.Inputs)
	st.Inputs = append(st.Inputs, name)
	return len(st.Inputs) - 1
}

func (st *SymbolTable) output(name string) int {
	if i, ok := st.outputIndex[name]; ok {
		return i
	}
	st.outputIndex[name] = len(st.Outputs)
	st.Outputs = append(st.Outputs, name)
	return len(st.Outputs) - 1
}

func (st *SymbolTable) handle(ref bytecode.FunctionRef) int {
	if h, ok := st.handles[ref]; ok {
		return h
	}
	st.handles[ref] = len(st.Functions)
	st.Functions = append(st.Functions, ref)
	return len(st.Functions) - 1
}

// Layout copies the numbering into chunk.
func (st *SymbolTable) Layout(chunk *bytecode.Chunk) {
	chunk.Inputs = append([]string(nil), st.Inputs...)
	chunk.Outputs = append([]string(nil), st.Outputs...)
	chunk.Functions = append([]bytecode.FunctionRef(nil), st.Functions...)
}

// Resolve numbers the symbols of a lowered program and rewrites its named
// instructions into resolved ones. Output levels resolve to their apex,
// which becomes the bucket value fed to the defuzzer.
func Resolve(instrs []bytecode.Instruction, inputs, outputs map[string]fuzzy.Variable) (*SymbolTable, []bytecode.Instruction, error) {
	st := newSymbolTable()
	out := make([]bytecode.Instruction, 0, len(instrs))
	for _, in := range instrs {
		switch in.Op {
		case bytecode.OpGetInput:
			if _, ok := inputs[in.Name]; !ok {
				return nil, nil, &ResolveError{Err: ErrUnknownInput, Name: in.Name}
			}
			out = append(out, bytecode.GetInputByIndex(int64(st.input(in.Name))))

		case bytecode.OpCallMemberFunction:
			ref := bytecode.FunctionRef{Dir: bytecode.DirInput, Owner: in.Name, Level: in.Level}
			if _, err := lookupFunction(ref, inputs, outputs); err != nil {
				return nil, nil, err
			}
			st.input(in.Name)
			out = append(out, bytecode.CallFunctionByRef(int64(st.handle(ref))))

		case bytecode.OpFeed:
			ref := bytecode.FunctionRef{Dir: bytecode.DirOutput, Owner: in.Name, Level: in.Level}
			fn, err := lookupFunction(ref, inputs, outputs)
			if err != nil {
				return nil, nil, err
			}
			o := st.output(in.Name)
			st.handle(ref)
			out = append(out, bytecode.FeedDefuzzerFast(int64(o), fn.Apex()))

		default:
			out = append(out, in)
		}
	}
	for _, name := range sortedKeys(inputs) {
		st.input(name)
	}
	for _, name := range sortedKeys(outputs) {
		st.output(name)
	}
	return st, out, nil
}

// BindFunctions looks up the membership function behind every ref.
func BindFunctions(refs []bytecode.FunctionRef, inputs, outputs map[string]fuzzy.Variable) ([]fuzzy.MemberFunction, error) {
	fns := make([]fuzzy.MemberFunction, len(refs))
	for h, ref := range refs {
		fn, err := lookupFunction(ref, inputs, outputs)
		if err != nil {
			return nil, err
		}
		fns[h] = fn
	}
	return fns, nil
}

func lookupFunction(ref bytecode.FunctionRef, inputs, outputs map[string]fuzzy.Variable) (fuzzy.MemberFunction, error) {
	vars, unknown, dir := inputs, ErrUnknownInput, "input"
	if ref.Dir == bytecode.DirOutput {
		vars, unknown, dir = outputs, ErrUnknownOutput, "output"
	}
	v, ok := vars[ref.Owner]
	if !ok {
		return nil, &ResolveError{Err: unknown, Name: ref.Owner}
	}
	fn, ok := v.Level(ref.Level)
	if !ok {
		return nil, &ResolveError{Err: ErrUnknownLevel, Name: ref.Owner, Level: ref.Level, Dir: dir}
	}
	return fn, nil
}

func sortedKeys(m map[string]fuzzy.Variable) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
