// Package compiler lowers fuzzy controller rules to bytecode. Lowering is a
// fixed sequence of rewrite stages driven by a rule set; the result is a
// flat list of named instructions, which Resolve turns into operands
// against the controller's inputs and outputs and Compile encodes into a
// bytecode.Chunk.
package compiler

import (
	"errors"

	"github.com/tliron/commonlog"

	"github.com/chazu/fuzzyvm/pkg/bytecode"
	"github.com/chazu/fuzzyvm/pkg/rewrite"
	"github.com/chazu/fuzzyvm/pkg/sexp"
)

var log = commonlog.GetLogger("fuzzyvm.compiler")

// Stage is one step of the lowering pipeline: a fixpoint over a group of
// rules. When Head is set, the fixpoint runs separately on each top-level
// form whose head is that symbol instead of on the whole program.
type Stage struct {
	Name  string
	Rules []string
	Head  string
}

// Stages is the lowering pipeline, in order.
var Stages = []Stage{
	{Name: "if-lifting", Rules: []string{"if-lifting", "if-lifting/split"}},
	{Name: "delete-empty-then", Rules: []string{"delete-empty-then"}},
	{Name: "expand-conditions", Head: "if", Rules: []string{
		"expand-and", "expand-and/cleanup", "expand-or", "expand-or/cleanup",
	}},
	{Name: "compile-if-statement", Rules: []string{"compile-if-statement"}},
	{Name: "defuzzer-input/combine", Rules: []string{"defuzzer-input/and", "defuzzer-input/or"}},
	{Name: "defuzzer-input/is", Rules: []string{"defuzzer-input/is"}},
	{Name: "defuzzer-output/begin", Rules: []string{"defuzzer-output/begin"}},
	{Name: "defuzzer-output/empty-begin", Rules: []string{"defuzzer-output/empty-begin"}},
	{Name: "defuzzer-output/set!", Rules: []string{"defuzzer-output/set!"}},
}

// Option configures a Compiler.
type Option func(*options)

type options struct {
	maxRounds int
	maxStack  int
}

// WithMaxRounds bounds every fixpoint. n <= 0 selects
// rewrite.DefaultRoundLimit.
func WithMaxRounds(n int) Option {
	return func(o *options) { o.maxRounds = n }
}

// WithMaxStack sets the stack depth a compiled program may reach. n <= 0
// selects bytecode.DefaultMaxStack.
func WithMaxStack(n int) Option {
	return func(o *options) { o.maxStack = n }
}

type stage struct {
	Stage
	rules []*rewrite.Rule
}

// Compiler runs the lowering pipeline with a fixed rule set. It holds no
// per-program state and may be shared.
type Compiler struct {
	stages []stage
	opts   options
}

// New binds the pipeline stages to rules. A nil rule set selects
// DefaultRules. Every rule a stage names must exist.
func New(rules *rewrite.RuleSet, opts ...Option) (*Compiler, error) {
	if rules == nil {
		var err error
		if rules, err = DefaultRules(); err != nil {
			return nil, err
		}
	}
	c := &Compiler{}
	for _, opt := range opts {
		opt(&c.opts)
	}
	for _, s := range Stages {
		rs, err := rules.Lookup(s.Rules...)
		if err != nil {
			return nil, &StageError{Stage: s.Name, Err: err}
		}
		c.stages = append(c.stages, stage{Stage: s, rules: rs})
	}
	return c, nil
}

// MaxStack returns the configured stack limit.
func (c *Compiler) MaxStack() int {
	if c.opts.maxStack <= 0 {
		return bytecode.DefaultMaxStack
	}
	return c.opts.maxStack
}

// Expand runs every stage over program, a list of top-level rule forms,
// and returns the lowered list. The input is not modified.
func (c *Compiler) Expand(program *sexp.Cons) (*sexp.Cons, error) {
	if program == nil {
		return nil, ErrCompiledToNothing
	}
	for _, s := range c.stages {
		var err error
		if s.Head != "" {
			program, err = c.mapForms(s, program)
		} else {
			program, err = rewrite.Fixpoint(program, c.opts.maxRounds, s.rules...)
		}
		if errors.Is(err, rewrite.ErrDeleted) || (err == nil && program == nil) {
			return nil, &StageError{Stage: s.Name, Err: ErrCompiledToNothing}
		}
		if err != nil {
			return nil, &StageError{Stage: s.Name, Err: err}
		}
		log.Debugf("stage %s: %d forms", s.Name, program.Len())
	}
	return program, nil
}

// mapForms runs the stage fixpoint on each top-level form headed by s.Head
// and leaves the other forms as they are.
func (c *Compiler) mapForms(s stage, program *sexp.Cons) (*sexp.Cons, error) {
	var b sexp.Builder
	for l := program; l != nil; l = l.Cdr {
		form := l.Car
		if form.IsList() && form.List.Head() == s.Head {
			fixed, err := rewrite.Fixpoint(form.List, c.opts.maxRounds, s.rules...)
			if err != nil {
				return nil, err
			}
			form = sexp.ListAtom(fixed)
		}
		b.Append(form)
	}
	return b.List(), nil
}

// Lower expands program and converts the result into named instructions.
func (c *Compiler) Lower(program *sexp.Cons) ([]bytecode.Instruction, error) {
	lowered, err := c.Expand(program)
	if err != nil {
		return nil, err
	}
	return Instructions(lowered)
}
