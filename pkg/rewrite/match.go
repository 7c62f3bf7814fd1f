package rewrite

import "github.com/chazu/fuzzyvm/pkg/sexp"

// Bindings holds what a successful match captured. Plain placeholders bind
// one element; ellipsis placeholders bind a tail.
type Bindings struct {
	one  map[string]sexp.Atom
	tail map[string]*sexp.Cons
}

func newBindings() Bindings {
	return Bindings{
		one:  make(map[string]sexp.Atom),
		tail: make(map[string]*sexp.Cons),
	}
}

// Value returns the element bound to a plain placeholder.
func (b Bindings) Value(name string) (sexp.Atom, bool) {
	a, ok := b.one[name]
	return a, ok
}

// Tail returns the list bound to an ellipsis placeholder.
func (b Bindings) Tail(name string) (*sexp.Cons, bool) {
	l, ok := b.tail[name]
	return l, ok
}

// Match matches the rule's pattern against target.
func (r *Rule) Match(target *sexp.Cons) (Bindings, bool) {
	b := newBindings()
	if !match(r.pattern, target, b) {
		return Bindings{}, false
	}
	return b, true
}

// match walks pattern and target in lockstep. An ellipsis placeholder is
// always the last pattern element and takes the whole remaining tail.
func match(pattern []node, target *sexp.Cons, b Bindings) bool {
	for _, p := range pattern {
		if p.kind == placeholderNode && p.ellipsis {
			b.tail[p.name] = target
			return true
		}
		if target == nil {
			return false
		}
		switch p.kind {
		case placeholderNode:
			b.one[p.name] = target.Car
		case listNode:
			if !target.Car.IsList() || !match(p.items, target.Car.List, b) {
				return false
			}
		case literalNode:
			if !p.atom.Equal(target.Car) {
				return false
			}
		}
		target = target.Cdr
	}
	return target == nil
}

// Generate instantiates the rule's templates with b. The result is the
// sequence of forms that replaces the matched node.
func (r *Rule) Generate(b Bindings) *sexp.Cons {
	return generate(r.templates, b)
}

func generate(template []node, b Bindings) *sexp.Cons {
	var out sexp.Builder
	for _, t := range template {
		switch t.kind {
		case placeholderNode:
			if t.ellipsis {
				out.Extend(b.tail[t.name])
			} else {
				out.Append(b.one[t.name])
			}
		case listNode:
			out.Append(sexp.ListAtom(generate(t.items, b)))
		case literalNode:
			if t.atom.IsSymbol(ellipsisMark) {
				continue
			}
			out.Append(t.atom)
		}
	}
	return out.List()
}
