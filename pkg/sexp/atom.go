// Package sexp implements the S-expression layer of fuzzyvm: a chunked
// lexer, a stack-based parser and the persistent cons-list tree that every
// later stage (rewrite rules, the lowering pipeline, the resolver) works on.
package sexp

import "fmt"

// Kind identifies the payload carried by an Atom.
type Kind uint8

const (
	KindSymbol Kind = iota // free-form text from the source
	KindInt                // integer produced after lowering
	KindHandle             // resolved function handle
	KindList               // nested list (nil List is the empty list)
)

var kindNames = map[Kind]string{
	KindSymbol: "symbol",
	KindInt:    "int",
	KindHandle: "handle",
	KindList:   "list",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Atom is one element of a list. Only one of the payload fields is
// meaningful, selected by Kind.
type Atom struct {
	Kind Kind
	Sym  string
	Int  int64
	List *Cons
}

// Cons is a list cell. A nil *Cons is the empty list.
type Cons struct {
	Car Atom
	Cdr *Cons
}

// Symbol returns a symbol atom.
func Symbol(text string) Atom {
	return Atom{Kind: KindSymbol, Sym: text}
}

// Int returns an integer atom.
func Int(v int64) Atom {
	return Atom{Kind: KindInt, Int: v}
}

// Handle returns a handle atom.
func Handle(h int64) Atom {
	return Atom{Kind: KindHandle, Int: h}
}

// ListAtom wraps a list so it can be stored as an element of another list.
func ListAtom(l *Cons) Atom {
	return Atom{Kind: KindList, List: l}
}

// IsList reports whether the atom holds a nested list.
func (a Atom) IsList() bool { return a.Kind == KindList }

// IsSymbol reports whether the atom is the symbol text.
func (a Atom) IsSymbol(text string) bool {
	return a.Kind == KindSymbol && a.Sym == text
}

// Equal compares two atoms structurally.
func (a Atom) Equal(b Atom) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindSymbol:
		return a.Sym == b.Sym
	case KindInt, KindHandle:
		return a.Int == b.Int
	case KindList:
		return Equal(a.List, b.List)
	}
	return false
}

func (a Atom) String() string {
	switch a.Kind {
	case KindSymbol:
		return a.Sym
	case KindInt:
		return fmt.Sprintf("%d", a.Int)
	case KindHandle:
		return fmt.Sprintf("#<fn %d>", a.Int)
	case KindList:
		return String(a.List)
	}
	return "?"
}

// List builds a list from atoms.
func List(atoms ...Atom) *Cons {
	var b Builder
	for _, a := range atoms {
		b.Append(a)
	}
	return b.List()
}

// Equal compares two lists structurally.
func Equal(a, b *Cons) bool {
	for a != nil && b != nil {
		if !a.Car.Equal(b.Car) {
			return false
		}
		a, b = a.Cdr, b.Cdr
	}
	return a == nil && b == nil
}

// Len returns the number of elements in l.
func (l *Cons) Len() int {
	n := 0
	for ; l != nil; l = l.Cdr {
		n++
	}
	return n
}

// Nth returns the i-th element of l.
func (l *Cons) Nth(i int) (Atom, bool) {
	for ; l != nil; l = l.Cdr {
		if i == 0 {
			return l.Car, true
		}
		i--
	}
	return Atom{}, false
}

// Head returns the first element's symbol text, or "" when l is empty or
// starts with a non-symbol.
func (l *Cons) Head() string {
	if l == nil || l.Car.Kind != KindSymbol {
		return ""
	}
	return l.Car.Sym
}

// Slice copies the elements of l into a slice.
func (l *Cons) Slice() []Atom {
	var out []Atom
	for ; l != nil; l = l.Cdr {
		out = append(out, l.Car)
	}
	return out
}

// Builder accumulates atoms front to back and produces a fresh list.
// The zero value is ready to use.
type Builder struct {
	head *Cons
	tail *Cons
	n    int
}

// Append adds one atom to the end.
func (b *Builder) Append(a Atom) {
	cell := &Cons{Car: a}
	if b.tail == nil {
		b.head = cell
	} else {
		b.tail.Cdr = cell
	}
	b.tail = cell
	b.n++
}

// Extend appends every element of l, copying the cells.
func (b *Builder) Extend(l *Cons) {
	for ; l != nil; l = l.Cdr {
		b.Append(l.Car)
	}
}

// Len returns the number of atoms appended so far.
func (b *Builder) Len() int { return b.n }

// List returns the accumulated list. The builder must not be reused.
func (b *Builder) List() *Cons {
	return b.head
}
