// Package rewrite is a small term-rewriting engine over sexp lists. Rules are
// written as
//
//	(define-transform <name> <pattern> => <template>...)
//
// where <x> in the pattern is a placeholder binding one element and
// "<x> ..." (or "<x>...") binds the rest of the enclosing list. Every
// template is generated on a match and the results are spliced into the
// parent list in place of the matched node, so a rule with no templates
// deletes what it matches.
package rewrite

import (
	"strings"

	"github.com/chazu/fuzzyvm/pkg/sexp"
)

const (
	defineTransform = "define-transform"
	arrow           = "=>"
	ellipsisMark    = "..."
)

type nodeKind uint8

const (
	literalNode nodeKind = iota
	placeholderNode
	listNode
)

// node is one element of a compiled pattern or template.
type node struct {
	kind     nodeKind
	atom     sexp.Atom // literalNode
	name     string    // placeholderNode
	ellipsis bool      // placeholderNode
	items    []node    // listNode
}

// Rule is a compiled define-transform. It is immutable and safe to share.
type Rule struct {
	Name string

	pattern   []node
	templates []node
	source    *sexp.Cons
}

// NewRule compiles a (define-transform ...) form.
func NewRule(form *sexp.Cons) (*Rule, error) {
	if form.Head() != defineTransform {
		return nil, ruleErrorf("", ErrMalformedRule, "expected (%s ...), got %s", defineTransform, sexp.String(form))
	}
	elems := form.Slice()
	if len(elems) < 4 || elems[1].Kind != sexp.KindSymbol {
		return nil, ruleErrorf("", ErrMalformedRule, "expected (%s <name> <pattern> => ...), got %s", defineTransform, sexp.String(form))
	}

	r := &Rule{Name: elems[1].Sym, source: form}
	if !elems[2].IsList() {
		return nil, ruleErrorf(r.Name, ErrMalformedRule, "pattern must be a list, got %s", elems[2])
	}
	if !elems[3].IsSymbol(arrow) {
		return nil, ruleErrorf(r.Name, ErrMalformedRule, "expected %s after the pattern, got %s", arrow, elems[3])
	}

	c := &ruleCompiler{rule: r.Name, bound: make(map[string]bool)}
	var err error
	if r.pattern, err = c.compile(elems[2].List, false); err != nil {
		return nil, err
	}
	// Everything after "=>" is the destination: zero or more templates.
	rest := form.Cdr.Cdr.Cdr.Cdr
	if r.templates, err = c.compile(rest, true); err != nil {
		return nil, err
	}
	return r, nil
}

// Deletes reports whether the rule has no destination.
func (r *Rule) Deletes() bool {
	return len(r.templates) == 0
}

// String returns the rule's source form.
func (r *Rule) String() string {
	return sexp.String(r.source)
}

// ruleCompiler turns pattern and template lists into nodes, checking that
// placeholders are used consistently across "=>".
type ruleCompiler struct {
	rule  string
	bound map[string]bool // placeholder name -> ellipsis
}

func (c *ruleCompiler) compile(l *sexp.Cons, dst bool) ([]node, error) {
	var out []node
	for e := l; e != nil; e = e.Cdr {
		a := e.Car
		if a.IsList() {
			items, err := c.compile(a.List, dst)
			if err != nil {
				return nil, err
			}
			out = append(out, node{kind: listNode, items: items})
			continue
		}

		name, ellipsis, ok := placeholderName(a)
		if !ok {
			if !dst && a.IsSymbol(ellipsisMark) {
				return nil, ruleErrorf(c.rule, ErrMalformedRule, "%s must follow a placeholder", ellipsisMark)
			}
			out = append(out, node{kind: literalNode, atom: a})
			continue
		}
		if !ellipsis && e.Cdr != nil && e.Cdr.Car.IsSymbol(ellipsisMark) {
			ellipsis = true
			e = e.Cdr
		}

		if dst {
			if err := c.checkUse(name, ellipsis); err != nil {
				return nil, err
			}
		} else {
			if ellipsis && e.Cdr != nil {
				return nil, ruleErrorf(c.rule, ErrMalformedRule, "extra elements after <%s> %s", name, ellipsisMark)
			}
			if _, dup := c.bound[name]; dup {
				return nil, ruleErrorf(c.rule, ErrMalformedRule, "placeholder <%s> bound twice", name)
			}
			c.bound[name] = ellipsis
		}
		out = append(out, node{kind: placeholderNode, name: name, ellipsis: ellipsis})
	}
	return out, nil
}

func (c *ruleCompiler) checkUse(name string, ellipsis bool) error {
	want, ok := c.bound[name]
	switch {
	case !ok:
		return ruleErrorf(c.rule, ErrUnknownPlaceholder, "<%s>", name)
	case want && !ellipsis:
		return ruleErrorf(c.rule, ErrEllipsisMismatch, "<%s> needs %s", name, ellipsisMark)
	case !want && ellipsis:
		return ruleErrorf(c.rule, ErrEllipsisMismatch, "<%s> does not take %s", name, ellipsisMark)
	}
	return nil
}

// placeholderName recognizes "<name>" and "<name>...".
func placeholderName(a sexp.Atom) (name string, ellipsis, ok bool) {
	if a.Kind != sexp.KindSymbol {
		return "", false, false
	}
	s := a.Sym
	if base, found := strings.CutSuffix(s, ellipsisMark); found && isPlaceholder(base) {
		return base[1 : len(base)-1], true, true
	}
	if isPlaceholder(s) {
		return s[1 : len(s)-1], false, true
	}
	return "", false, false
}

func isPlaceholder(s string) bool {
	return len(s) >= 3 && s[0] == '<' && s[len(s)-1] == '>'
}
