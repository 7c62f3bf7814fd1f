package rewrite

import (
	"fmt"
	"strings"

	"github.com/chazu/fuzzyvm/pkg/sexp"
)

// OutcomeKind says what a rewrite did to a node.
type OutcomeKind uint8

const (
	Unchanged OutcomeKind = iota // nothing changed anywhere below the node
	Deleted                      // the node is removed from its parent
	Replaced                     // the node is replaced by Outcome.Forms
)

func (k OutcomeKind) String() string {
	switch k {
	case Unchanged:
		return "unchanged"
	case Deleted:
		return "deleted"
	case Replaced:
		return "replaced"
	}
	return fmt.Sprintf("OutcomeKind(%d)", k)
}

// Outcome is the result of rewriting one node. Forms is spliced into the
// parent in place of the node and is only set for Replaced.
type Outcome struct {
	Kind  OutcomeKind
	Forms *sexp.Cons
}

// TryTransform applies the rule to node itself, without recursing.
func (r *Rule) TryTransform(node *sexp.Cons) Outcome {
	b, ok := r.Match(node)
	if !ok {
		return Outcome{Kind: Unchanged}
	}
	if r.Deletes() {
		return Outcome{Kind: Deleted}
	}
	return Outcome{Kind: Replaced, Forms: r.Generate(b)}
}

// RewriteOnce applies the rule bottom-up over tree: nested lists first,
// then the rebuilt tree itself. The input is never modified.
func (r *Rule) RewriteOnce(tree *sexp.Cons) Outcome {
	var acc sexp.Builder
	changed := false

	for c := tree; c != nil; c = c.Cdr {
		if !c.Car.IsList() {
			acc.Append(c.Car)
			continue
		}
		out := r.RewriteOnce(c.Car.List)
		switch out.Kind {
		case Unchanged:
			acc.Append(c.Car)
		case Deleted:
			changed = true
		case Replaced:
			changed = true
			acc.Extend(out.Forms)
		}
	}

	node := tree
	if changed {
		node = acc.List()
	}
	if out := r.TryTransform(node); out.Kind != Unchanged {
		return out
	}
	if changed {
		return Outcome{Kind: Replaced, Forms: sexp.List(sexp.ListAtom(node))}
	}
	return Outcome{Kind: Unchanged}
}

// DefaultRoundLimit bounds Fixpoint when callers pass a limit <= 0.
const DefaultRoundLimit = 10000

// Fixpoint applies rules in order, one RewriteOnce each per round, until a
// round changes nothing. It fails with ErrDeleted if a rule deletes the
// whole tree and with ErrNoFixpoint after limit rounds.
func Fixpoint(tree *sexp.Cons, limit int, rules ...*Rule) (*sexp.Cons, error) {
	if limit <= 0 {
		limit = DefaultRoundLimit
	}
	for round := 0; round < limit; round++ {
		changed := false
		for _, r := range rules {
			out := r.RewriteOnce(tree)
			switch out.Kind {
			case Deleted:
				return nil, &RuleError{Rule: r.Name, Err: ErrDeleted}
			case Replaced:
				next, err := singleForm(r, out.Forms)
				if err != nil {
					return nil, err
				}
				tree = next
				changed = true
			}
		}
		if !changed {
			return tree, nil
		}
	}
	return nil, &RuleError{
		Rule: ruleNames(rules),
		Err:  fmt.Errorf("%w after %d rounds", ErrNoFixpoint, limit),
	}
}

// singleForm unwraps the replacement of a whole tree, which has no parent
// to splice into and so must be exactly one list.
func singleForm(r *Rule, forms *sexp.Cons) (*sexp.Cons, error) {
	switch {
	case forms == nil:
		return nil, &RuleError{Rule: r.Name, Err: ErrDeleted}
	case forms.Cdr != nil:
		return nil, ruleErrorf(r.Name, ErrTopLevelSplice, "got %d forms", forms.Len())
	case !forms.Car.IsList():
		return nil, ruleErrorf(r.Name, ErrTopLevelSplice, "got the atom %s", forms.Car)
	}
	return forms.Car.List, nil
}

func ruleNames(rules []*Rule) string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	return strings.Join(names, ",")
}
