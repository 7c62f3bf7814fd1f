package rewrite

import (
	"fmt"
	"io"

	"github.com/chazu/fuzzyvm/pkg/sexp"
)

// RuleSet maps rule names to compiled rules. It is built once by
// LoadRuleSet and is read-only afterwards.
type RuleSet struct {
	rules map[string]*Rule
	order []string
}

// LoadRuleSet compiles every define-transform form in forms.
func LoadRuleSet(forms *sexp.Cons) (*RuleSet, error) {
	s := &RuleSet{rules: make(map[string]*Rule)}
	for c := forms; c != nil; c = c.Cdr {
		if !c.Car.IsList() {
			return nil, ruleErrorf("", ErrMalformedRule, "expected (%s ...), got %s", defineTransform, c.Car)
		}
		r, err := NewRule(c.Car.List)
		if err != nil {
			return nil, err
		}
		if _, dup := s.rules[r.Name]; dup {
			return nil, &RuleError{Rule: r.Name, Err: ErrDuplicateRule}
		}
		s.rules[r.Name] = r
		s.order = append(s.order, r.Name)
	}
	return s, nil
}

// ReadRuleSet parses rule source from r and compiles it. source names the
// input in syntax errors.
func ReadRuleSet(r io.Reader, source string) (*RuleSet, error) {
	forms, err := sexp.NewParser(r, source).Parse()
	if err != nil {
		return nil, err
	}
	return LoadRuleSet(forms)
}

// Get returns the rule called name.
func (s *RuleSet) Get(name string) (*Rule, bool) {
	r, ok := s.rules[name]
	return r, ok
}

// Lookup returns the rules called names, in order, failing on the first
// missing one.
func (s *RuleSet) Lookup(names ...string) ([]*Rule, error) {
	out := make([]*Rule, 0, len(names))
	for _, name := range names {
		r, ok := s.rules[name]
		if !ok {
			return nil, fmt.Errorf("rule set has no rule %q", name)
		}
		out = append(out, r)
	}
	return out, nil
}

// Names returns rule names in definition order.
func (s *RuleSet) Names() []string {
	return append([]string(nil), s.order...)
}

// Len returns the number of rules.
func (s *RuleSet) Len() int {
	return len(s.rules)
}
