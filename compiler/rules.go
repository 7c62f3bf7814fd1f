package compiler

import (
	"bytes"
	_ "embed"
	"sync"

	"github.com/chazu/fuzzyvm/pkg/rewrite"
)

//go:embed rules.scm
var defaultRuleSource []byte

var (
	defaultRulesOnce sync.Once
	defaultRules     *rewrite.RuleSet
	defaultRulesErr  error
)

// DefaultRules returns the embedded lowering rule set. It is parsed once
// and shared; rule sets are read-only.
func DefaultRules() (*rewrite.RuleSet, error) {
	defaultRulesOnce.Do(func() {
		defaultRules, defaultRulesErr = rewrite.ReadRuleSet(bytes.NewReader(defaultRuleSource), "rules.scm")
	})
	return defaultRules, defaultRulesErr
}

// DefaultRuleSource returns the text of the embedded rule set.
func DefaultRuleSource() []byte {
	return append([]byte(nil), defaultRuleSource...)
}
