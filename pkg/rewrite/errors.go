package rewrite

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRule reports a define-transform form with the wrong shape.
	ErrMalformedRule = errors.New("malformed define-transform")

	// ErrUnknownPlaceholder reports a destination placeholder that the
	// source pattern never binds.
	ErrUnknownPlaceholder = errors.New("unknown placeholder")

	// ErrEllipsisMismatch reports a placeholder used with "..." on one side
	// of "=>" and without it on the other.
	ErrEllipsisMismatch = errors.New("ellipsis mismatch")

	// ErrDuplicateRule reports two rules sharing a name in one rule set.
	ErrDuplicateRule = errors.New("duplicate rule")

	// ErrDeleted is returned by Fixpoint when a rule deletes the whole tree.
	ErrDeleted = errors.New("tree deleted")

	// ErrTopLevelSplice is returned by Fixpoint when a rule replaces the
	// whole tree with something other than a single list.
	ErrTopLevelSplice = errors.New("tree must rewrite to a single list")

	// ErrNoFixpoint is returned by Fixpoint when the round limit is hit.
	ErrNoFixpoint = errors.New("no fixpoint reached")
)

// RuleError ties a rule-definition or rewrite failure to the rule's name.
type RuleError struct {
	Rule string
	Err  error
}

func (e *RuleError) Error() string {
	if e.Rule == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("rule %s: %v", e.Rule, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

func ruleErrorf(rule string, sentinel error, format string, args ...any) error {
	return &RuleError{Rule: rule, Err: fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...)}
}
