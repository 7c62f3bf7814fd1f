package compiler

import (
	"errors"
	"fmt"
)

var (
	ErrCompiledToNothing = errors.New("rule compiled to nothing")
	ErrNotLowered        = errors.New("form is not a primitive instruction")
	ErrUnknownInput      = errors.New("unknown input")
	ErrUnknownOutput     = errors.New("unknown output")
	ErrUnknownLevel      = errors.New("unknown level")
)

// ResolveError names the identifier that failed to resolve. Err is one of
// ErrUnknownInput, ErrUnknownOutput or ErrUnknownLevel.
type ResolveError struct {
	Err   error
	Name  string // input or output
	Level string // set for ErrUnknownLevel
	Dir   string // "input" or "output", set for ErrUnknownLevel
}

func (e *ResolveError) Error() string {
	if e.Level != "" {
		return fmt.Sprintf("%v %q of %s %q", e.Err, e.Level, e.Dir, e.Name)
	}
	return fmt.Sprintf("%v %q", e.Err, e.Name)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// StageError wraps a failure in one lowering stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
