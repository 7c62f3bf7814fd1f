package fuzzy

import (
	"errors"
	"fmt"
)

// ErrDuplicateLevel reports a level name added twice to one variable.
var ErrDuplicateLevel = errors.New("duplicate level")

// Variable is a linguistic variable: a set of named levels, each backed by
// a membership function. Inputs and outputs handed to the compiler are
// Variables.
type Variable interface {
	Level(name string) (MemberFunction, bool)
	LevelNames() []string
}

// Levels is the standard Variable: named membership functions kept in
// insertion order.
type Levels struct {
	names []string
	fns   map[string]MemberFunction
}

// NewLevels returns an empty level set.
func NewLevels() *Levels {
	return &Levels{fns: make(map[string]MemberFunction)}
}

// Add registers fn under name.
func (l *Levels) Add(name string, fn MemberFunction) error {
	if _, dup := l.fns[name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateLevel, name)
	}
	l.fns[name] = fn
	l.names = append(l.names, name)
	return nil
}

// Level returns the membership function for name.
func (l *Levels) Level(name string) (MemberFunction, bool) {
	fn, ok := l.fns[name]
	return fn, ok
}

// LevelNames returns level names in insertion order.
func (l *Levels) LevelNames() []string {
	return append([]string(nil), l.names...)
}

// Span is the [x1, x3] base of a triangle.
type Span [2]int64

func triangles(names []string, spans []Span) *Levels {
	l := NewLevels()
	for i, name := range names {
		// Preset names are distinct, Add cannot fail.
		_ = l.Add(name, NewTriangle(spans[i][0], spans[i][1]))
	}
	return l
}

// Level names of the preset sets.
var (
	FiveLevelNames          = []string{"NM", "NS", "Z", "PS", "PM"}
	ThreeLevelNames         = []string{"NM", "Z", "PM"}
	ThreeLevelPositiveNames = []string{"Z", "PS", "PM"}
)

// FiveLevels builds negative-medium .. positive-medium triangles.
func FiveLevels(nm, ns, z, ps, pm Span) *Levels {
	return triangles(FiveLevelNames, []Span{nm, ns, z, ps, pm})
}

// ThreeLevels builds negative-medium, zero and positive-medium triangles.
func ThreeLevels(nm, z, pm Span) *Levels {
	return triangles(ThreeLevelNames, []Span{nm, z, pm})
}

// ThreeLevelsPositive builds zero, positive-small and positive-medium
// triangles for inputs that are never negative.
func ThreeLevelsPositive(z, ps, pm Span) *Levels {
	return triangles(ThreeLevelPositiveNames, []Span{z, ps, pm})
}

// NormalRange is the magnitude Normalize maps onto.
const NormalRange = 1024

// Normalize scales value from [-maxValue, maxValue] onto
// [-NormalRange, NormalRange], clamping outside values.
func Normalize(value, maxValue int64) int64 {
	switch {
	case value >= maxValue:
		return NormalRange
	case value <= -maxValue:
		return -NormalRange
	}
	return FloorDiv(value*NormalRange, maxValue)
}
