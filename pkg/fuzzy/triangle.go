// Package fuzzy holds the integer fuzzy-logic runtime: triangular membership
// functions, the weighted-centroid defuzzer and named level sets.
//
// All arithmetic is fixed point. Membership degrees range over [0, M] and
// every division rounds toward negative infinity.
package fuzzy

// M is the membership degree of a triangle's apex.
const M = 256

// MemberFunction maps a crisp input to a membership degree in [0, M]. Apex
// is the representative crisp value of the level, used as the bucket value
// when the level appears on an output.
type MemberFunction interface {
	Eval(x int64) int64
	Apex() int64
}

// Triangle is a symmetric triangular membership function over (X1, X3)
// peaking at X2.
type Triangle struct {
	X1, X2, X3 int64

	riseDen int64 // >= 1
	fallDen int64 // <= -1
}

// NewTriangle builds the triangle spanning x1..x3, swapping the bounds if
// needed. The apex sits at floor((x1+x3)/2). Degenerate triangles evaluate
// to 0 everywhere instead of dividing by zero.
func NewTriangle(x1, x3 int64) *Triangle {
	if x1 > x3 {
		x1, x3 = x3, x1
	}
	x2 := FloorDiv(x1+x3, 2)
	return &Triangle{
		X1:      x1,
		X2:      x2,
		X3:      x3,
		riseDen: max(1, x2-x1),
		fallDen: min(-1, x2-x3),
	}
}

// Eval returns the membership degree of x.
func (t *Triangle) Eval(x int64) int64 {
	if x <= t.X1 || x >= t.X3 {
		return 0
	}
	if x <= t.X2 {
		return FloorDiv(M*(x-t.X1), t.riseDen)
	}
	return FloorDiv(M*(x-t.X3), t.fallDen)
}

// Apex returns X2.
func (t *Triangle) Apex() int64 {
	return t.X2
}

// FloorDiv divides rounding toward negative infinity. b must not be 0.
func FloorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
