package fuzzy

import (
	"errors"
	"testing"
)

func TestTriangleBoundaries(t *testing.T) {
	tri := NewTriangle(0, 10)
	if tri.X2 != 5 || tri.Apex() != 5 {
		t.Fatalf("apex = %d, want 5", tri.X2)
	}
	tests := []struct {
		x    int64
		want int64
	}{
		{0, 0},
		{10, 0},
		{5, M},
		{-100, 0},
		{1000, 0},
		{1, 51},
		{9, 51},
	}
	for _, tc := range tests {
		if got := tri.Eval(tc.x); got != tc.want {
			t.Errorf("Eval(%d) = %d, want %d", tc.x, got, tc.want)
		}
	}
}

func TestTriangleMonotonic(t *testing.T) {
	tri := NewTriangle(0, 10)
	for x := int64(0); x < 5; x++ {
		if tri.Eval(x) > tri.Eval(x+1) {
			t.Errorf("not non-decreasing at %d", x)
		}
	}
	for x := int64(5); x < 10; x++ {
		if tri.Eval(x) < tri.Eval(x+1) {
			t.Errorf("not non-increasing at %d", x)
		}
	}
}

func TestTriangleSwapsBounds(t *testing.T) {
	tri := NewTriangle(10, -10)
	if tri.X1 != -10 || tri.X3 != 10 || tri.X2 != 0 {
		t.Errorf("got %+v", tri)
	}
}

func TestTriangleNegativeApexFloors(t *testing.T) {
	tri := NewTriangle(-7, 0)
	if tri.X2 != -4 {
		t.Errorf("apex = %d, want floor(-7/2) = -4", tri.X2)
	}
}

func TestTriangleDegenerate(t *testing.T) {
	for _, tri := range []*Triangle{NewTriangle(3, 3), NewTriangle(3, 4)} {
		for x := int64(-2); x < 8; x++ {
			if got := tri.Eval(x); got != 0 {
				t.Errorf("%+v Eval(%d) = %d, want 0", tri, x, got)
			}
		}
	}
	// Width 2 is the smallest triangle with a non-zero point.
	if got := NewTriangle(0, 2).Eval(1); got != M {
		t.Errorf("Eval(1) = %d, want %d", got, M)
	}
}

func TestFloorDiv(t *testing.T) {
	tests := []struct{ a, b, want int64 }{
		{7, 2, 3},
		{-7, 2, -4},
		{7, -2, -4},
		{-7, -2, 3},
		{-8, 2, -4},
		{0, 5, 0},
	}
	for _, tc := range tests {
		if got := FloorDiv(tc.a, tc.b); got != tc.want {
			t.Errorf("FloorDiv(%d, %d) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestDefuzzerEmpty(t *testing.T) {
	var d Defuzzer
	d.Reset()
	if got := d.Defuzz(); got != 0 {
		t.Errorf("Defuzz() = %d, want 0", got)
	}
}

func TestDefuzzerCentroid(t *testing.T) {
	var d Defuzzer
	d.Feed(100, 256)
	d.Feed(200, 256)
	if got := d.Defuzz(); got != 150 {
		t.Errorf("Defuzz() = %d, want 150", got)
	}
	d.Feed(-1000, 1)
	if got := d.Defuzz(); got != (100*256+200*256-1000)/513 {
		t.Errorf("Defuzz() = %d", got)
	}
	d.Reset()
	d.Feed(-3, 2)
	d.Feed(0, 2)
	if got := d.Defuzz(); got != -2 {
		t.Errorf("Defuzz() = %d, want floor(-6/4) = -2", got)
	}
}

func TestLevels(t *testing.T) {
	l := NewLevels()
	if err := l.Add("lo", NewTriangle(0, 10)); err != nil {
		t.Fatal(err)
	}
	if err := l.Add("lo", NewTriangle(0, 10)); !errors.Is(err, ErrDuplicateLevel) {
		t.Errorf("got %v, want ErrDuplicateLevel", err)
	}
	if _, ok := l.Level("lo"); !ok {
		t.Error("level lo missing")
	}
	if _, ok := l.Level("hi"); ok {
		t.Error("unexpected level hi")
	}
}

func TestPresets(t *testing.T) {
	five := FiveLevels(Span{-1024, -512}, Span{-768, 0}, Span{-256, 256}, Span{0, 768}, Span{512, 1024})
	names := five.LevelNames()
	if len(names) != 5 || names[0] != "NM" || names[4] != "PM" {
		t.Fatalf("names = %v", names)
	}
	z, _ := five.Level("Z")
	if z.Apex() != 0 || z.Eval(0) != M {
		t.Errorf("Z apex = %d, Eval(0) = %d", z.Apex(), z.Eval(0))
	}
	if got := len(ThreeLevels(Span{-2, -1}, Span{-1, 1}, Span{1, 2}).LevelNames()); got != 3 {
		t.Errorf("ThreeLevels has %d levels", got)
	}
	pos := ThreeLevelsPositive(Span{0, 10}, Span{5, 15}, Span{10, 20})
	if _, ok := pos.Level("PS"); !ok {
		t.Error("ThreeLevelsPositive has no PS")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct{ v, max, want int64 }{
		{300, 300, 1024},
		{500, 300, 1024},
		{-300, 300, -1024},
		{150, 300, 512},
		{-1, 300, -4},
		{0, 300, 0},
	}
	for _, tc := range tests {
		if got := Normalize(tc.v, tc.max); got != tc.want {
			t.Errorf("Normalize(%d, %d) = %d, want %d", tc.v, tc.max, got, tc.want)
		}
	}
}
