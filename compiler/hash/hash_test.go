package hash

import (
	"bytes"
	"strings"
	"testing"

	"github.com/chazu/fuzzyvm/pkg/sexp"
)

func mustHash(t *testing.T, src string) [32]byte {
	t.Helper()
	h, _, err := Source(strings.NewReader(src), "")
	if err != nil {
		t.Fatalf("Source(%q): %v", src, err)
	}
	return h
}

func TestSerializeGolden(t *testing.T) {
	got := Serialize(sexp.List(sexp.Symbol("if"), sexp.ListAtom(nil), sexp.Int(-1), sexp.Handle(2)))
	want := []byte{
		HashVersion,
		TagList, 0, 0, 0, 4,
		TagSymbol, 0, 0, 0, 2, 'i', 'f',
		TagList, 0, 0, 0, 0,
		TagInt, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		TagHandle, 0, 0, 0, 0, 0, 0, 0, 2,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Serialize =\n% x\nwant\n% x", got, want)
	}
}

func TestLayoutDoesNotChangeHash(t *testing.T) {
	a := mustHash(t, "(if (is x hi) (set! y big))")
	b := mustHash(t, "; raise y\n(if (is x hi)\n    (set! y big)) ; done\n")
	if a != b {
		t.Error("whitespace and comments changed the hash")
	}
}

func TestStructureChangesHash(t *testing.T) {
	tests := []struct{ a, b string }{
		{"(a b)", "((a) b)"},
		{"(a b)", "(ab)"},
		{"(a) (b)", "(a (b))"},
		{"(if (is x hi) (set! y big))", "(if (is x lo) (set! y big))"},
		{"", "()"},
	}
	for _, tt := range tests {
		if mustHash(t, tt.a) == mustHash(t, tt.b) {
			t.Errorf("%q and %q hash the same", tt.a, tt.b)
		}
	}
}

func TestSourceSyntaxError(t *testing.T) {
	if _, _, err := Source(strings.NewReader("(a"), "r.scm"); err == nil {
		t.Error("expected a syntax error")
	}
}
