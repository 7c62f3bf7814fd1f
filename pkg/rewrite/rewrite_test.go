package rewrite

import (
	"errors"
	"strings"
	"testing"

	"github.com/chazu/fuzzyvm/pkg/sexp"
)

func mustRule(t *testing.T, src string) *Rule {
	t.Helper()
	forms, err := sexp.ParseString(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	r, err := NewRule(forms.Car.List)
	if err != nil {
		t.Fatalf("NewRule(%q): %v", src, err)
	}
	return r
}

func mustList(t *testing.T, src string) *sexp.Cons {
	t.Helper()
	forms, err := sexp.ParseString(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return forms.Car.List
}

func TestMatchEllipsisCapture(t *testing.T) {
	for _, src := range []string{
		"(define-transform rot (<x> <rest> ...) => (<rest> ... <x>))",
		"(define-transform rot (<x> <rest>...) => (<rest>... <x>))",
	} {
		r := mustRule(t, src)
		b, ok := r.Match(mustList(t, "(1 2 3 4)"))
		if !ok {
			t.Fatalf("%s: no match", src)
		}
		if x, _ := b.Value("x"); !x.IsSymbol("1") {
			t.Errorf("x = %v, want 1", x)
		}
		if rest, _ := b.Tail("rest"); sexp.String(rest) != "(2 3 4)" {
			t.Errorf("rest = %s, want (2 3 4)", sexp.String(rest))
		}
		forms := r.Generate(b)
		if got := sexp.Forms(forms); got != "(2 3 4 1)\n" {
			t.Errorf("generate = %q, want (2 3 4 1)", got)
		}
	}
}

func TestMatchEllipsisEmptyTail(t *testing.T) {
	r := mustRule(t, "(define-transform r (f <x> <rest> ...) => (g <rest> ...))")
	out := r.TryTransform(mustList(t, "(f a)"))
	if out.Kind != Replaced || sexp.Forms(out.Forms) != "(g)\n" {
		t.Errorf("got %v %q, want replaced (g)", out.Kind, sexp.Forms(out.Forms))
	}
}

func TestMatchFailures(t *testing.T) {
	r := mustRule(t, "(define-transform r (is <in> (<a> b)) => (ok))")
	tests := []struct {
		target string
		want   bool
	}{
		{"(is x (y b))", true},
		{"(is x (y c))", false},  // literal mismatch
		{"(is x y)", false},      // list expected
		{"(is x)", false},        // missing element
		{"(is x (y b) z)", false}, // target longer than pattern
		{"(was x (y b))", false},
		{"(is (nested list) (y b))", true},
	}
	for _, tc := range tests {
		_, ok := r.Match(mustList(t, tc.target))
		if ok != tc.want {
			t.Errorf("match %s = %v, want %v", tc.target, ok, tc.want)
		}
	}
}

func TestGenerateDropsLiteralEllipsis(t *testing.T) {
	r := mustRule(t, "(define-transform r (a <x>) => (b ... <x>))")
	out := r.TryTransform(mustList(t, "(a 1)"))
	if got := sexp.Forms(out.Forms); got != "(b 1)\n" {
		t.Errorf("got %q, want (b 1)", got)
	}
}

func TestDeletionPropagation(t *testing.T) {
	r := mustRule(t, "(define-transform drop (foo) =>)")
	if !r.Deletes() {
		t.Fatal("rule without templates must delete")
	}
	out := r.RewriteOnce(mustList(t, "(a (foo) b)"))
	if out.Kind != Replaced {
		t.Fatalf("kind = %v, want replaced", out.Kind)
	}
	if got := sexp.Forms(out.Forms); got != "(a b)\n" {
		t.Errorf("got %q, want (a b)", got)
	}

	if out := r.RewriteOnce(mustList(t, "(foo)")); out.Kind != Deleted {
		t.Errorf("top-level match kind = %v, want deleted", out.Kind)
	}
}

func TestRewriteOnceSplicesAndRecurses(t *testing.T) {
	r := mustRule(t, "(define-transform dup (x <v>) => (y <v>) (z <v>))")
	out := r.RewriteOnce(mustList(t, "(p (q (x 1)) (x 2))"))
	if out.Kind != Replaced {
		t.Fatalf("kind = %v", out.Kind)
	}
	want := "(p (q (y 1) (z 1)) (y 2) (z 2))\n"
	if got := sexp.Forms(out.Forms); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteOnceAppliesToRebuiltNode(t *testing.T) {
	drop := mustRule(t, "(define-transform r (k (gone)) => (done))")
	out := drop.RewriteOnce(mustList(t, "(k (gone))"))
	if out.Kind != Replaced || sexp.Forms(out.Forms) != "(done)\n" {
		t.Fatalf("got %v %q", out.Kind, sexp.Forms(out.Forms))
	}

	// (k (w)) only matches drop after inner has rewritten its child.
	inner := mustRule(t, "(define-transform r (w) => (gone))")
	res, err := Fixpoint(mustList(t, "(k (w))"), 0, inner, drop)
	if err != nil {
		t.Fatal(err)
	}
	if got := sexp.String(res); got != "(done)" {
		t.Errorf("got %s, want (done)", got)
	}
}

func TestRewriteOnceIdempotentAtFixpoint(t *testing.T) {
	r := mustRule(t, "(define-transform flatten (and <a> <b> <c> <rest> ...) => (and <a> (and <b> <c> <rest> ...)))")
	tree := mustList(t, "((if (and p q r s) (set! y big)))")
	fixed, err := Fixpoint(tree, 0, r)
	if err != nil {
		t.Fatal(err)
	}
	if got := sexp.String(fixed); got != "((if (and p (and q (and r s))) (set! y big)))" {
		t.Errorf("got %s", got)
	}
	if out := r.RewriteOnce(fixed); out.Kind != Unchanged {
		t.Errorf("second application = %v, want unchanged", out.Kind)
	}
	if !sexp.Equal(tree, mustList(t, "((if (and p q r s) (set! y big)))")) {
		t.Error("rewriting modified its input")
	}
}

func TestFixpointDeleted(t *testing.T) {
	r := mustRule(t, "(define-transform r (<x> ...) =>)")
	_, err := Fixpoint(mustList(t, "(a b)"), 0, r)
	if !errors.Is(err, ErrDeleted) {
		t.Fatalf("got %v, want ErrDeleted", err)
	}
}

func TestFixpointRoundLimit(t *testing.T) {
	r := mustRule(t, "(define-transform grow (n <x> ...) => (n n <x> ...))")
	_, err := Fixpoint(mustList(t, "(n)"), 25, r)
	if !errors.Is(err, ErrNoFixpoint) {
		t.Fatalf("got %v, want ErrNoFixpoint", err)
	}
}

func TestFixpointMultipleTopLevelForms(t *testing.T) {
	tests := []struct {
		rule, tree string
	}{
		{"(define-transform split (a) => (b) (c))", "(a)"},
		{"(define-transform unwrap (if <c> <body> ...) => <body> ...)", "(if (is x hi) (set! y big) (set! z big))"},
		{"(define-transform atom (a) => b)", "(a)"},
	}
	for _, tt := range tests {
		_, err := Fixpoint(mustList(t, tt.tree), 0, mustRule(t, tt.rule))
		if !errors.Is(err, ErrTopLevelSplice) {
			t.Errorf("%s on %s: got %v, want ErrTopLevelSplice", tt.rule, tt.tree, err)
		}
		if errors.Is(err, ErrMalformedRule) {
			t.Errorf("%s on %s: blamed the rule: %v", tt.rule, tt.tree, err)
		}
	}
}

func TestRuleDefinitionErrors(t *testing.T) {
	tests := []struct {
		src  string
		want error
		name string
	}{
		{"(define-transform r (a <x>) => (<y>))", ErrUnknownPlaceholder, "r"},
		{"(define-transform r (a <x> ...) => (<x>))", ErrEllipsisMismatch, "r"},
		{"(define-transform r (a <x>) => (<x> ...))", ErrEllipsisMismatch, "r"},
		{"(define-transform r (a <x> ... b) => ())", ErrMalformedRule, "r"},
		{"(define-transform r (a <x> <x>) => ())", ErrMalformedRule, "r"},
		{"(define-transform r (a ...) => ())", ErrMalformedRule, "r"},
		{"(define-transform r a => ())", ErrMalformedRule, "r"},
		{"(define-transform r (a) -> ())", ErrMalformedRule, "r"},
		{"(define-transform (r) (a) => ())", ErrMalformedRule, ""},
		{"(define-rule r (a) => ())", ErrMalformedRule, ""},
	}
	for _, tc := range tests {
		forms, err := sexp.ParseString(tc.src)
		if err != nil {
			t.Fatal(err)
		}
		_, err = NewRule(forms.Car.List)
		if !errors.Is(err, tc.want) {
			t.Errorf("NewRule(%s) = %v, want %v", tc.src, err, tc.want)
			continue
		}
		var re *RuleError
		if !errors.As(err, &re) || re.Rule != tc.name {
			t.Errorf("NewRule(%s) error does not name rule %q: %v", tc.src, tc.name, err)
		}
	}
}

func TestLoadRuleSet(t *testing.T) {
	src := `
; two rules
(define-transform a (x) => (y))
(define-transform b (y) =>)
`
	set, err := ReadRuleSet(strings.NewReader(src), "test.scm")
	if err != nil {
		t.Fatal(err)
	}
	if set.Len() != 2 {
		t.Fatalf("Len = %d, want 2", set.Len())
	}
	if got := strings.Join(set.Names(), ","); got != "a,b" {
		t.Errorf("Names = %s", got)
	}
	rules, err := set.Lookup("b", "a")
	if err != nil || rules[0].Name != "b" || rules[1].Name != "a" {
		t.Errorf("Lookup = %v, %v", rules, err)
	}
	if _, err := set.Lookup("missing"); err == nil {
		t.Error("Lookup of a missing rule succeeded")
	}

	_, err = ReadRuleSet(strings.NewReader("(define-transform a (x) => (y)) (define-transform a (z) =>)"), "")
	if !errors.Is(err, ErrDuplicateRule) {
		t.Errorf("got %v, want ErrDuplicateRule", err)
	}
	_, err = ReadRuleSet(strings.NewReader("stray"), "")
	if !errors.Is(err, ErrMalformedRule) {
		t.Errorf("got %v, want ErrMalformedRule", err)
	}
}
