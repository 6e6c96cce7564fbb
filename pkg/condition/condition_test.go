package condition

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExprComparisons(t *testing.T) {
	t.Parallel()

	values := map[string]any{
		"has_human_oversight": true,
		"visibility":          "restricted",
		"data_categories":     []string{"pii", "biometric"},
		"score":               "3",
		"notes":               "",
	}

	cases := []struct {
		expr string
		want bool
	}{
		{`has_human_oversight == true`, true},
		{`has_human_oversight != true`, false},
		{`has_human_oversight`, true},
		{`!has_human_oversight`, false},
		{`visibility == "restricted"`, true},
		{`visibility == 'public'`, false},
		{`visibility != public`, true},
		{`data_categories == "biometric"`, true},
		{`data_categories == "health"`, false},
		{`score == 3`, true},
		{`notes`, false},
		{`missing == null`, true},
		{`missing`, false},
		{`has_human_oversight && (visibility == "public" || score == 3)`, true},
		{`!(has_human_oversight && notes)`, true},
	}

	for _, tc := range cases {
		expr, err := Compile(tc.expr)
		if err != nil {
			t.Fatalf("Compile(%q): %v", tc.expr, err)
		}
		if got := expr.Eval(values); got != tc.want {
			t.Errorf("Eval(%q) = %v, want %v", tc.expr, got, tc.want)
		}
	}
}

func TestExprStringBooleans(t *testing.T) {
	t.Parallel()

	ok, err := Eval(`enabled == true`, map[string]any{"enabled": "true"})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !ok {
		t.Fatalf("expected string \"true\" to compare equal to true")
	}

	ok, err = Eval(`enabled == false`, map[string]any{})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !ok {
		t.Fatalf("expected missing flag to compare equal to false")
	}
}

func TestExprNestedLookup(t *testing.T) {
	t.Parallel()

	ok, err := Eval(`owner.team == "risk"`, map[string]any{
		"owner": map[string]any{"team": "risk"},
	})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !ok {
		t.Fatalf("expected nested lookup to match")
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	if _, err := Compile("   "); !errors.Is(err, ErrEmptyExpression) {
		t.Fatalf("expected ErrEmptyExpression, got %v", err)
	}

	for _, bad := range []string{
		`a = b`,
		`a & b`,
		`a | b`,
		`(a == true`,
		`a ==`,
		`"unterminated`,
		`== true`,
		`a b`,
	} {
		if _, err := Compile(bad); err == nil {
			t.Errorf("Compile(%q) expected error", bad)
		}
	}
}

func TestIdentifiers(t *testing.T) {
	t.Parallel()

	expr := MustCompile(`a == true && (b != "x" || !a) && c`)
	if diff := cmp.Diff([]string{"a", "b", "c"}, expr.Identifiers()); diff != "" {
		t.Fatalf("identifiers mismatch (-want +got):\n%s", diff)
	}
}

func TestNilExprHolds(t *testing.T) {
	t.Parallel()

	var expr *Expr
	if !expr.Eval(nil) {
		t.Fatalf("nil expression should hold")
	}
	ok, err := Eval("", nil)
	if err != nil || !ok {
		t.Fatalf("blank source should hold, got %v %v", ok, err)
	}
}
