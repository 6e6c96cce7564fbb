package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultLabeler(t *testing.T) {
	cases := map[string]string{
		"owner_email":       "Owner Email",
		"riskLevel":         "Risk Level",
		"AI-system":         "AI System",
		"data.categories":   "Data Categories",
		"step2":             "Step 2",
		"":                  "",
		"has_human_review ": "Has Human Review",
	}
	for input, want := range cases {
		if got := DefaultLabeler(input); got != want {
			t.Errorf("DefaultLabeler(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  bool
	}{
		{"nil", nil, true},
		{"blank string", "   ", true},
		{"string", "x", false},
		{"false bool", false, false},
		{"empty list", []string{}, true},
		{"blank list entries", []string{"", " "}, true},
		{"list", []string{"pii"}, false},
		{"any list", []any{"a"}, false},
	}
	for _, tc := range cases {
		if got := IsEmpty(tc.value); got != tc.want {
			t.Errorf("%s: IsEmpty = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	got, err := Normalize(FieldTypeArray, "pii, health ,")
	if err != nil {
		t.Fatalf("normalize array: %v", err)
	}
	if diff := cmp.Diff([]string{"pii", "health"}, got); diff != "" {
		t.Fatalf("array mismatch (-want +got):\n%s", diff)
	}

	b, err := Normalize(FieldTypeBoolean, "yes")
	if err != nil || b != true {
		t.Fatalf("normalize bool = %v, %v", b, err)
	}

	if _, err := Normalize(FieldTypeBoolean, "maybe"); err == nil {
		t.Fatalf("expected error for invalid boolean")
	}

	s, err := Normalize(FieldTypeString, 42)
	if err != nil || s != "42" {
		t.Fatalf("normalize string = %v, %v", s, err)
	}
}

func TestDefinitionStepFields(t *testing.T) {
	def := Definition{
		Fields: []Field{{Name: "a"}, {Name: "b"}, {Name: "c"}},
		Steps: []Step{
			{ID: "one", Fields: []string{"a", "missing"}},
			{ID: "two", Fields: []string{"c", "b"}},
		},
	}
	names := func(fields []Field) []string {
		var out []string
		for _, f := range fields {
			out = append(out, f.Name)
		}
		return out
	}
	if diff := cmp.Diff([]string{"a"}, names(def.StepFields(0))); diff != "" {
		t.Fatalf("step 0 mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"c", "b"}, names(def.StepFields(1))); diff != "" {
		t.Fatalf("step 1 mismatch (-want +got):\n%s", diff)
	}
	if def.StepFields(5) != nil {
		t.Fatalf("expected nil for out of range step")
	}
}
