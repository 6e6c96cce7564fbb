package form

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/validation"
)

func testDefinition() model.Definition {
	return model.Definition{
		ID: "app",
		Fields: []model.Field{
			{Name: "name", Type: model.FieldTypeString, Required: true},
			{Name: "tags", Type: model.FieldTypeArray},
			{Name: "reviewed", Type: model.FieldTypeBoolean, Default: false},
			{Name: "reviewer", Type: model.FieldTypeString, RequiredWhen: "reviewed"},
		},
	}
}

func newStore(t *testing.T, prefill model.Values) *Store {
	t.Helper()
	def := testDefinition()
	v, err := validation.New(def)
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	s, err := NewStore(def, v, prefill)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return s
}

func TestNewStoreSeedsDefaultsAndPrefill(t *testing.T) {
	s := newStore(t, model.Values{"name": "Copilot", "tags": []any{"a", "b"}, "server_id": 7})

	want := model.Values{"name": "Copilot", "tags": []string{"a", "b"}, "reviewed": false}
	if diff := cmp.Diff(want, s.Values()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if len(s.Errors()) != 0 {
		t.Fatalf("expected no errors, got %v", s.Errors())
	}
}

func TestSetRecomputesErrors(t *testing.T) {
	s := newStore(t, nil)
	if s.ErrorFor("name") == "" {
		t.Fatalf("expected initial required error for name")
	}

	if err := s.Set("name", "Copilot"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if msg := s.ErrorFor("name"); msg != "" {
		t.Fatalf("expected error cleared, got %q", msg)
	}

	if err := s.Set("reviewed", true); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !s.IsRequired("reviewer") {
		t.Fatalf("expected reviewer required")
	}
	if s.ErrorFor("reviewer") == "" {
		t.Fatalf("expected reviewer error")
	}

	if err := s.Set("reviewed", "no"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if s.ErrorFor("reviewer") != "" {
		t.Fatalf("expected reviewer error cleared")
	}
}

func TestSetNilRemovesValue(t *testing.T) {
	s := newStore(t, model.Values{"name": "x"})
	if err := s.Set("name", nil); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok := s.Get("name"); ok {
		t.Fatalf("expected name removed")
	}
}

func TestSetUnknownField(t *testing.T) {
	s := newStore(t, nil)
	err := s.Set("nope", "x")
	if !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestSetRejectsBadType(t *testing.T) {
	s := newStore(t, model.Values{"name": "x"})
	if err := s.Set("reviewed", "perhaps"); err == nil {
		t.Fatalf("expected normalisation error")
	}
	if v, _ := s.Get("reviewed"); v != false {
		t.Fatalf("value changed after failed set: %v", v)
	}
}

func TestValuesAreCopies(t *testing.T) {
	s := newStore(t, model.Values{"tags": []string{"a"}})
	values := s.Values()
	values["tags"].([]string)[0] = "mutated"
	values["name"] = "mutated"

	got, _ := s.Get("tags")
	if diff := cmp.Diff([]string{"a"}, got); diff != "" {
		t.Fatalf("store leaked slice (-want +got):\n%s", diff)
	}
	if _, ok := s.Get("name"); ok {
		t.Fatalf("store leaked map")
	}
}

func TestOnChange(t *testing.T) {
	s := newStore(t, nil)

	var seen []string
	stop := s.OnChange(func(field string, values model.Values) {
		seen = append(seen, field+"="+values[field].(string))
	})

	_ = s.Set("name", "a")
	stop()
	_ = s.Set("name", "b")

	if diff := cmp.Diff([]string{"name=a"}, seen); diff != "" {
		t.Fatalf("listener calls mismatch (-want +got):\n%s", diff)
	}
}
