package validation

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/model"
)

func applicationDefinition() model.Definition {
	return model.Definition{
		ID: "app",
		Fields: []model.Field{
			{Name: "name", Type: model.FieldTypeString, Required: true, Rules: []model.Rule{
				{Kind: model.RuleMinLength, Params: map[string]string{"value": "3"}},
				{Kind: model.RuleMaxLength, Params: map[string]string{"value": "10"}},
			}},
			{Name: "owner_email", Type: model.FieldTypeString, Label: "Owner email", Rules: []model.Rule{
				{Kind: model.RuleRequired},
				{Kind: model.RuleFormat, Params: map[string]string{"format": "email"}},
			}},
			{Name: "version", Type: model.FieldTypeString, Rules: []model.Rule{
				{Kind: model.RulePattern, Params: map[string]string{"pattern": `^\d+\.\d+$`}, Message: "use MAJOR.MINOR"},
			}},
			{Name: "risk_level", Type: model.FieldTypeString, Required: true, Options: []model.Option{
				{Value: "low"}, {Value: "high"},
			}},
			{Name: "data_categories", Type: model.FieldTypeArray, Required: true, Options: []model.Option{
				{Value: "pii"}, {Value: "health"}, {Value: "biometric"},
			}, Rules: []model.Rule{
				{Kind: model.RuleMaxLength, Params: map[string]string{"value": "2"}},
			}},
			{Name: "has_human_oversight", Type: model.FieldTypeBoolean},
			{Name: "oversight_contact", Type: model.FieldTypeString, RequiredWhen: "has_human_oversight == true"},
			{Name: "justification", Type: model.FieldTypeText, Rules: []model.Rule{
				{Kind: model.RuleRequiredIf, Params: map[string]string{"when": `risk_level == "high"`}},
			}},
		},
	}
}

func validValues() model.Values {
	return model.Values{
		"name":                "Copilot",
		"owner_email":         "owner@example.com",
		"version":             "1.2",
		"risk_level":          "low",
		"data_categories":     []string{"pii"},
		"has_human_oversight": false,
	}
}

func mustValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := New(applicationDefinition())
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}
	return v
}

func TestValidateValidValues(t *testing.T) {
	v := mustValidator(t)
	if errs := v.Validate(validValues()); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidateMessages(t *testing.T) {
	v := mustValidator(t)

	values := model.Values{
		"name":                "ab",
		"owner_email":         "not-an-email",
		"version":             "v1",
		"risk_level":          "extreme",
		"data_categories":     []string{"pii", "health", "biometric"},
		"has_human_oversight": true,
	}

	want := model.Errors{
		"name":              "Name must be at least 3 characters",
		"owner_email":       "Owner email must be a valid email",
		"version":           "use MAJOR.MINOR",
		"risk_level":        "Risk Level must be one of: low, high",
		"data_categories":   "select at most 2 options",
		"oversight_contact": "Oversight Contact is required",
	}
	if diff := cmp.Diff(want, v.Validate(values)); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateArrayRequiredUsesNonEmptyList(t *testing.T) {
	v := mustValidator(t)
	values := validValues()

	values["data_categories"] = []string{}
	if got := v.ValidateField("data_categories", values); got != "Data Categories is required" {
		t.Fatalf("empty list: got %q", got)
	}

	values["data_categories"] = []string{"health"}
	if got := v.ValidateField("data_categories", values); got != "" {
		t.Fatalf("non-empty list: got %q", got)
	}
}

func TestConditionalRequirementFollowsFlag(t *testing.T) {
	v := mustValidator(t)
	values := validValues()

	values["has_human_oversight"] = true
	if !v.IsRequired("oversight_contact", values) {
		t.Fatalf("expected oversight_contact required while flag is true")
	}
	if _, ok := v.Validate(values)["oversight_contact"]; !ok {
		t.Fatalf("expected error for missing oversight_contact")
	}

	values["has_human_oversight"] = false
	if v.IsRequired("oversight_contact", values) {
		t.Fatalf("expected requirement lifted when flag is false")
	}
	if errs := v.Validate(values); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestRequiredIfRule(t *testing.T) {
	v := mustValidator(t)
	values := validValues()
	values["risk_level"] = "high"

	if got := v.ValidateField("justification", values); got != "Justification is required" {
		t.Fatalf("got %q", got)
	}
	values["justification"] = "Reviewed by the board"
	if got := v.ValidateField("justification", values); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestTypeMismatch(t *testing.T) {
	v := mustValidator(t)
	values := validValues()
	values["has_human_oversight"] = "yes"
	values["data_categories"] = "pii"

	errs := v.Validate(values)
	if errs["has_human_oversight"] != "Has Human Oversight must be true or false" {
		t.Fatalf("bool mismatch: %q", errs["has_human_oversight"])
	}
	if errs["data_categories"] != "Data Categories must be a list" {
		t.Fatalf("list mismatch: %q", errs["data_categories"])
	}
}

func TestOptionalEmptyFieldsSkipRules(t *testing.T) {
	v := mustValidator(t)
	values := validValues()
	values["version"] = "   "
	if got := v.ValidateField("version", values); got != "" {
		t.Fatalf("optional blank field should pass, got %q", got)
	}
}

func TestNewRejectsBadRules(t *testing.T) {
	cases := []struct {
		name string
		rule model.Rule
		want error
	}{
		{"unknown kind", model.Rule{Kind: "luhn"}, ErrUnknownRule},
		{"bad length", model.Rule{Kind: model.RuleMinLength, Params: map[string]string{"value": "x"}}, ErrInvalidRule},
		{"bad pattern", model.Rule{Kind: model.RulePattern, Params: map[string]string{"pattern": "("}}, ErrInvalidRule},
		{"bad format tag", model.Rule{Kind: model.RuleFormat, Params: map[string]string{"format": "definitely_not_a_tag"}}, ErrInvalidRule},
		{"bad condition", model.Rule{Kind: model.RuleRequiredIf, Params: map[string]string{"when": "a = b"}}, ErrInvalidRule},
		{"enum without values", model.Rule{Kind: model.RuleEnum}, ErrInvalidRule},
	}
	for _, tc := range cases {
		def := model.Definition{Fields: []model.Field{{Name: "f", Type: model.FieldTypeString, Rules: []model.Rule{tc.rule}}}}
		_, err := New(def)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestValidateIsPure(t *testing.T) {
	v := mustValidator(t)
	values := validValues()
	before := values.Clone()

	first := v.Validate(values)
	second := v.Validate(values)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeated validation differs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(before, values); diff != "" {
		t.Fatalf("values mutated (-before +after):\n%s", diff)
	}
}

func TestRequiredRuleMessageOverride(t *testing.T) {
	def := model.Definition{
		ID: "share",
		Fields: []model.Field{
			{Name: "visibility", Type: model.FieldTypeString},
			{Name: "allowed_emails", Type: model.FieldTypeArray, Rules: []model.Rule{
				{Kind: model.RuleRequiredIf, Params: map[string]string{"when": `visibility == "restricted"`}, Message: "Invite at least one person"},
			}},
		},
	}
	v, err := New(def)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	got := v.Validate(model.Values{"visibility": "restricted"})
	if diff := cmp.Diff(model.Errors{"allowed_emails": "Invite at least one person"}, got); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if got := v.Validate(model.Values{"visibility": "public"}); len(got) != 0 {
		t.Fatalf("expected no errors, got %v", got)
	}
}

func TestGuardedFieldIsSkippedWhileConditionIsFalse(t *testing.T) {
	def := model.Definition{Fields: []model.Field{
		{Name: "flag", Type: model.FieldTypeBoolean},
		{Name: "detail", Type: model.FieldTypeText, RequiredWhen: "flag", Rules: []model.Rule{
			{Kind: model.RuleMinLength, Params: map[string]string{"value": "10"}},
		}},
	}}
	v, err := New(def)
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}

	values := model.Values{"flag": false, "detail": "short"}
	if v.Active("detail", values) {
		t.Fatalf("expected detail inactive while flag is false")
	}
	if errs := v.Validate(values); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}

	values["flag"] = true
	if !v.Active("detail", values) {
		t.Fatalf("expected detail active while flag is true")
	}
	if got := v.ValidateField("detail", values); got != "Detail must be at least 10 characters" {
		t.Fatalf("got %q", got)
	}
}
