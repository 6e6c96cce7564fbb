package submit

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-formflow/pkg/model"
)

func TestMapErrorPayload(t *testing.T) {
	fields := []string{"name", "owner_email", "data_categories"}
	payload := map[string][]string{
		"/body/name":               {"Name is required", " Name is required "},
		"$.data.owner_email":       {"Email invalid"},
		"data_categories[1]":       {"Unknown category"},
		"non_field_errors":         {"Form level error"},
		"request/body/unknown":     {"Falls back to form"},
		"":                         {"Unscoped"},
		"owner_email":              {"  "},
		"attributes/owner_email/0": {"Nested"},
	}

	mapped := MapErrorPayload(fields, payload)

	wantFields := map[string][]string{
		"name":            {"Name is required"},
		"owner_email":     {"Email invalid", "Nested"},
		"data_categories": {"Unknown category"},
	}
	sortStrings := cmpopts.SortSlices(func(a, b string) bool { return a < b })
	if diff := cmp.Diff(wantFields, mapped.Fields, sortStrings); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	wantForm := []string{"Form level error", "Falls back to form", "Unscoped"}
	if diff := cmp.Diff(wantForm, mapped.Form, sortStrings); diff != "" {
		t.Fatalf("form mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildPayloadOmitsEmptyOptionalFields(t *testing.T) {
	def := model.Definition{Fields: []model.Field{
		{Name: "name", Type: model.FieldTypeString},
		{Name: "notes", Type: model.FieldTypeText},
		{Name: "tags", Type: model.FieldTypeArray, Sanitize: true},
		{Name: "flag", Type: model.FieldTypeBoolean},
	}}
	values := model.Values{
		"name":   "x",
		"notes":  "",
		"tags":   []string{"<script>alert(1)</script>", "ok"},
		"flag":   false,
		"server": "ignored",
	}

	got := BuildPayload(def, values, nil)
	want := map[string]any{
		"name": "x",
		"tags": []string{"ok"},
		"flag": false,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildPayloadDropsFieldsWhoseGuardIsOff(t *testing.T) {
	def := model.Definition{Fields: []model.Field{
		{Name: "has_human_oversight", Type: model.FieldTypeBoolean},
		{Name: "oversight_contact", Type: model.FieldTypeString, RequiredWhen: "has_human_oversight"},
	}}
	values := model.Values{"has_human_oversight": false, "oversight_contact": "old@example.com"}

	got := BuildPayload(def, values, nil)
	if diff := cmp.Diff(map[string]any{"has_human_oversight": false}, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}

	values["has_human_oversight"] = true
	got = BuildPayload(def, values, nil)
	want := map[string]any{"has_human_oversight": true, "oversight_contact": "old@example.com"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestSanitizeText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`<p onclick="x()">Fish &amp; chips</p>`, "Fish & chips"},
		{`O'Reilly & Co`, "O'Reilly & Co"},
		{`1 < 2`, "1 < 2"},
		{`  <b>bold</b> move  `, "bold move"},
	}
	for _, tc := range cases {
		if got := SanitizeText(tc.in); got != tc.want {
			t.Errorf("SanitizeText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeTextDecodedEntitiesStayInert(t *testing.T) {
	inputs := []string{
		"&lt;script&gt;alert(1)&lt;/script&gt;",
		"&amp;lt;img src=x onerror=alert(1)&amp;gt;",
		"<p>&lt;b&gt;hi&lt;/b&gt;</p>",
	}
	for _, in := range inputs {
		got := SanitizeText(in)
		if strings.Contains(got, "<script") || strings.Contains(got, "<img") || strings.Contains(got, "<b>") {
			t.Errorf("SanitizeText(%q) = %q still carries markup", in, got)
		}
	}
}

func TestErrorSummary(t *testing.T) {
	cases := []struct {
		err  *Error
		want string
	}{
		{&Error{Form: []string{"Quota exceeded"}}, "Quota exceeded"},
		{&Error{Fields: map[string][]string{"name": {"taken"}}}, "Some fields were rejected by the server"},
		{&Error{Status: 500}, "The server responded with status 500"},
		{&Error{}, "The request could not be sent"},
	}
	for _, tc := range cases {
		if got := tc.err.Summary(); got != tc.want {
			t.Errorf("Summary() = %q, want %q", got, tc.want)
		}
	}
}
