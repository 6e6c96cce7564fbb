package definitions

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formflow/pkg/condition"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/validation"
)

// Parse decodes one YAML (or JSON) document into a definition and checks it.
// Unknown keys are rejected so typos in rule names surface early.
func Parse(data []byte) (model.Definition, error) {
	var def model.Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return model.Definition{}, fmt.Errorf("%w: empty document", ErrInvalidDefinition)
		}
		return model.Definition{}, fmt.Errorf("definitions: decode: %w", err)
	}
	if err := Check(def); err != nil {
		return model.Definition{}, err
	}
	return def, nil
}

// LoadFile reads and parses a definition from disk.
func LoadFile(path string) (model.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Definition{}, fmt.Errorf("definitions: read %s: %w", path, err)
	}
	def, err := Parse(data)
	if err != nil {
		return model.Definition{}, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Check verifies that a definition can drive a wizard: field names are
// unique and typed, every step references declared fields exactly once, and
// all rules and conditions compile.
func Check(def model.Definition) error {
	var problems []string
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(def.ID) == "" {
		report("id is required")
	}
	if len(def.Fields) == 0 {
		report("at least one field is required")
	}

	declared := make(map[string]struct{}, len(def.Fields))
	for i, field := range def.Fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			report("fields[%d]: name is required", i)
			continue
		}
		if _, dup := declared[name]; dup {
			report("field %q declared twice", name)
		}
		declared[name] = struct{}{}
		switch field.Type {
		case model.FieldTypeString, model.FieldTypeText, model.FieldTypeBoolean, model.FieldTypeArray:
		default:
			report("field %q: unsupported type %q", name, field.Type)
		}
	}

	for _, field := range def.Fields {
		for _, src := range conditionsOf(field) {
			expr, err := condition.Compile(src)
			if err != nil {
				// reported by the validator below
				continue
			}
			for _, ident := range expr.Identifiers() {
				root, _, _ := strings.Cut(ident, ".")
				if _, ok := declared[root]; !ok {
					report("field %q: condition references unknown field %q", field.Name, ident)
				}
			}
		}
	}

	if len(def.Steps) == 0 {
		report("at least one step is required")
	}
	stepIDs := make(map[string]struct{}, len(def.Steps))
	placed := make(map[string]string, len(def.Fields))
	for i, step := range def.Steps {
		if strings.TrimSpace(step.ID) == "" {
			report("steps[%d]: id is required", i)
		} else if _, dup := stepIDs[step.ID]; dup {
			report("step %q declared twice", step.ID)
		}
		stepIDs[step.ID] = struct{}{}
		for _, name := range step.Fields {
			if _, ok := declared[name]; !ok {
				report("step %q: unknown field %q", step.ID, name)
				continue
			}
			if prev, ok := placed[name]; ok {
				report("step %q: field %q already shown in step %q", step.ID, name, prev)
				continue
			}
			placed[name] = step.ID
		}
	}

	if len(problems) == 0 {
		if _, err := validation.New(def); err != nil {
			report("%v", err)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w %q: %s", ErrInvalidDefinition, def.ID, strings.Join(problems, "; "))
	}
	return nil
}

func conditionsOf(field model.Field) []string {
	var out []string
	if strings.TrimSpace(field.RequiredWhen) != "" {
		out = append(out, field.RequiredWhen)
	}
	for _, rule := range field.Rules {
		if rule.Kind == model.RuleRequiredIf {
			out = append(out, rule.Params["when"])
		}
	}
	return out
}
