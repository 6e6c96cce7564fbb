// Package validation turns the declarative rules of a model.Definition into a
// pure Validate(values) -> errors function. Rules, patterns and conditions
// are compiled once in New; Validate never performs I/O.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-formflow/pkg/condition"
	"github.com/goliatone/go-formflow/pkg/model"
)

// Option configures a Validator.
type Option func(*Validator)

// WithFormatValidator swaps the go-playground validator used for `format`
// rules, e.g. one with custom tags registered.
func WithFormatValidator(v *validator.Validate) Option {
	return func(val *Validator) {
		if v != nil {
			val.formats = v
		}
	}
}

// Validator evaluates field rules against Values.
type Validator struct {
	fields  []compiledField
	index   map[string]int
	formats *validator.Validate
}

type compiledField struct {
	field       model.Field
	label       string
	required    bool
	requiredMsg string
	guard       *condition.Expr
	when        []*condition.Expr
	checks      []check
}

type check struct {
	kind    string
	message string
	min     int
	max     int
	pattern *regexp.Regexp
	allowed map[string]struct{}
	choices []string
	format  string
}

// New compiles the rules declared by def.
func New(def model.Definition, options ...Option) (*Validator, error) {
	v := &Validator{
		index: make(map[string]int, len(def.Fields)),
	}
	for _, opt := range options {
		if opt != nil {
			opt(v)
		}
	}
	if v.formats == nil {
		v.formats = validator.New()
	}

	for _, field := range def.Fields {
		compiled, err := v.compileField(field)
		if err != nil {
			return nil, fmt.Errorf("validation: field %q: %w", field.Name, err)
		}
		v.index[field.Name] = len(v.fields)
		v.fields = append(v.fields, compiled)
	}
	return v, nil
}

func (v *Validator) compileField(field model.Field) (compiledField, error) {
	out := compiledField{
		field:    field,
		label:    field.DisplayLabel(),
		required: field.Required,
	}

	if expr := strings.TrimSpace(field.RequiredWhen); expr != "" {
		compiled, err := condition.Compile(expr)
		if err != nil {
			return out, err
		}
		out.required = false
		out.guard = compiled
	}

	if len(field.Options) > 0 {
		out.checks = append(out.checks, enumCheck(field.OptionValues(), ""))
	}

	for _, rule := range field.Rules {
		switch rule.Kind {
		case model.RuleRequired:
			out.required = true
			if out.requiredMsg == "" {
				out.requiredMsg = rule.Message
			}
		case model.RuleRequiredIf:
			compiled, err := condition.Compile(rule.Params["when"])
			if err != nil {
				return out, fmt.Errorf("%w: requiredIf: %v", ErrInvalidRule, err)
			}
			out.when = append(out.when, compiled)
			if out.requiredMsg == "" {
				out.requiredMsg = rule.Message
			}
		case model.RuleMinLength, model.RuleMaxLength:
			n, err := strconv.Atoi(strings.TrimSpace(rule.Params["value"]))
			if err != nil || n < 0 {
				return out, fmt.Errorf("%w: %s needs a non-negative integer value", ErrInvalidRule, rule.Kind)
			}
			c := check{kind: rule.Kind, message: rule.Message}
			if rule.Kind == model.RuleMinLength {
				c.min = n
			} else {
				c.max = n
			}
			out.checks = append(out.checks, c)
		case model.RulePattern:
			re, err := regexp.Compile(rule.Params["pattern"])
			if err != nil {
				return out, fmt.Errorf("%w: pattern: %v", ErrInvalidRule, err)
			}
			out.checks = append(out.checks, check{kind: rule.Kind, message: rule.Message, pattern: re})
		case model.RuleEnum:
			choices := splitList(rule.Params["values"])
			if len(choices) == 0 {
				choices = field.OptionValues()
			}
			if len(choices) == 0 {
				return out, fmt.Errorf("%w: enum needs values", ErrInvalidRule)
			}
			out.checks = append(out.checks, enumCheck(choices, rule.Message))
		case model.RuleFormat:
			tag := strings.TrimSpace(rule.Params["format"])
			if err := v.checkFormatTag(tag); err != nil {
				return out, err
			}
			out.checks = append(out.checks, check{kind: rule.Kind, message: rule.Message, format: tag})
		default:
			return out, fmt.Errorf("%w: %q", ErrUnknownRule, rule.Kind)
		}
	}
	return out, nil
}

// checkFormatTag rejects tags the go-playground validator does not know;
// Var panics on undefined tags.
func (v *Validator) checkFormatTag(tag string) (err error) {
	if tag == "" || strings.ContainsAny(tag, ",|") {
		return fmt.Errorf("%w: format needs a single validator tag", ErrInvalidRule)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: format %q: %v", ErrInvalidRule, tag, r)
		}
	}()
	_ = v.formats.Var("", "omitempty,"+tag)
	return nil
}

func enumCheck(choices []string, message string) check {
	allowed := make(map[string]struct{}, len(choices))
	for _, c := range choices {
		allowed[c] = struct{}{}
	}
	return check{kind: model.RuleEnum, message: message, allowed: allowed, choices: choices}
}

// Validate returns the first failing message per field. Fields that pass
// are absent from the result.
func (v *Validator) Validate(values model.Values) model.Errors {
	errs := make(model.Errors)
	for i := range v.fields {
		if msg := v.validate(&v.fields[i], values); msg != "" {
			errs[v.fields[i].field.Name] = msg
		}
	}
	return errs
}

// ValidateField validates a single field against the full value set, since
// conditional requirements read sibling values.
func (v *Validator) ValidateField(name string, values model.Values) string {
	idx, ok := v.index[name]
	if !ok {
		return ""
	}
	return v.validate(&v.fields[idx], values)
}

// IsRequired reports whether name is required for the given values,
// resolving conditional requirements.
func (v *Validator) IsRequired(name string, values model.Values) bool {
	idx, ok := v.index[name]
	if !ok {
		return false
	}
	return v.isRequired(&v.fields[idx], values)
}

// Active reports whether name takes part in validation and submission.
// A field guarded by requiredWhen is inactive while its condition is false.
func (v *Validator) Active(name string, values model.Values) bool {
	idx, ok := v.index[name]
	if !ok {
		return false
	}
	return v.fields[idx].active(values)
}

func (cf *compiledField) active(values model.Values) bool {
	return cf.guard == nil || cf.guard.Eval(values)
}

func (v *Validator) isRequired(cf *compiledField, values model.Values) bool {
	if cf.required {
		return true
	}
	if cf.guard != nil && cf.guard.Eval(values) {
		return true
	}
	for _, expr := range cf.when {
		if expr.Eval(values) {
			return true
		}
	}
	return false
}

func (v *Validator) validate(cf *compiledField, values model.Values) string {
	if !cf.active(values) {
		return ""
	}
	value := values[cf.field.Name]
	if model.IsEmpty(value) {
		if v.isRequired(cf, values) {
			if cf.requiredMsg != "" {
				return cf.requiredMsg
			}
			return fmt.Sprintf("%s is required", cf.label)
		}
		return ""
	}

	if msg := typeMismatch(cf, value); msg != "" {
		return msg
	}

	for _, c := range cf.checks {
		if msg := v.apply(cf, c, value); msg != "" {
			return msg
		}
	}
	return ""
}

func typeMismatch(cf *compiledField, value any) string {
	switch cf.field.Type {
	case model.FieldTypeBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Sprintf("%s must be true or false", cf.label)
		}
	case model.FieldTypeArray:
		if _, ok := value.([]string); !ok {
			return fmt.Sprintf("%s must be a list", cf.label)
		}
	default:
		if _, ok := value.(string); !ok {
			return fmt.Sprintf("%s must be text", cf.label)
		}
	}
	return ""
}

func (v *Validator) apply(cf *compiledField, c check, value any) string {
	fail := func(format string, args ...any) string {
		if c.message != "" {
			return c.message
		}
		return fmt.Sprintf(format, args...)
	}

	list, isList := value.([]string)
	text, _ := value.(string)

	switch c.kind {
	case model.RuleMinLength:
		if isList {
			if len(list) < c.min {
				return fail("select at least %d %s", c.min, pluralOption(c.min))
			}
			return ""
		}
		if utf8.RuneCountInString(text) < c.min {
			return fail("%s must be at least %d characters", cf.label, c.min)
		}
	case model.RuleMaxLength:
		if isList {
			if len(list) > c.max {
				return fail("select at most %d %s", c.max, pluralOption(c.max))
			}
			return ""
		}
		if utf8.RuneCountInString(text) > c.max {
			return fail("%s must be at most %d characters", cf.label, c.max)
		}
	case model.RulePattern:
		for _, item := range itemsOf(value) {
			if !c.pattern.MatchString(item) {
				return fail("%s has an invalid format", cf.label)
			}
		}
	case model.RuleEnum:
		for _, item := range itemsOf(value) {
			if _, ok := c.allowed[item]; !ok {
				return fail("%s must be one of: %s", cf.label, strings.Join(c.choices, ", "))
			}
		}
	case model.RuleFormat:
		for _, item := range itemsOf(value) {
			if err := v.formats.Var(item, c.format); err != nil {
				return fail("%s must be a valid %s", cf.label, c.format)
			}
		}
	}
	return ""
}

func itemsOf(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	}
	return nil
}

func pluralOption(n int) string {
	if n == 1 {
		return "option"
	}
	return "options"
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
