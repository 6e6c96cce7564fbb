package model

// FieldType enumerates the value kinds a field can hold.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeText    FieldType = "text"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeArray   FieldType = "array"
)

const (
	RuleRequired   = "required"
	RuleRequiredIf = "requiredIf"
	RuleMinLength  = "minLength"
	RuleMaxLength  = "maxLength"
	RulePattern    = "pattern"
	RuleEnum       = "enum"
	RuleFormat     = "format"
)

// Rule is a single validation constraint. Length rules encode their
// threshold in Params["value"], pattern rules keep the expression in
// Params["pattern"], format rules name a validator tag in Params["format"]
// and requiredIf rules carry a condition expression in Params["when"].
// Message overrides the generated error text.
type Rule struct {
	Kind    string            `json:"kind" yaml:"kind"`
	Params  map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Message string            `json:"message,omitempty" yaml:"message,omitempty"`
}

// Option is a selectable value for enum-backed fields.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Field describes an individual input.
type Field struct {
	Name        string    `json:"name" yaml:"name"`
	Type        FieldType `json:"type" yaml:"type"`
	Label       string    `json:"label,omitempty" yaml:"label,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Placeholder string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Default     any       `json:"default,omitempty" yaml:"default,omitempty"`
	Options     []Option  `json:"options,omitempty" yaml:"options,omitempty"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty"`
	// RequiredWhen makes the field required only while the expression holds.
	RequiredWhen string `json:"requiredWhen,omitempty" yaml:"requiredWhen,omitempty"`
	Rules        []Rule `json:"rules,omitempty" yaml:"rules,omitempty"`
	// Sanitize strips markup from free text before it leaves the process.
	Sanitize bool `json:"sanitize,omitempty" yaml:"sanitize,omitempty"`
	// Autosave marks fields whose edits are persisted through the debounced
	// autosave path rather than the final submission.
	Autosave bool `json:"autosave,omitempty" yaml:"autosave,omitempty"`
}

// Step is one wizard screen. Fields lists the names gated by this step.
type Step struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title,omitempty" yaml:"title,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Endpoint points at the remote resource the form persists to. Path is the
// collection path used for creates; updates append the record identifier.
// CreateOperation/UpdateOperation optionally name OpenAPI operation ids that
// override Path and the HTTP method when a document is configured.
type Endpoint struct {
	Path            string `json:"path" yaml:"path"`
	CreateOperation string `json:"createOperation,omitempty" yaml:"createOperation,omitempty"`
	UpdateOperation string `json:"updateOperation,omitempty" yaml:"updateOperation,omitempty"`
	AutosavePath    string `json:"autosavePath,omitempty" yaml:"autosavePath,omitempty"`
}

// Messages holds notification templates rendered against the session.
type Messages struct {
	Created string `json:"created,omitempty" yaml:"created,omitempty"`
	Updated string `json:"updated,omitempty" yaml:"updated,omitempty"`
	Failed  string `json:"failed,omitempty" yaml:"failed,omitempty"`
	Blocked string `json:"blocked,omitempty" yaml:"blocked,omitempty"`
}

// Definition is the top-level form description.
type Definition struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Endpoint    Endpoint `json:"endpoint" yaml:"endpoint"`
	Fields      []Field  `json:"fields" yaml:"fields"`
	Steps       []Step   `json:"steps" yaml:"steps"`
	Messages    Messages `json:"messages,omitempty" yaml:"messages,omitempty"`
}

// Field returns the field declared under name.
func (d Definition) Field(name string) (Field, bool) {
	for _, field := range d.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// StepFields resolves the field definitions gated by the step at index.
// Unknown names are skipped.
func (d Definition) StepFields(index int) []Field {
	if index < 0 || index >= len(d.Steps) {
		return nil
	}
	out := make([]Field, 0, len(d.Steps[index].Fields))
	for _, name := range d.Steps[index].Fields {
		if field, ok := d.Field(name); ok {
			out = append(out, field)
		}
	}
	return out
}

// DisplayLabel returns the configured label or one derived from the name.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return DefaultLabeler(f.Name)
}

// OptionValues lists the raw option values in declaration order.
func (f Field) OptionValues() []string {
	if len(f.Options) == 0 {
		return nil
	}
	out := make([]string, len(f.Options))
	for i, opt := range f.Options {
		out[i] = opt.Value
	}
	return out
}
