package submit

import (
	"strings"

	"github.com/goliatone/go-formflow/pkg/condition"
	"github.com/goliatone/go-formflow/pkg/model"
)

// RequiredFunc reports whether a field is required for the given values.
type RequiredFunc func(name string, values model.Values) bool

// BuildPayload maps form values onto the request body. Empty optional fields
// and fields whose requiredWhen condition is false are omitted; fields marked
// Sanitize have markup stripped. Only declared fields are included, in no
// particular order.
func BuildPayload(def model.Definition, values model.Values, required RequiredFunc) map[string]any {
	body := make(map[string]any, len(values))
	for _, field := range def.Fields {
		if !guardHolds(field, values) {
			continue
		}
		value, present := values[field.Name]
		if !present || model.IsEmpty(value) {
			if required == nil || !required(field.Name, values) {
				continue
			}
		}

		switch v := value.(type) {
		case string:
			if field.Sanitize {
				v = SanitizeText(v)
			}
			body[field.Name] = v
		case []string:
			items := make([]string, 0, len(v))
			for _, item := range v {
				if field.Sanitize {
					item = SanitizeText(item)
				}
				if item != "" {
					items = append(items, item)
				}
			}
			body[field.Name] = items
		default:
			body[field.Name] = v
		}
	}
	return body
}

func guardHolds(field model.Field, values model.Values) bool {
	guard := strings.TrimSpace(field.RequiredWhen)
	if guard == "" {
		return true
	}
	ok, err := condition.Eval(guard, values)
	return err != nil || ok
}

// Subset keeps only the named fields of values.
func Subset(values model.Values, names ...string) model.Values {
	out := make(model.Values, len(names))
	for _, name := range names {
		if v, ok := values[name]; ok {
			out[name] = v
		}
	}
	return out
}
