package model

import (
	"fmt"
	"strings"
)

// Values is the flat record of field name to value. Supported value kinds
// are string, bool, []string and nil.
type Values map[string]any

// Errors maps a field name to its current validation message.
type Errors map[string]string

// Clone returns a copy that shares no slices with v.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for key, value := range v {
		if list, ok := value.([]string); ok {
			out[key] = append([]string(nil), list...)
			continue
		}
		out[key] = value
	}
	return out
}

// Clone returns a copy of e.
func (e Errors) Clone() Errors {
	out := make(Errors, len(e))
	for key, value := range e {
		out[key] = value
	}
	return out
}

// IsEmpty reports whether value counts as "not provided". Strings are
// trimmed; arrays must hold at least one non-blank entry. Booleans are
// never empty.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		for _, item := range v {
			if strings.TrimSpace(item) != "" {
				return false
			}
		}
		return true
	case []any:
		for _, item := range v {
			if !IsEmpty(item) {
				return false
			}
		}
		return true
	case bool:
		return false
	default:
		return false
	}
}

// Normalize coerces loosely typed input (YAML/JSON decoding, CLI prompts)
// into the value kinds used by Values.
func Normalize(fieldType FieldType, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch fieldType {
	case FieldTypeBoolean:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "yes", "y", "1", "on":
				return true, nil
			case "false", "no", "n", "0", "off", "":
				return false, nil
			}
		}
		return nil, fmt.Errorf("model: expected boolean, got %T", value)
	case FieldTypeArray:
		switch v := value.(type) {
		case []string:
			return append([]string(nil), v...), nil
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				out = append(out, fmt.Sprint(item))
			}
			return out, nil
		case string:
			if strings.TrimSpace(v) == "" {
				return []string{}, nil
			}
			parts := strings.Split(v, ",")
			out := make([]string, 0, len(parts))
			for _, part := range parts {
				if trimmed := strings.TrimSpace(part); trimmed != "" {
					out = append(out, trimmed)
				}
			}
			return out, nil
		}
		return nil, fmt.Errorf("model: expected list, got %T", value)
	default:
		switch v := value.(type) {
		case string:
			return v, nil
		case fmt.Stringer:
			return v.String(), nil
		case bool, int, int64, float64:
			return fmt.Sprint(v), nil
		}
		return nil, fmt.Errorf("model: expected text, got %T", value)
	}
}
