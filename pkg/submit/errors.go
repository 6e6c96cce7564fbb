package submit

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrRequestFailed wraps transport failures (DNS, connection, timeout).
	ErrRequestFailed = errors.New("submit: request failed")
	// ErrUnexpectedStatus wraps non-2xx responses.
	ErrUnexpectedStatus = errors.New("submit: unexpected status")
	// ErrNoEndpoint is returned when a definition has no resolvable endpoint.
	ErrNoEndpoint = errors.New("submit: endpoint not configured")
)

// Error describes a failed submission. Fields carries server validation
// messages mapped onto known field names; Form carries the rest.
type Error struct {
	Status int
	Method string
	URL    string
	Fields map[string][]string
	Form   []string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("submit: ")
	b.WriteString(e.Method)
	b.WriteString(" ")
	b.WriteString(e.URL)
	if e.Status > 0 {
		b.WriteString(": status ")
		b.WriteString(strconv.Itoa(e.Status))
	}
	if len(e.Form) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Form, "; "))
	} else if e.Err != nil && !errors.Is(e.Err, ErrUnexpectedStatus) {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Summary is the one-line, user-facing description of the failure.
func (e *Error) Summary() string {
	if len(e.Form) > 0 {
		return e.Form[0]
	}
	if len(e.Fields) > 0 {
		return "Some fields were rejected by the server"
	}
	if e.Status > 0 {
		return fmt.Sprintf("The server responded with status %d", e.Status)
	}
	return "The request could not be sent"
}

// ErrorMapping splits a server error payload into field-level and
// form-level messages.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// MapErrorPayload assigns server error paths (JSON pointers, dotted paths,
// bracket indexes) to the known flat field names. Wrapper segments such as
// "body" or "data" are ignored; unknown paths become form-level messages so
// nothing is lost.
func MapErrorPayload(fieldNames []string, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[string][]string)}
	known := make(map[string]struct{}, len(fieldNames))
	for _, name := range fieldNames {
		known[name] = struct{}{}
	}

	paths := make([]string, 0, len(payload))
	for rawPath := range payload {
		paths = append(paths, rawPath)
	}
	sort.Strings(paths)

	for _, rawPath := range paths {
		clean := normalizeMessages(payload[rawPath])
		if len(clean) == 0 {
			continue
		}
		field, ok := resolveField(rawPath, known)
		if !ok {
			mapping.Form = append(mapping.Form, clean...)
			continue
		}
		mapping.Fields[field] = append(mapping.Fields[field], clean...)
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

func resolveField(raw string, known map[string]struct{}) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if isFormLevelKey(trimmed) {
		return "", false
	}
	if _, ok := known[trimmed]; ok {
		return trimmed, true
	}
	segments := dropWrappers(pathSegments(trimmed))
	// the first non-numeric segment names the top-level field; nested paths
	// such as "data_categories/0" belong to it
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		if _, ok := known[segment]; ok {
			return segment, true
		}
		return "", false
	}
	return "", false
}

func pathSegments(path string) []string {
	clean := strings.TrimLeft(path, "#$./")
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)
	parts := strings.FieldsFunc(clean, func(r rune) bool { return r == '.' || r == '/' })
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		out = append(out, part)
	}
	return out
}

var wrapperSegments = map[string]struct{}{
	"body":       {},
	"request":    {},
	"payload":    {},
	"data":       {},
	"attributes": {},
	"errors":     {},
}

func dropWrappers(segments []string) []string {
	for len(segments) > 0 {
		if _, ok := wrapperSegments[strings.ToLower(segments[0])]; !ok {
			break
		}
		segments = segments[1:]
	}
	return segments
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(key) {
	case "", ".", "/", "#", "$", "form", "base", "__all__", "non_field_errors", "non-field-errors", "message", "error":
		return true
	}
	return false
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
