// Package condition compiles the small boolean expressions used by
// conditional requirements ("oversight_contact is required when
// has_human_oversight == true").
//
// Supported syntax:
//   - truthiness: `enabled`, `!enabled`
//   - comparisons: `flag == true`, `status != "draft"`, `count == 3`,
//     `field == null`
//   - composition: `a && (b || !c)`
//
// Identifiers read from the values map; dotted keys are matched exactly
// before falling back to nested map traversal. Comparing a list value with
// a string literal tests membership, so `data_categories == "biometric"`
// holds when the multi-select contains "biometric".
package condition

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrEmptyExpression is returned by Compile for blank input.
	ErrEmptyExpression = errors.New("condition: empty expression")
)

// Expr is a compiled expression. The zero value is not usable; build one
// with Compile or MustCompile.
type Expr struct {
	source string
	root   node
}

// Compile parses source into an Expr.
func Compile(source string) (*Expr, error) {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return nil, ErrEmptyExpression
	}
	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	root, err := parse(tokens)
	if err != nil {
		return nil, err
	}
	return &Expr{source: trimmed, root: root}, nil
}

// MustCompile is Compile for expressions known at build time.
func MustCompile(source string) *Expr {
	expr, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return expr
}

// String returns the normalised source text.
func (e *Expr) String() string {
	if e == nil {
		return ""
	}
	return e.source
}

// Eval evaluates the expression against values. A nil Expr holds.
func (e *Expr) Eval(values map[string]any) bool {
	if e == nil || e.root == nil {
		return true
	}
	return e.root.eval(values)
}

// Identifiers lists the field names referenced by the expression in order
// of first appearance.
func (e *Expr) Identifiers() []string {
	if e == nil || e.root == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	e.root.walk(func(ident string) {
		if _, ok := seen[ident]; ok {
			return
		}
		seen[ident] = struct{}{}
		out = append(out, ident)
	})
	return out
}

// Eval compiles and evaluates source in one step.
func Eval(source string, values map[string]any) (bool, error) {
	if strings.TrimSpace(source) == "" {
		return true, nil
	}
	expr, err := Compile(source)
	if err != nil {
		return false, err
	}
	return expr.Eval(values), nil
}

type node interface {
	eval(values map[string]any) bool
	walk(fn func(ident string))
}

type orNode struct{ left, right node }

func (n orNode) eval(values map[string]any) bool {
	return n.left.eval(values) || n.right.eval(values)
}

func (n orNode) walk(fn func(string)) { n.left.walk(fn); n.right.walk(fn) }

type andNode struct{ left, right node }

func (n andNode) eval(values map[string]any) bool {
	return n.left.eval(values) && n.right.eval(values)
}

func (n andNode) walk(fn func(string)) { n.left.walk(fn); n.right.walk(fn) }

type notNode struct{ inner node }

func (n notNode) eval(values map[string]any) bool { return !n.inner.eval(values) }

func (n notNode) walk(fn func(string)) { n.inner.walk(fn) }

type truthyNode struct{ ident string }

func (n truthyNode) eval(values map[string]any) bool {
	value, ok := lookup(values, n.ident)
	if !ok {
		return false
	}
	return truthy(value)
}

func (n truthyNode) walk(fn func(string)) { fn(n.ident) }

type compareNode struct {
	ident   string
	negate  bool
	literal literal
}

func (n compareNode) eval(values map[string]any) bool {
	value, _ := lookup(values, n.ident)
	eq := n.literal.matches(value)
	if n.negate {
		return !eq
	}
	return eq
}

func (n compareNode) walk(fn func(string)) { fn(n.ident) }

type literalKind int

const (
	litString literalKind = iota
	litNumber
	litBool
	litNull
)

type literal struct {
	kind   literalKind
	text   string
	number float64
	flag   bool
}

func (l literal) matches(value any) bool {
	switch l.kind {
	case litNull:
		return value == nil || isBlankList(value)
	case litBool:
		got, _ := coerceBool(value)
		return got == l.flag
	case litNumber:
		got, ok := coerceNumber(value)
		if !ok {
			return false
		}
		return got == l.number
	default:
		switch v := value.(type) {
		case []string:
			for _, item := range v {
				if item == l.text {
					return true
				}
			}
			return false
		case []any:
			for _, item := range v {
				if fmt.Sprint(item) == l.text {
					return true
				}
			}
			return false
		case nil:
			return l.text == ""
		case string:
			return v == l.text
		default:
			return fmt.Sprint(v) == l.text
		}
	}
}

func lookup(values map[string]any, key string) (any, bool) {
	if len(values) == 0 || key == "" {
		return nil, false
	}
	if v, ok := values[key]; ok {
		return v, true
	}
	var current any = values
	for _, part := range strings.Split(key, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := m[part]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func isBlankList(value any) bool {
	switch v := value.(type) {
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	}
	return false
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) != ""
	case []string:
		return len(v) > 0
	case []any:
		return len(v) > 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

func coerceBool(value any) (bool, bool) {
	switch v := value.(type) {
	case nil:
		return false, false
	case bool:
		return v, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err == nil {
			return parsed, true
		}
		return strings.TrimSpace(v) != "", true
	default:
		return truthy(value), true
	}
}

func coerceNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
