// Package endpoint resolves where a form submission goes: either the static
// path of a definition or an operation looked up by id in an OpenAPI
// document.
package endpoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

var (
	// ErrOperationNotFound is returned when an operation id is not declared.
	ErrOperationNotFound = errors.New("endpoint: operation not found")
	// ErrMissingIdentifier is returned when a path template needs an id but
	// none was supplied.
	ErrMissingIdentifier = errors.New("endpoint: record identifier required")
)

var pathParam = regexp.MustCompile(`\{[^/{}]+\}`)

// Operation is an HTTP method plus a path template ("/applications/{id}").
type Operation struct {
	ID     string
	Method string
	Path   string
}

// Create returns the default create operation for a collection path.
func Create(path string) Operation {
	return Operation{Method: http.MethodPost, Path: path}
}

// Update returns the default update operation for a collection path; the
// identifier is appended as the last segment.
func Update(path string) Operation {
	return Operation{Method: http.MethodPut, Path: strings.TrimRight(path, "/") + "/{id}"}
}

// Expand substitutes path parameters with id. Paths without parameters are
// returned unchanged.
func (o Operation) Expand(id string) (string, error) {
	if !pathParam.MatchString(o.Path) {
		return o.Path, nil
	}
	if strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("%w for %s %s", ErrMissingIdentifier, o.Method, o.Path)
	}
	return pathParam.ReplaceAllLiteralString(o.Path, url.PathEscape(id)), nil
}

// Resolver indexes the operations of an OpenAPI document by operation id.
type Resolver struct {
	operations map[string]Operation
}

// LoadFile reads an OpenAPI document from disk.
func LoadFile(ctx context.Context, path string) (*Resolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("endpoint: read document: %w", err)
	}
	return Load(ctx, data)
}

// Load parses an OpenAPI 3 document (JSON or YAML).
func Load(ctx context.Context, data []byte) (*Resolver, error) {
	if len(data) == 0 {
		return nil, errors.New("endpoint: document payload is empty")
	}
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("endpoint: load document: %w", err)
	}

	r := &Resolver{operations: make(map[string]Operation)}
	if doc.Paths == nil {
		return r, nil
	}
	for path, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			if op == nil {
				continue
			}
			id := op.OperationID
			if id == "" {
				id = strings.ToLower(method) + ":" + path
			}
			r.operations[id] = Operation{ID: id, Method: strings.ToUpper(method), Path: path}
		}
	}
	return r, nil
}

// Resolve returns the operation registered under id.
func (r *Resolver) Resolve(id string) (Operation, error) {
	if r == nil {
		return Operation{}, fmt.Errorf("%w: %q (no document loaded)", ErrOperationNotFound, id)
	}
	op, ok := r.operations[strings.TrimSpace(id)]
	if !ok {
		return Operation{}, fmt.Errorf("%w: %q", ErrOperationNotFound, id)
	}
	return op, nil
}

// Len reports how many operations were indexed.
func (r *Resolver) Len() int {
	if r == nil {
		return 0
	}
	return len(r.operations)
}
