package endpoint

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const registryDocument = `
openapi: 3.0.3
info:
  title: Registry
  version: "1.0"
paths:
  /api/v2/applications:
    post:
      operationId: createApplication
      responses:
        "201":
          description: created
  /api/v2/applications/{applicationId}:
    put:
      operationId: updateApplication
      parameters:
        - name: applicationId
          in: path
          required: true
          schema:
            type: string
      responses:
        "200":
          description: updated
    delete:
      responses:
        "204":
          description: deleted
`

func TestLoadAndResolve(t *testing.T) {
	r, err := Load(context.Background(), []byte(registryDocument))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if r.Len() != 3 {
		t.Fatalf("expected 3 operations, got %d", r.Len())
	}

	create, err := r.Resolve("createApplication")
	if err != nil {
		t.Fatalf("resolve create: %v", err)
	}
	want := Operation{ID: "createApplication", Method: http.MethodPost, Path: "/api/v2/applications"}
	if diff := cmp.Diff(want, create); diff != "" {
		t.Fatalf("create mismatch (-want +got):\n%s", diff)
	}

	update, err := r.Resolve("updateApplication")
	if err != nil {
		t.Fatalf("resolve update: %v", err)
	}
	path, err := update.Expand("app 1")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if path != "/api/v2/applications/app%201" {
		t.Fatalf("expanded path = %q", path)
	}

	if _, err := r.Resolve("delete:/api/v2/applications/{applicationId}"); err != nil {
		t.Fatalf("expected synthesized id for operation without operationId: %v", err)
	}

	if _, err := r.Resolve("missing"); !errors.Is(err, ErrOperationNotFound) {
		t.Fatalf("expected ErrOperationNotFound, got %v", err)
	}
}

func TestDefaultOperations(t *testing.T) {
	create := Create("/api/applications")
	if create.Method != http.MethodPost {
		t.Fatalf("create method = %s", create.Method)
	}
	if p, err := create.Expand(""); err != nil || p != "/api/applications" {
		t.Fatalf("create expand = %q, %v", p, err)
	}

	update := Update("/api/applications/")
	if update.Method != http.MethodPut {
		t.Fatalf("update method = %s", update.Method)
	}
	if p, err := update.Expand("42"); err != nil || p != "/api/applications/42" {
		t.Fatalf("update expand = %q, %v", p, err)
	}
	if _, err := update.Expand(" "); !errors.Is(err, ErrMissingIdentifier) {
		t.Fatalf("expected ErrMissingIdentifier, got %v", err)
	}
}

func TestNilResolver(t *testing.T) {
	var r *Resolver
	if _, err := r.Resolve("x"); !errors.Is(err, ErrOperationNotFound) {
		t.Fatalf("expected ErrOperationNotFound, got %v", err)
	}
}
