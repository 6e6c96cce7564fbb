// Package definitions loads form definitions from YAML and keeps a
// catalogue of them. The built-in dashboard flows are embedded in the
// binary.
package definitions

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formflow/pkg/model"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Built-in definition ids.
const (
	AddApplication     = "add-application"
	UpdateAIAssessment = "update-ai-assessment"
	PublishTrustCenter = "publish-trust-center"
)

// Catalog indexes definitions by id. The zero value is ready to use.
type Catalog struct {
	mu   sync.RWMutex
	defs map[string]model.Definition
}

// NewCatalog returns a catalogue seeded with the embedded definitions.
func NewCatalog() (*Catalog, error) {
	c := &Catalog{}
	if err := c.LoadFS(builtinFS, "builtin/*.yaml"); err != nil {
		return nil, err
	}
	return c, nil
}

// Add checks def and registers it. Registering an id twice fails unless
// replace is set.
func (c *Catalog) Add(def model.Definition, replace bool) error {
	if err := Check(def); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.defs == nil {
		c.defs = make(map[string]model.Definition)
	}
	if _, exists := c.defs[def.ID]; exists && !replace {
		return fmt.Errorf("%w: %q", ErrDuplicate, def.ID)
	}
	c.defs[def.ID] = def
	return nil
}

// LoadFS parses every file in fsys matching pattern.
func (c *Catalog) LoadFS(fsys fs.FS, pattern string) error {
	matches, err := fs.Glob(fsys, pattern)
	if err != nil {
		return fmt.Errorf("definitions: glob %q: %w", pattern, err)
	}
	sort.Strings(matches)
	for _, name := range matches {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("definitions: read %s: %w", name, err)
		}
		def, err := Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := c.Add(def, false); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// LoadDir adds every *.yaml, *.yml and *.json file under dir, replacing
// definitions that share an id. This lets a deployment override a built-in.
func (c *Catalog) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("definitions: read dir %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml", ".json":
		default:
			continue
		}
		def, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return err
		}
		if err := c.Add(def, true); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the definition registered under id.
func (c *Catalog) Get(id string) (model.Definition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.defs[strings.TrimSpace(id)]
	if !ok {
		return model.Definition{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return def, nil
}

// List returns all definitions sorted by id.
func (c *Catalog) List() []model.Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Definition, 0, len(c.defs))
	for _, def := range c.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
