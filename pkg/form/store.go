// Package form holds the Field Store: the values of one form session plus the
// validation errors recomputed after every mutation.
package form

import (
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-formflow/pkg/model"
)

// ErrUnknownField is returned when a value targets a field the definition
// does not declare.
var ErrUnknownField = errors.New("form: unknown field")

// Validator is the subset of validation.Validator the store relies on.
type Validator interface {
	Validate(values model.Values) model.Errors
	IsRequired(name string, values model.Values) bool
}

// Listener observes committed changes. It receives the field that changed
// and a snapshot of all values taken after the change.
type Listener func(field string, values model.Values)

// Store tracks collected values and their derived errors. It is safe for use
// by one UI loop plus background readers such as an autosave timer.
type Store struct {
	mu        sync.RWMutex
	def       model.Definition
	validator Validator
	values    model.Values
	errors    model.Errors
	listeners []Listener
}

// NewStore seeds a store from the definition defaults and prefill, then
// computes the initial errors. Prefill wins over defaults.
func NewStore(def model.Definition, validator Validator, prefill model.Values) (*Store, error) {
	if validator == nil {
		return nil, errors.New("form: validator is required")
	}
	s := &Store{def: def, validator: validator}
	if err := s.Reset(prefill); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset discards all values and reseeds from defaults plus prefill.
func (s *Store) Reset(prefill model.Values) error {
	values := make(model.Values, len(s.def.Fields))
	for _, field := range s.def.Fields {
		if field.Default == nil {
			continue
		}
		normalized, err := model.Normalize(field.Type, field.Default)
		if err != nil {
			return fmt.Errorf("form: default for %q: %w", field.Name, err)
		}
		values[field.Name] = normalized
	}
	for name, raw := range prefill {
		field, ok := s.def.Field(name)
		if !ok {
			// edit records often carry server-only attributes
			continue
		}
		normalized, err := model.Normalize(field.Type, raw)
		if err != nil {
			return fmt.Errorf("form: prefill for %q: %w", name, err)
		}
		values[name] = normalized
	}

	s.mu.Lock()
	s.values = values
	s.errors = s.validator.Validate(values)
	s.mu.Unlock()
	return nil
}

// Definition returns the definition backing the store.
func (s *Store) Definition() model.Definition {
	return s.def
}

// Validator returns the validator computing the store's errors.
func (s *Store) Validator() Validator {
	return s.validator
}

// Set assigns value to name, recomputes errors and notifies listeners.
func (s *Store) Set(name string, value any) error {
	return s.SetMany(model.Values{name: value})
}

// SetMany assigns several values atomically; validation runs once.
func (s *Store) SetMany(updates model.Values) error {
	if len(updates) == 0 {
		return nil
	}
	normalized := make(model.Values, len(updates))
	for name, raw := range updates {
		field, ok := s.def.Field(name)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
		value, err := model.Normalize(field.Type, raw)
		if err != nil {
			return fmt.Errorf("form: set %q: %w", name, err)
		}
		normalized[name] = value
	}

	s.mu.Lock()
	for name, value := range normalized {
		if value == nil {
			delete(s.values, name)
			continue
		}
		s.values[name] = value
	}
	s.errors = s.validator.Validate(s.values)
	listeners := append([]Listener(nil), s.listeners...)
	snapshot := s.values.Clone()
	s.mu.Unlock()

	for name := range normalized {
		for _, fn := range listeners {
			fn(name, snapshot)
		}
	}
	return nil
}

// Get returns the value stored under name.
func (s *Store) Get(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

// Values returns a copy of the current values.
func (s *Store) Values() model.Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.Clone()
}

// Errors returns a copy of the current errors.
func (s *Store) Errors() model.Errors {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errors.Clone()
}

// ErrorFor returns the message attached to name, if any.
func (s *Store) ErrorFor(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errors[name]
}

// Snapshot returns values and errors taken under the same lock.
func (s *Store) Snapshot() (model.Values, model.Errors) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.Clone(), s.errors.Clone()
}

// IsRequired reports whether name is currently required.
func (s *Store) IsRequired(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validator.IsRequired(name, s.values)
}

// OnChange registers fn for every committed mutation and returns a function
// that unregisters it.
func (s *Store) OnChange(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
	idx := len(s.listeners) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < len(s.listeners) {
			s.listeners[idx] = func(string, model.Values) {}
		}
	}
}
