package component

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/gluonch/carrot2/errors"
)

// Registry maps component identifiers to factories. Registrations are
// permanent; an identifier can be registered once.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register associates id with factory
func (r *Registry) Register(id string, factory Factory) error {
	if err := ValidateID(id); err != nil {
		return errors.Wrap(err, "Registry", "Register", "identifier validation")
	}
	if factory == nil {
		return errors.WrapInvalid(fmt.Errorf("nil factory for %q", id), "Registry", "Register", "factory validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[id]; exists {
		return errors.WrapInvalid(errors.Errorf(errors.ErrDuplicateIdentifier, "component %q", id),
			"Registry", "Register", "duplicate check")
	}

	r.factories[id] = factory
	return nil
}

// IsRegistered reports whether a factory exists for id
func (r *Registry) IsRegistered(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.factories[id]
	return exists
}

// Factory returns the factory registered under id
func (r *Registry) Factory(id string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[id]
	return factory, exists
}

// IDs returns all registered identifiers in sorted order
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.factories))
}

// ValidateID checks that id is usable as a component identifier. Identifiers
// double as descriptor file names, so path separators and dot-dot sequences
// are rejected.
func ValidateID(id string) error {
	if id == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "component", "ValidateID", "empty identifier check")
	}
	if len(id) > 128 {
		return errors.WrapInvalid(fmt.Errorf("identifier longer than 128 characters"),
			"component", "ValidateID", "length check")
	}
	if strings.HasPrefix(id, ".") || strings.Contains(id, "..") {
		return errors.WrapInvalid(fmt.Errorf("identifier %q contains a relative path segment", id),
			"component", "ValidateID", "path check")
	}

	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '-' || r == '_' || r == '.' {
			continue
		}
		return errors.WrapInvalid(fmt.Errorf("identifier %q contains invalid character %q", id, r),
			"component", "ValidateID", "character check")
	}

	return nil
}
