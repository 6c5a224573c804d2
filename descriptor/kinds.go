package descriptor

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/gluonch/carrot2/component"
	"github.com/gluonch/carrot2/errors"
)

// Builder creates a component instance from the descriptor's raw config
type Builder func(rawConfig json.RawMessage) (component.Component, error)

// KindConfig describes a buildable component kind
type KindConfig struct {
	Name        string
	Description string
	Version     string
	Builder     Builder
	// Schema is an optional JSON schema the descriptor config must satisfy
	Schema string
}

// Kind is a registered component kind
type Kind struct {
	KindConfig

	schema *gojsonschema.Schema
}

// Factory validates config and returns a factory building instances of the
// kind from it.
func (k *Kind) Factory(config json.RawMessage) (component.Factory, error) {
	if len(config) == 0 {
		config = json.RawMessage("{}")
	}
	if k.schema != nil {
		if err := validate(k.schema, config); err != nil {
			return nil, errors.Wrap(err, "Kind", "Factory", fmt.Sprintf("%s config validation", k.Name))
		}
	}

	builder := k.Builder
	return func() (component.Component, error) {
		return builder(config)
	}, nil
}

// Kinds is the catalog of component kinds descriptors can refer to
type Kinds struct {
	mu    sync.RWMutex
	kinds map[string]*Kind
}

// NewKinds creates an empty catalog
func NewKinds() *Kinds {
	return &Kinds{kinds: make(map[string]*Kind)}
}

// Register adds a kind to the catalog
func (k *Kinds) Register(cfg KindConfig) error {
	if cfg.Name == "" {
		return errors.WrapInvalid(errors.Errorf(errors.ErrInvalidConfig, "kind name is required"),
			"Kinds", "Register", "name validation")
	}
	if cfg.Builder == nil {
		return errors.WrapInvalid(errors.Errorf(errors.ErrInvalidConfig, "kind %q has no builder", cfg.Name),
			"Kinds", "Register", "builder validation")
	}

	kind := &Kind{KindConfig: cfg}
	if cfg.Schema != "" {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(cfg.Schema))
		if err != nil {
			return errors.WrapInvalid(err, "Kinds", "Register", fmt.Sprintf("%s schema compilation", cfg.Name))
		}
		kind.schema = schema
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if _, exists := k.kinds[cfg.Name]; exists {
		return errors.WrapInvalid(errors.Errorf(errors.ErrDuplicateIdentifier, "kind %q", cfg.Name),
			"Kinds", "Register", "duplicate check")
	}
	k.kinds[cfg.Name] = kind
	return nil
}

// Lookup returns the kind registered under name
func (k *Kinds) Lookup(name string) (*Kind, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	kind, ok := k.kinds[name]
	return kind, ok
}

// Names returns the registered kind names in sorted order
func (k *Kinds) Names() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return slices.Sorted(maps.Keys(k.kinds))
}
