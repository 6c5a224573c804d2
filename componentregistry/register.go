// Package componentregistry registers the built-in component kinds with a
// descriptor kind catalog.
package componentregistry

import (
	"errors"

	"github.com/gluonch/carrot2/descriptor"
	pkgerrors "github.com/gluonch/carrot2/errors"
	"github.com/gluonch/carrot2/processor/text"
)

// Register registers all built-in kinds with the provided catalog:
//
// Text processing:
//   - normalize (text normalization)
//   - tokenizer (letter and digit tokens)
//   - stopwords (stop word removal)
//   - frequency (term frequency counting)
func Register(kinds *descriptor.Kinds) error {
	// Nil catalog is a programming error (fatal), not invalid input
	if kinds == nil {
		return pkgerrors.WrapFatal(
			errors.New("kind catalog cannot be nil"),
			"ComponentRegistry", "Register", "catalog validation")
	}

	if err := text.Register(kinds); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "text kinds registration")
	}

	return nil
}
