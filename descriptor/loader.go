package descriptor

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/gluonch/carrot2/errors"
)

// Loader decodes one descriptor format. The extension, without the leading
// dot, selects the file the resolver looks for.
type Loader interface {
	Extension() string
	Decode(r io.Reader) (map[string]any, error)
}

// JSONLoader reads .json descriptors
type JSONLoader struct{}

// Extension implements Loader
func (JSONLoader) Extension() string { return "json" }

// Decode implements Loader
func (JSONLoader) Decode(r io.Reader) (map[string]any, error) {
	var doc map[string]any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// YAMLLoader reads YAML descriptors under the configured extension
type YAMLLoader struct {
	Ext string
}

// Extension implements Loader
func (l YAMLLoader) Extension() string {
	if l.Ext == "" {
		return "yaml"
	}
	return l.Ext
}

// Decode implements Loader
func (YAMLLoader) Decode(r io.Reader) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty document")
		}
		return nil, err
	}
	return doc, nil
}

// TOMLLoader reads .toml descriptors
type TOMLLoader struct{}

// Extension implements Loader
func (TOMLLoader) Extension() string { return "toml" }

// Decode implements Loader
func (TOMLLoader) Decode(r io.Reader) (map[string]any, error) {
	var doc map[string]any
	if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// DefaultLoaders returns the loaders in resolution priority order
func DefaultLoaders() []Loader {
	return []Loader{
		JSONLoader{},
		YAMLLoader{Ext: "yaml"},
		YAMLLoader{Ext: "yml"},
		TOMLLoader{},
	}
}

// LoadersFor returns the default loaders for the given extensions, in the
// given order. Unknown extensions are an error.
func LoadersFor(extensions ...string) ([]Loader, error) {
	byExt := make(map[string]Loader)
	for _, l := range DefaultLoaders() {
		byExt[l.Extension()] = l
	}

	loaders := make([]Loader, 0, len(extensions))
	for _, ext := range extensions {
		l, ok := byExt[ext]
		if !ok {
			return nil, errors.WrapInvalid(errors.Errorf(errors.ErrInvalidConfig, "no loader for extension %q", ext),
				"descriptor", "LoadersFor", "loader lookup")
		}
		loaders = append(loaders, l)
	}
	return loaders, nil
}
