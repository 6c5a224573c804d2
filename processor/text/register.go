package text

import (
	"encoding/json"
	"strings"

	"github.com/gluonch/carrot2/component"
	"github.com/gluonch/carrot2/descriptor"
	"github.com/gluonch/carrot2/errors"
)

// Version of the built-in text kinds
const Version = "1.0.0"

// NormalizerConfig configures the normalize kind
type NormalizerConfig struct {
	Lowercase     bool `json:"lowercase"`
	CollapseSpace bool `json:"collapse_space"`
}

// TokenizerConfig configures the tokenizer kind
type TokenizerConfig struct {
	MinLength int  `json:"min_length"`
	Lowercase bool `json:"lowercase"`
}

// StopwordConfig configures the stopwords kind
type StopwordConfig struct {
	Words []string `json:"words"`
}

// FrequencyConfig configures the frequency kind
type FrequencyConfig struct {
	Top      int `json:"top"`
	MinCount int `json:"min_count"`
}

// DefaultStopwords is used when a stopwords descriptor lists no words
var DefaultStopwords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from", "in",
	"is", "it", "of", "on", "or", "that", "the", "to", "was", "with",
}

const normalizerSchema = `{
	"type": "object",
	"properties": {
		"lowercase": {"type": "boolean"},
		"collapse_space": {"type": "boolean"}
	},
	"additionalProperties": false
}`

const tokenizerSchema = `{
	"type": "object",
	"properties": {
		"min_length": {"type": "integer", "minimum": 1},
		"lowercase": {"type": "boolean"}
	},
	"additionalProperties": false
}`

const stopwordSchema = `{
	"type": "object",
	"properties": {
		"words": {"type": "array", "items": {"type": "string", "minLength": 1}}
	},
	"additionalProperties": false
}`

const frequencySchema = `{
	"type": "object",
	"properties": {
		"top": {"type": "integer", "minimum": 0},
		"min_count": {"type": "integer", "minimum": 1}
	},
	"additionalProperties": false
}`

// Register adds the normalize, tokenizer, stopwords and frequency kinds to
// the catalog.
func Register(kinds *descriptor.Kinds) error {
	for _, cfg := range []descriptor.KindConfig{
		{
			Name:        "normalize",
			Description: "Lowercases query text and collapses whitespace",
			Version:     Version,
			Schema:      normalizerSchema,
			Builder:     buildNormalizer,
		},
		{
			Name:        "tokenizer",
			Description: "Splits text into letter and digit tokens",
			Version:     Version,
			Schema:      tokenizerSchema,
			Builder:     buildTokenizer,
		},
		{
			Name:        "stopwords",
			Description: "Removes stop words from a token stream",
			Version:     Version,
			Schema:      stopwordSchema,
			Builder:     buildStopwords,
		},
		{
			Name:        "frequency",
			Description: "Counts term occurrences and keeps the most frequent terms",
			Version:     Version,
			Schema:      frequencySchema,
			Builder:     buildFrequency,
		},
	} {
		if err := kinds.Register(cfg); err != nil {
			return errors.Wrap(err, "text", "Register", cfg.Name+" kind registration")
		}
	}
	return nil
}

func decode(kind string, raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.WrapInvalid(errors.Errorf(errors.ErrInvalidConfig, "%s: %v", kind, err),
			"text", "Build", "config decode")
	}
	return nil
}

func meta(name, kind, description string) component.Metadata {
	return component.Metadata{Name: name, Kind: kind, Description: description, Version: Version}
}

func buildNormalizer(raw json.RawMessage) (component.Component, error) {
	cfg := NormalizerConfig{Lowercase: true, CollapseSpace: true}
	if err := decode("normalize", raw, &cfg); err != nil {
		return nil, err
	}
	return NewNormalizer(cfg), nil
}

func buildTokenizer(raw json.RawMessage) (component.Component, error) {
	cfg := TokenizerConfig{MinLength: 1, Lowercase: true}
	if err := decode("tokenizer", raw, &cfg); err != nil {
		return nil, err
	}
	return NewTokenizer(cfg), nil
}

func buildStopwords(raw json.RawMessage) (component.Component, error) {
	var cfg StopwordConfig
	if err := decode("stopwords", raw, &cfg); err != nil {
		return nil, err
	}
	return NewStopwordFilter(cfg), nil
}

func buildFrequency(raw json.RawMessage) (component.Component, error) {
	cfg := FrequencyConfig{Top: 10, MinCount: 1}
	if err := decode("frequency", raw, &cfg); err != nil {
		return nil, err
	}
	return NewFrequencyCounter(cfg), nil
}

// NewNormalizer creates a normalize stage
func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	return &Normalizer{
		Base: component.NewBase(meta("Normalizer", "normalize", "Query text normalization"), component.Capabilities{
			Inputs:  []component.Capability{{Name: CapText}},
			Outputs: []component.Capability{{Name: CapText, Version: Version}},
		}),
		cfg: cfg,
	}
}

// NewTokenizer creates a tokenizer stage
func NewTokenizer(cfg TokenizerConfig) *Tokenizer {
	if cfg.MinLength < 1 {
		cfg.MinLength = 1
	}
	return &Tokenizer{
		Base: component.NewBase(meta("Tokenizer", "tokenizer", "Letter and digit tokenizer"), component.Capabilities{
			Inputs:  []component.Capability{{Name: CapText}},
			Outputs: []component.Capability{{Name: CapTokens, Version: Version}},
		}),
		cfg: cfg,
	}
}

// NewStopwordFilter creates a stopwords stage. An empty word list selects
// DefaultStopwords.
func NewStopwordFilter(cfg StopwordConfig) *StopwordFilter {
	words := cfg.Words
	if len(words) == 0 {
		words = DefaultStopwords
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return &StopwordFilter{
		Base: component.NewBase(meta("StopwordFilter", "stopwords", "Stop word removal"), component.Capabilities{
			Inputs:  []component.Capability{{Name: CapTokens, Version: ">=1.0"}},
			Outputs: []component.Capability{{Name: CapTokens, Version: Version}},
		}),
		words: set,
	}
}

// NewFrequencyCounter creates a frequency stage
func NewFrequencyCounter(cfg FrequencyConfig) *FrequencyCounter {
	if cfg.MinCount < 1 {
		cfg.MinCount = 1
	}
	return &FrequencyCounter{
		Base: component.NewBase(meta("FrequencyCounter", "frequency", "Term frequency counting"), component.Capabilities{
			Inputs:  []component.Capability{{Name: CapTokens, Version: ">=1.0"}},
			Outputs: []component.Capability{{Name: CapTermFrequencies, Version: Version}},
		}),
		cfg: cfg,
	}
}
