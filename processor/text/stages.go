package text

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/gluonch/carrot2/component"
	"github.com/gluonch/carrot2/errors"
	"github.com/gluonch/carrot2/process"
)

// Capability names exchanged between text stages
const (
	CapText            = "text"
	CapTokens          = "tokens"
	CapTermFrequencies = "term-frequencies"
)

// TermFrequency is a term with its number of occurrences
type TermFrequency struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

func inputString(stage string, in any) (string, error) {
	s, ok := in.(string)
	if !ok {
		return "", errors.WrapInvalid(errors.Errorf(errors.ErrInvalidData, "%s expects text, got %T", stage, in),
			stage, "Process", "input check")
	}
	return s, nil
}

func inputTokens(stage string, in any) ([]string, error) {
	tokens, ok := in.([]string)
	if !ok {
		return nil, errors.WrapInvalid(errors.Errorf(errors.ErrInvalidData, "%s expects tokens, got %T", stage, in),
			stage, "Process", "input check")
	}
	return tokens, nil
}

// Normalizer lowercases and collapses whitespace in the query text
type Normalizer struct {
	component.Base
	cfg NormalizerConfig
}

// Process implements process.Stage
func (n *Normalizer) Process(_ context.Context, _ *process.RequestContext, in any) (any, error) {
	s, err := inputString("Normalizer", in)
	if err != nil {
		return nil, err
	}
	if n.cfg.Lowercase {
		s = strings.ToLower(s)
	}
	if n.cfg.CollapseSpace {
		s = strings.Join(strings.Fields(s), " ")
	}
	return s, nil
}

// Tokenizer splits text on anything that is not a letter or digit
type Tokenizer struct {
	component.Base
	cfg TokenizerConfig
}

// Process implements process.Stage
func (t *Tokenizer) Process(_ context.Context, rc *process.RequestContext, in any) (any, error) {
	s, err := inputString("Tokenizer", in)
	if err != nil {
		return nil, err
	}

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < t.cfg.MinLength {
			continue
		}
		if t.cfg.Lowercase {
			f = strings.ToLower(f)
		}
		tokens = append(tokens, f)
	}
	rc.SetAttribute("tokens", len(tokens))
	return tokens, nil
}

// StopwordFilter drops configured words from a token stream. The request
// parameter "stopwords" adds comma separated words for a single query.
type StopwordFilter struct {
	component.Base
	words map[string]struct{}
}

// Process implements process.Stage
func (f *StopwordFilter) Process(_ context.Context, rc *process.RequestContext, in any) (any, error) {
	tokens, err := inputTokens("StopwordFilter", in)
	if err != nil {
		return nil, err
	}

	extra := make(map[string]struct{})
	for _, w := range strings.Split(rc.StringParam("stopwords", ""), ",") {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			extra[w] = struct{}{}
		}
	}

	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		key := strings.ToLower(tok)
		if _, stop := f.words[key]; stop {
			continue
		}
		if _, stop := extra[key]; stop {
			continue
		}
		kept = append(kept, tok)
	}
	rc.SetAttribute("stopwords_removed", len(tokens)-len(kept))
	return kept, nil
}

// FrequencyCounter counts token occurrences and keeps the most frequent
// terms. The request parameter "top" overrides the configured limit.
type FrequencyCounter struct {
	component.Base
	cfg FrequencyConfig
}

// Process implements process.Stage
func (f *FrequencyCounter) Process(_ context.Context, rc *process.RequestContext, in any) (any, error) {
	tokens, err := inputTokens("FrequencyCounter", in)
	if err != nil {
		return nil, err
	}

	top := f.cfg.Top
	if raw := rc.StringParam("top", ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, errors.WrapInvalid(fmt.Errorf("parameter top must be a non-negative integer, got %q", raw),
				"FrequencyCounter", "Process", "parameter parsing")
		}
		top = n
	}

	counts := make(map[string]int)
	for _, tok := range tokens {
		counts[tok]++
	}

	terms := make([]TermFrequency, 0, len(counts))
	for term, n := range counts {
		if n >= f.cfg.MinCount {
			terms = append(terms, TermFrequency{Term: term, Count: n})
		}
	}
	slices.SortFunc(terms, func(a, b TermFrequency) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Term, b.Term)
	})

	rc.SetAttribute("distinct_terms", len(counts))
	if top > 0 && len(terms) > top {
		terms = terms[:top]
	}
	return terms, nil
}
