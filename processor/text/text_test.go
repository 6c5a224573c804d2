package text

import (
	"context"
	"encoding/json"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gluonch/carrot2/component"
	"github.com/gluonch/carrot2/controller"
	"github.com/gluonch/carrot2/descriptor"
	"github.com/gluonch/carrot2/process"
)

func request(params map[string]any) *process.RequestContext {
	return process.NewRequestContext(nil, params)
}

func TestNormalizer(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{Lowercase: true, CollapseSpace: true})

	out, err := n.Process(context.Background(), request(nil), "  Data   MINING\tTools ")
	require.NoError(t, err)
	assert.Equal(t, "data mining tools", out)

	_, err = n.Process(context.Background(), request(nil), 42)
	require.Error(t, err)
}

func TestTokenizer(t *testing.T) {
	tok := NewTokenizer(TokenizerConfig{MinLength: 2, Lowercase: true})
	rc := request(nil)

	out, err := tok.Process(context.Background(), rc, "Clustering, search-results & a Q&A for 2024!")
	require.NoError(t, err)
	assert.Equal(t, []string{"clustering", "search", "results", "for", "2024"}, out)

	n, ok := rc.Attribute("tokens")
	require.True(t, ok)
	assert.Equal(t, 5, n)
}

func TestStopwordFilter(t *testing.T) {
	f := NewStopwordFilter(StopwordConfig{})
	rc := request(map[string]any{"stopwords": "Search, ,results"})

	out, err := f.Process(context.Background(), rc, []string{"the", "search", "of", "clustering", "results"})
	require.NoError(t, err)
	assert.Equal(t, []string{"clustering"}, out)

	removed, _ := rc.Attribute("stopwords_removed")
	assert.Equal(t, 4, removed)
}

func TestStopwordFilter_ConfiguredWords(t *testing.T) {
	f := NewStopwordFilter(StopwordConfig{Words: []string{"Foo"}})

	out, err := f.Process(context.Background(), request(nil), []string{"foo", "the", "bar"})
	require.NoError(t, err)
	assert.Equal(t, []string{"the", "bar"}, out, "configured words replace the defaults")
}

func TestFrequencyCounter(t *testing.T) {
	f := NewFrequencyCounter(FrequencyConfig{Top: 2})
	tokens := []string{"b", "a", "c", "a", "b", "d"}

	out, err := f.Process(context.Background(), request(nil), tokens)
	require.NoError(t, err)
	assert.Equal(t, []TermFrequency{{"a", 2}, {"b", 2}}, out)

	out, err = f.Process(context.Background(), request(map[string]any{"top": "0"}), tokens)
	require.NoError(t, err)
	assert.Len(t, out, 4, "top=0 keeps every term")

	_, err = f.Process(context.Background(), request(map[string]any{"top": "many"}), tokens)
	require.Error(t, err)
}

func TestFrequencyCounter_MinCount(t *testing.T) {
	f := NewFrequencyCounter(FrequencyConfig{MinCount: 2})
	rc := request(nil)

	out, err := f.Process(context.Background(), rc, []string{"x", "y", "x"})
	require.NoError(t, err)
	assert.Equal(t, []TermFrequency{{"x", 2}}, out)

	distinct, _ := rc.Attribute("distinct_terms")
	assert.Equal(t, 2, distinct)
}

func TestRegister(t *testing.T) {
	kinds := descriptor.NewKinds()
	require.NoError(t, Register(kinds))
	assert.Equal(t, []string{"frequency", "normalize", "stopwords", "tokenizer"}, kinds.Names())

	require.Error(t, Register(kinds), "kinds cannot be registered twice")

	kind, ok := kinds.Lookup("tokenizer")
	require.True(t, ok)

	_, err := kind.Factory(json.RawMessage(`{"min_length": 0}`))
	require.Error(t, err, "schema rejects min_length below 1")
	_, err = kind.Factory(json.RawMessage(`{"unknown": true}`))
	require.Error(t, err)

	factory, err := kind.Factory(nil)
	require.NoError(t, err)
	c, err := factory()
	require.NoError(t, err)
	assert.Equal(t, "tokenizer", c.Meta().Kind)
}

func TestStagesChain(t *testing.T) {
	ctrl := controller.New()
	kinds := descriptor.NewKinds()
	require.NoError(t, Register(kinds))

	for _, name := range []string{"normalize", "tokenizer", "stopwords", "frequency"} {
		kind, ok := kinds.Lookup(name)
		require.True(t, ok)
		factory, err := kind.Factory(nil)
		require.NoError(t, err)
		require.NoError(t, ctrl.RegisterFactory(name, factory))
	}

	compatible, err := ctrl.Compatible("stopwords", "frequency")
	require.NoError(t, err)
	assert.True(t, compatible)

	explanation, err := ctrl.Explain("frequency", "tokenizer")
	require.NoError(t, err)
	assert.Contains(t, explanation, "text")

	ctx := context.Background()
	require.NoError(t, ctrl.AddProcess(ctx, "terms",
		process.NewPipeline("Terms", "normalize", "tokenizer", "stopwords", "frequency")))

	result, err := ctrl.Query(ctx, "terms", "The search engine and the SEARCH results", map[string]any{"top": 1})
	require.NoError(t, err)
	assert.Equal(t, []TermFrequency{{"search", 2}}, result.Result())

	for id, stats := range ctrl.PoolStats() {
		assert.Zero(t, stats.Active, "%s returned to pool", id)
	}
}

func TestAutoloadFromDescriptors(t *testing.T) {
	kinds := descriptor.NewKinds()
	require.NoError(t, Register(kinds))

	fsys := fstest.MapFS{
		"tokenizer.yaml": {Data: []byte("kind: tokenizer\nconfig:\n  min_length: 3\n")},
		"frequency.toml": {Data: []byte("kind = \"frequency\"\n[config]\ntop = 1\n")},
	}
	resolver := descriptor.NewResolver(descriptor.NewFSLocator(fsys), kinds)
	ctrl := controller.New(controller.WithResolver(resolver), controller.WithAutoload(true))

	ctx := context.Background()
	require.NoError(t, ctrl.AddProcess(ctx, "terms", process.NewPipeline("Terms", "tokenizer", "frequency")))
	assert.Equal(t, []string{"frequency", "tokenizer"}, ctrl.FactoryIDs())

	result, err := ctrl.Query(ctx, "terms", "go is go and Go", nil)
	require.NoError(t, err)
	assert.Equal(t, []TermFrequency{{"and", 1}}, result.Result())
}

func TestStageTypes(t *testing.T) {
	var _ process.Stage = (*Normalizer)(nil)
	var _ process.Stage = (*Tokenizer)(nil)
	var _ process.Stage = (*StopwordFilter)(nil)
	var _ process.Stage = (*FrequencyCounter)(nil)
	var _ component.Component = (*Tokenizer)(nil)
}
