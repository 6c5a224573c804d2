package component

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gluonch/carrot2/errors"
)

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()
	factory := newMockFactory("tokenizer", Capabilities{})

	require.NoError(t, registry.Register("tokenizer", factory.Factory()))

	assert.True(t, registry.IsRegistered("tokenizer"))
	assert.False(t, registry.IsRegistered("stemmer"))

	got, ok := registry.Factory("tokenizer")
	require.True(t, ok)
	c, err := got()
	require.NoError(t, err)
	assert.Equal(t, "tokenizer", c.Meta().Name)
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	registry := NewRegistry()
	first := newMockFactory("first", Capabilities{})
	second := newMockFactory("second", Capabilities{})

	require.NoError(t, registry.Register("x", first.Factory()))

	err := registry.Register("x", second.Factory())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDuplicateIdentifier))
	assert.True(t, errors.IsInvalid(err))

	// The original mapping is unchanged
	got, ok := registry.Factory("x")
	require.True(t, ok)
	c, err := got()
	require.NoError(t, err)
	assert.Equal(t, "first", c.Meta().Name)
}

func TestRegistry_RejectsInvalidInput(t *testing.T) {
	registry := NewRegistry()
	factory := newMockFactory("m", Capabilities{}).Factory()

	tests := []struct {
		name    string
		id      string
		factory Factory
	}{
		{"empty id", "", factory},
		{"path separator", "a/b", factory},
		{"relative segment", "../etc", factory},
		{"leading dot", ".hidden", factory},
		{"nil factory", "valid", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registry.Register(tt.id, tt.factory)
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}

	assert.Empty(t, registry.IDs())
}

func TestRegistry_IDsSorted(t *testing.T) {
	registry := NewRegistry()
	for _, id := range []string{"stemmer", "clusterer", "tokenizer.v2"} {
		require.NoError(t, registry.Register(id, newMockFactory(id, Capabilities{}).Factory()))
	}

	assert.Equal(t, []string{"clusterer", "stemmer", "tokenizer.v2"}, registry.IDs())
}

func TestRegistry_ConcurrentDuplicateRegistration(t *testing.T) {
	registry := NewRegistry()

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results <- registry.Register("shared", newMockFactory(fmt.Sprintf("m%d", i), Capabilities{}).Factory())
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, errors.ErrDuplicateIdentifier))
	}
	assert.Equal(t, 1, succeeded)
}
