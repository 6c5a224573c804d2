package controller

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gluonch/carrot2/component"
	"github.com/gluonch/carrot2/descriptor"
	"github.com/gluonch/carrot2/errors"
	"github.com/gluonch/carrot2/process"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// wordStage splits text into words
type wordStage struct {
	component.Base
}

func (s *wordStage) Process(_ context.Context, rc *process.RequestContext, in any) (any, error) {
	words := strings.Fields(in.(string))
	rc.SetAttribute("words", len(words))
	return words, nil
}

// countStage counts tokens
type countStage struct {
	component.Base
}

func (s *countStage) Process(_ context.Context, _ *process.RequestContext, in any) (any, error) {
	return len(in.([]string)), nil
}

func wordFactory() component.Factory {
	return func() (component.Component, error) {
		return &wordStage{Base: component.NewBase(
			component.Metadata{Name: "Words", Kind: "words"},
			component.Capabilities{
				Inputs:  []component.Capability{{Name: "text"}},
				Outputs: []component.Capability{{Name: "tokens", Version: "1.1.0"}},
			},
		)}, nil
	}
}

func countFactory() component.Factory {
	return func() (component.Component, error) {
		return &countStage{Base: component.NewBase(
			component.Metadata{Name: "Counter", Kind: "count"},
			component.Capabilities{
				Inputs:  []component.Capability{{Name: "tokens", Version: ">=1.0"}},
				Outputs: []component.Capability{{Name: "count", Version: "1.0.0"}},
			},
		)}, nil
	}
}

// fakeResolver serves factories from a map and counts lookups per id
type fakeResolver struct {
	mu        sync.Mutex
	factories map[string]component.Factory
	failures  map[string]error
	calls     map[string]int
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		factories: make(map[string]component.Factory),
		failures:  make(map[string]error),
		calls:     make(map[string]int),
	}
}

func (r *fakeResolver) Resolve(_ context.Context, id string) (*descriptor.Resolved, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls[id]++
	if err, ok := r.failures[id]; ok {
		return nil, err
	}
	if f, ok := r.factories[id]; ok {
		return &descriptor.Resolved{ID: id, Factory: f, Location: "fake/" + id + ".json"}, nil
	}
	return nil, errors.Errorf(errors.ErrDescriptorNotFound, "%q", id)
}

func (r *fakeResolver) Calls(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[id]
}

func loaderFailure(id string) error {
	return errors.WrapFatal(&descriptor.LoaderError{ID: id, Location: id + ".json", Err: fmt.Errorf("unexpected EOF")},
		"Resolver", "Resolve", "descriptor loading")
}

// stubbornProcess keeps reporting the same missing dependency
type stubbornProcess struct {
	missing string
	calls   int
}

func (p *stubbornProcess) Name() string { return "stubborn" }

func (p *stubbornProcess) Initialize(component.Context) error {
	p.calls++
	return errors.MissingDependency(p.missing)
}

func (p *stubbornProcess) Query(context.Context, *process.RequestContext, string) (any, error) {
	return nil, nil
}

// borrowingProcess borrows each of its components once while initializing
type borrowingProcess struct {
	ids []string
}

func (p *borrowingProcess) Name() string { return "borrowing" }

func (p *borrowingProcess) Initialize(ctx component.Context) error {
	for _, id := range p.ids {
		c, err := ctx.Borrow(id)
		if err != nil {
			return err
		}
		ctx.Return(id, c)
	}
	return nil
}

func (p *borrowingProcess) Query(context.Context, *process.RequestContext, string) (any, error) {
	return nil, nil
}

func newController(t *testing.T, opts ...Option) *Controller {
	t.Helper()
	c := New(append([]Option{WithLogger(testLogger())}, opts...)...)
	require.NoError(t, c.RegisterFactory("words", wordFactory()))
	return c
}

func assertNoActive(t *testing.T, c *Controller) {
	t.Helper()
	for id, s := range c.PoolStats() {
		if s.Active != 0 {
			t.Errorf("component %s has %d outstanding instances", id, s.Active)
		}
	}
}
