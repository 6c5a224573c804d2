package component

import (
	"sync"
	"sync/atomic"
)

// Test helpers shared across test files

// MockComponent is a configurable component for tests. It counts Init and
// Destroy calls.
type MockComponent struct {
	Base

	initCalls    atomic.Int32
	destroyCalls atomic.Int32
	initErr      error
}

func (m *MockComponent) Init(ctx Context) error {
	m.initCalls.Add(1)
	if m.initErr != nil {
		return m.initErr
	}
	return m.Base.Init(ctx)
}

func (m *MockComponent) Destroy() {
	m.destroyCalls.Add(1)
}

// mockFactory builds MockComponents with fixed capabilities and tracks every
// instance it created.
type mockFactory struct {
	name string
	caps Capabilities

	mu        sync.Mutex
	instances []*MockComponent
	initErr   error
	buildErr  error
}

func newMockFactory(name string, caps Capabilities) *mockFactory {
	return &mockFactory{name: name, caps: caps}
}

func (f *mockFactory) Factory() Factory {
	return func() (Component, error) {
		if f.buildErr != nil {
			return nil, f.buildErr
		}
		c := &MockComponent{
			Base:    NewBase(Metadata{Name: f.name, Kind: "mock", Version: "1.0.0"}, f.caps),
			initErr: f.initErr,
		}
		f.mu.Lock()
		f.instances = append(f.instances, c)
		f.mu.Unlock()
		return c, nil
	}
}

func (f *mockFactory) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.instances)
}

func (f *mockFactory) Instances() []*MockComponent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*MockComponent(nil), f.instances...)
}

func outputs(caps ...Capability) Capabilities {
	return Capabilities{Outputs: caps}
}

func inputs(policy MatchPolicy, caps ...Capability) Capabilities {
	return Capabilities{Inputs: caps, InputPolicy: policy}
}

func capability(name, version string) Capability {
	return Capability{Name: name, Version: version}
}
