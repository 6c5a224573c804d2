package component

// Metadata describes a component instance
type Metadata struct {
	Name        string `json:"name"`
	Kind        string `json:"kind,omitempty"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
}

// Component is a reusable unit of processing logic. Instances are created by
// a Factory, bound to a Context exactly once through Init and then handed out
// by a Pool.
type Component interface {
	// Meta returns the component's descriptive metadata
	Meta() Metadata

	// Capabilities describes what the component consumes and produces
	Capabilities() Capabilities

	// Init binds the instance to the orchestration context. It is called once,
	// right after construction and before the first borrow.
	Init(ctx Context) error
}

// Destroyer is implemented by components that hold resources which must be
// released when the pool discards an instance.
type Destroyer interface {
	Destroy()
}

// Factory constructs a new, uninitialized component instance
type Factory func() (Component, error)

// Borrower hands out component instances keyed by identifier. Every
// successful Borrow must be paired with a Return of the same instance.
type Borrower interface {
	Borrow(id string) (Component, error)
	Return(id string, c Component)
}

// Context is the orchestration state components and processes are bound to.
type Context interface {
	Borrower

	// IsRegistered reports whether a factory exists for id
	IsRegistered(id string) bool
}

// Base is an embeddable Component implementation holding static metadata and
// capabilities. It records the Context passed to Init.
type Base struct {
	meta Metadata
	caps Capabilities
	ctx  Context
}

// NewBase creates a Base with the given metadata and capabilities
func NewBase(meta Metadata, caps Capabilities) Base {
	return Base{meta: meta, caps: caps}
}

// Meta implements Component
func (b *Base) Meta() Metadata {
	return b.meta
}

// Capabilities implements Component
func (b *Base) Capabilities() Capabilities {
	return b.caps
}

// Init implements Component
func (b *Base) Init(ctx Context) error {
	b.ctx = ctx
	return nil
}

// BoundContext returns the Context the component was initialized with, or nil
// before Init.
func (b *Base) BoundContext() Context {
	return b.ctx
}
