package component

import (
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"sync"

	"github.com/gluonch/carrot2/errors"
	"github.com/gluonch/carrot2/metric"
)

// DefaultMaxIdle is the number of idle instances retained per identifier
const DefaultMaxIdle = 3

// PoolStats is a snapshot of the pool state for one identifier
type PoolStats struct {
	Idle      int   `json:"idle"`
	Active    int   `json:"active"`
	Created   int64 `json:"created"`
	Discarded int64 `json:"discarded"`
}

// Pool hands out component instances keyed by identifier. Idle instances are
// reused most recently returned first. At most MaxIdle idle instances are kept
// per identifier; surplus returns are discarded.
//
// Instance construction and Init run outside of any pool lock, so a slow
// factory never blocks borrowers of other identifiers.
type Pool struct {
	registry *Registry
	maxIdle  int
	ctx      Context
	logger   *slog.Logger
	metrics  *metric.Metrics

	mu      sync.Mutex
	entries map[string]*poolEntry
}

type poolEntry struct {
	mu        sync.Mutex
	idle      []Component
	active    int
	created   int64
	discarded int64
}

// PoolOption configures a Pool
type PoolOption func(*Pool)

// WithMaxIdle sets the per-identifier idle capacity. Negative values are ignored.
func WithMaxIdle(n int) PoolOption {
	return func(p *Pool) {
		if n >= 0 {
			p.maxIdle = n
		}
	}
}

// WithContext sets the Context new instances are initialized with. By default
// the pool itself is used.
func WithContext(ctx Context) PoolOption {
	return func(p *Pool) {
		if ctx != nil {
			p.ctx = ctx
		}
	}
}

// WithLogger sets the pool logger
func WithLogger(logger *slog.Logger) PoolOption {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics enables Prometheus pool metrics
func WithMetrics(registry *metric.MetricsRegistry) PoolOption {
	return func(p *Pool) {
		if registry != nil {
			p.metrics = registry.CoreMetrics()
		}
	}
}

// NewPool creates a pool over the factories of registry
func NewPool(registry *Registry, opts ...PoolOption) *Pool {
	p := &Pool{
		registry: registry,
		maxIdle:  DefaultMaxIdle,
		logger:   slog.Default(),
		entries:  make(map[string]*poolEntry),
	}
	p.ctx = p

	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxIdle returns the per-identifier idle capacity
func (p *Pool) MaxIdle() int {
	return p.maxIdle
}

// IsRegistered reports whether the underlying registry knows id
func (p *Pool) IsRegistered(id string) bool {
	return p.registry.IsRegistered(id)
}

// Borrow returns an initialized instance for id, reusing an idle one when
// available. Concurrent borrowers never receive the same instance.
func (p *Pool) Borrow(id string) (Component, error) {
	factory, ok := p.registry.Factory(id)
	if !ok {
		return nil, errors.WrapInvalid(errors.MissingDependency(id), "Pool", "Borrow", "factory lookup")
	}

	e := p.entry(id)

	e.mu.Lock()
	if n := len(e.idle); n > 0 {
		c := e.idle[n-1]
		e.idle[n-1] = nil
		e.idle = e.idle[:n-1]
		e.active++
		idle := len(e.idle)
		e.mu.Unlock()

		if p.metrics != nil {
			p.metrics.RecordBorrow(id, "idle")
			p.metrics.RecordIdle(id, idle)
		}
		return c, nil
	}
	e.mu.Unlock()

	c, err := p.create(id, factory)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.active++
	e.created++
	e.mu.Unlock()

	if p.metrics != nil {
		p.metrics.RecordBorrow(id, "created")
	}
	return c, nil
}

// Return gives an instance back to the pool. Returning an instance that is
// already idle is ignored. Instances beyond the idle capacity are discarded,
// as are instances of identifiers with no registered factory.
func (p *Pool) Return(id string, c Component) {
	if c == nil {
		return
	}
	if !p.registry.IsRegistered(id) {
		destroy(c)
		p.logger.Warn("Discarded instance of unregistered component", "component", id)
		return
	}

	e := p.entry(id)

	e.mu.Lock()
	if containsInstance(e.idle, c) {
		e.mu.Unlock()
		p.logger.Warn("Ignoring return of idle component instance", "component", id)
		return
	}
	if e.active > 0 {
		e.active--
	}

	retained := len(e.idle) < p.maxIdle
	if retained {
		e.idle = append(e.idle, c)
	} else {
		e.discarded++
	}
	idle := len(e.idle)
	e.mu.Unlock()

	outcome := "retained"
	if !retained {
		outcome = "discarded"
		destroy(c)
		p.logger.Debug("Discarded component instance", "component", id, "max_idle", p.maxIdle)
	}
	if p.metrics != nil {
		p.metrics.RecordReturn(id, outcome, idle)
	}
}

// Idle returns the number of idle instances held for id
func (p *Pool) Idle(id string) int {
	e, ok := p.lookup(id)
	if !ok {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.idle)
}

// Active returns the number of instances of id currently borrowed
func (p *Pool) Active(id string) int {
	e, ok := p.lookup(id)
	if !ok {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Stats returns a snapshot for every identifier the pool has served
func (p *Pool) Stats() map[string]PoolStats {
	p.mu.Lock()
	entries := maps.Clone(p.entries)
	p.mu.Unlock()

	stats := make(map[string]PoolStats, len(entries))
	for id, e := range entries {
		e.mu.Lock()
		stats[id] = PoolStats{
			Idle:      len(e.idle),
			Active:    e.active,
			Created:   e.created,
			Discarded: e.discarded,
		}
		e.mu.Unlock()
	}
	return stats
}

func (p *Pool) entry(id string) *poolEntry {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[id]
	if !ok {
		e = &poolEntry{}
		p.entries[id] = e
	}
	return e
}

func (p *Pool) lookup(id string) (*poolEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[id]
	return e, ok
}

func (p *Pool) create(id string, factory Factory) (Component, error) {
	c, err := factory()
	if err != nil {
		return nil, errors.WrapFatal(err, "Pool", "Borrow", fmt.Sprintf("component %q construction", id))
	}
	if c == nil {
		return nil, errors.WrapFatal(fmt.Errorf("factory returned nil"),
			"Pool", "Borrow", fmt.Sprintf("component %q construction", id))
	}

	if err := c.Init(p.ctx); err != nil {
		destroy(c)
		return nil, errors.WrapFatal(err, "Pool", "Borrow", fmt.Sprintf("component %q initialization", id))
	}

	p.logger.Debug("Created component instance", "component", id, "name", c.Meta().Name)
	return c, nil
}

// containsInstance reports whether the pointer c is already idle. Value-typed
// components have no identity, so equal values are distinct instances.
func containsInstance(idle []Component, c Component) bool {
	if reflect.TypeOf(c).Kind() != reflect.Pointer {
		return false
	}
	for _, candidate := range idle {
		if candidate == c {
			return true
		}
	}
	return false
}

func destroy(c Component) {
	if d, ok := c.(Destroyer); ok {
		d.Destroy()
	}
}
