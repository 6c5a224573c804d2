package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/gluonch/carrot2/component"
	"github.com/gluonch/carrot2/descriptor"
	"github.com/gluonch/carrot2/errors"
	"github.com/gluonch/carrot2/metric"
	"github.com/gluonch/carrot2/process"
)

// Resolver finds factories for component identifiers that have none
// registered. *descriptor.Resolver implements it.
type Resolver interface {
	Resolve(ctx context.Context, id string) (*descriptor.Resolved, error)
}

// Controller owns the component registry and pool and the set of registered
// processes, and dispatches queries to processes. It is the component.Context
// every component and process is bound to.
type Controller struct {
	registry *component.Registry
	pool     *component.Pool
	checker  *component.Checker
	resolver Resolver
	autoload atomic.Bool

	logger  *slog.Logger
	metrics *metric.MetricsRegistry

	mu        sync.RWMutex
	processes map[string]process.Process
	order     []string
	pending   map[string]struct{}
}

// Option configures a Controller
type Option func(*options)

type options struct {
	maxIdle  int
	resolver Resolver
	autoload bool
	logger   *slog.Logger
	metrics  *metric.MetricsRegistry
}

// WithMaxIdle sets the per-component idle pool capacity
func WithMaxIdle(n int) Option {
	return func(o *options) { o.maxIdle = n }
}

// WithResolver sets the resolver used for autoloading
func WithResolver(r Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithAutoload sets the initial autoload flag
func WithAutoload(enabled bool) Option {
	return func(o *options) { o.autoload = enabled }
}

// WithLogger sets the controller logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics enables Prometheus metrics
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(o *options) { o.metrics = registry }
}

// New creates a controller with an empty registry. Autoload is off unless
// WithAutoload(true) is given.
func New(opts ...Option) *Controller {
	o := options{
		maxIdle: component.DefaultMaxIdle,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	c := &Controller{
		registry:  component.NewRegistry(),
		resolver:  o.resolver,
		logger:    o.logger.With("component", "controller"),
		metrics:   o.metrics,
		processes: make(map[string]process.Process),
		pending:   make(map[string]struct{}),
	}
	c.autoload.Store(o.autoload)
	c.pool = component.NewPool(c.registry,
		component.WithMaxIdle(o.maxIdle),
		component.WithContext(c),
		component.WithLogger(c.logger),
		component.WithMetrics(o.metrics),
	)
	c.checker = component.NewChecker(c)

	return c
}

// RegisterFactory associates a component identifier with a factory
func (c *Controller) RegisterFactory(id string, factory component.Factory) error {
	if err := c.registry.Register(id, factory); err != nil {
		return err
	}
	c.logger.Debug("Registered component factory", "id", id)
	return nil
}

// FactoryIDs returns all registered component identifiers, sorted
func (c *Controller) FactoryIDs() []string {
	return c.registry.IDs()
}

// IsRegistered implements component.Context
func (c *Controller) IsRegistered(id string) bool {
	return c.registry.IsRegistered(id)
}

// Borrow implements component.Borrower
func (c *Controller) Borrow(id string) (component.Component, error) {
	return c.pool.Borrow(id)
}

// Return implements component.Borrower
func (c *Controller) Return(id string, comp component.Component) {
	c.pool.Return(id, comp)
}

// PoolStats returns a snapshot of the component pool
func (c *Controller) PoolStats() map[string]component.PoolStats {
	return c.pool.Stats()
}

// SetAutoload enables or disables descriptor autoloading for subsequent
// AddProcess calls.
func (c *Controller) SetAutoload(enabled bool) {
	c.autoload.Store(enabled)
}

// Autoload reports whether descriptor autoloading is enabled
func (c *Controller) Autoload() bool {
	return c.autoload.Load()
}

// Compatible reports whether the output of component from can feed component to
func (c *Controller) Compatible(from, to string) (bool, error) {
	return c.checker.Compatible(from, to)
}

// Explain describes why from cannot feed to, or returns "" when it can
func (c *Controller) Explain(from, to string) (string, error) {
	return c.checker.Explain(from, to)
}

// AddProcess initializes p and registers it under id. When p reports a
// missing component and autoload is enabled, the controller resolves a
// descriptor for it, registers the resulting factory and initializes p again.
// Each missing identifier is attempted at most once per call.
//
// Factories registered by autoload stay registered even if the process
// ultimately fails to initialize.
func (c *Controller) AddProcess(ctx context.Context, id string, p process.Process) error {
	if id == "" || p == nil {
		return errors.WrapInvalid(errors.Errorf(errors.ErrInvalidData, "process id and process are required"),
			"Controller", "AddProcess", "argument validation")
	}

	c.mu.Lock()
	_, exists := c.processes[id]
	_, initializing := c.pending[id]
	if exists || initializing {
		c.mu.Unlock()
		return errors.WrapInvalid(errors.Errorf(errors.ErrDuplicateIdentifier, "process %q", id),
			"Controller", "AddProcess", "duplicate check")
	}
	c.pending[id] = struct{}{}
	c.mu.Unlock()

	err := c.initialize(ctx, id, p)

	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.pending, id)
	if err != nil {
		c.logger.Warn("Process initialization failed", "process", id, "error", err)
		return err
	}

	c.processes[id] = p
	c.order = append(c.order, id)
	if c.metrics != nil {
		c.metrics.CoreMetrics().RecordProcesses(len(c.processes))
	}
	c.logger.Info("Registered process", "process", id, "name", p.Name())
	return nil
}

func (c *Controller) initialize(ctx context.Context, id string, p process.Process) error {
	attempted := make(map[string]struct{})

	for {
		err := p.Initialize(c)
		if err == nil {
			return nil
		}

		missing, ok := errors.AsMissingDependency(err)
		if !ok {
			return initializationFailed(id, err)
		}
		if !c.autoload.Load() {
			return err
		}
		if _, seen := attempted[missing.ID]; seen {
			return initializationFailed(id, err)
		}
		attempted[missing.ID] = struct{}{}

		if lerr := c.load(ctx, missing.ID); lerr != nil {
			if errors.Is(lerr, errors.ErrDescriptorNotFound) {
				return initializationFailed(id, err)
			}
			return initializationFailed(id, errors.Join(err, lerr))
		}
	}
}

// load resolves a descriptor for id and registers its factory
func (c *Controller) load(ctx context.Context, id string) error {
	if c.resolver == nil {
		c.recordAutoload(id, "not_found")
		return errors.Errorf(errors.ErrDescriptorNotFound, "%q: no resolver configured", id)
	}

	resolved, err := c.resolver.Resolve(ctx, id)
	if err != nil {
		if errors.Is(err, errors.ErrDescriptorNotFound) {
			c.recordAutoload(id, "not_found")
			c.logger.Debug("No descriptor for missing component", "id", id)
		} else {
			c.recordAutoload(id, "loader_error")
			c.logger.Error("Failed to load component descriptor", "id", id, "error", err)
		}
		return err
	}

	if err := c.registry.Register(id, resolved.Factory); err != nil {
		// Another AddProcess registered the same identifier first
		if errors.Is(err, errors.ErrDuplicateIdentifier) {
			return nil
		}
		return err
	}

	c.recordAutoload(id, "loaded")
	c.logger.Info("Autoloaded component", "id", id, "location", resolved.Location)
	return nil
}

func (c *Controller) recordAutoload(id, outcome string) {
	if c.metrics != nil {
		c.metrics.CoreMetrics().RecordAutoload(id, outcome)
	}
}

func initializationFailed(processID string, cause error) error {
	err := fmt.Errorf("%w: process %q: %w", errors.ErrInitializationFailed, processID, cause)
	if errors.IsFatal(cause) {
		return errors.WrapFatal(err, "Controller", "AddProcess", "process setup")
	}
	return errors.WrapInvalid(err, "Controller", "AddProcess", "process setup")
}

// ProcessIDs returns registered process identifiers in registration order
func (c *Controller) ProcessIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// ProcessName returns the name of a registered process
func (c *Controller) ProcessName(id string) (string, error) {
	p, err := c.process(id, "ProcessName")
	if err != nil {
		return "", err
	}
	return p.Name(), nil
}

// ComponentName borrows an instance of id to read its name, returning it
// before this call completes.
func (c *Controller) ComponentName(id string) (string, error) {
	comp, err := c.pool.Borrow(id)
	if err != nil {
		return "", err
	}
	defer c.pool.Return(id, comp)
	return comp.Meta().Name, nil
}

func (c *Controller) process(id, method string) (process.Process, error) {
	c.mu.RLock()
	p, ok := c.processes[id]
	c.mu.RUnlock()

	if !ok {
		return nil, errors.WrapInvalid(errors.Errorf(errors.ErrUnknownProcess, "%q", id),
			"Controller", method, "process lookup")
	}
	return p, nil
}

// Query dispatches query to the process registered under processID with a
// fresh request context carrying params. The request context is disposed
// before Query returns, whether the process succeeds, fails or panics. Process
// errors are returned as produced.
func (c *Controller) Query(
	ctx context.Context, processID, query string, params map[string]any,
) (*process.ProcessingResult, error) {
	p, err := c.process(processID, "Query")
	if err != nil {
		return nil, err
	}

	rc := process.NewRequestContext(c, params)
	logger := c.logger.With("process", processID, "request_id", rc.ID())
	ctx = slogcontext.NewCtx(ctx, logger)

	start := time.Now()
	result, err := c.dispatch(ctx, p, rc, query)
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
	}
	if c.metrics != nil {
		c.metrics.CoreMetrics().RecordQuery(processID, status, duration)
	}

	if err != nil {
		logger.Debug("Query failed", "duration", duration, "error", err)
		return nil, err
	}

	logger.Debug("Query completed", "duration", duration)
	return process.NewProcessingResult(result, rc), nil
}

func (c *Controller) dispatch(
	ctx context.Context, p process.Process, rc *process.RequestContext, query string,
) (any, error) {
	defer rc.Dispose()
	return p.Query(ctx, rc, query)
}
