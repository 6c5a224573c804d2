package process

import (
	"context"

	"github.com/gluonch/carrot2/component"
)

// Process is a named processing pipeline registered with a controller
type Process interface {
	// Name returns a human readable process name
	Name() string

	// Initialize prepares the process against the controller context. A
	// process that needs a component with no registered factory must fail with
	// an error wrapping errors.MissingDependencyError so the controller can
	// try to autoload it.
	Initialize(ctx component.Context) error

	// Query runs the process for a single request. Components should be
	// borrowed through rc so that they are returned when the request ends.
	Query(ctx context.Context, rc *RequestContext, query string) (any, error)
}

// ProcessingResult is the immutable outcome of a successful query
type ProcessingResult struct {
	result any
	rc     *RequestContext
}

// NewProcessingResult pairs a result with the request context that produced it
func NewProcessingResult(result any, rc *RequestContext) *ProcessingResult {
	return &ProcessingResult{result: result, rc: rc}
}

// Result returns the value produced by the process
func (r *ProcessingResult) Result() any {
	return r.result
}

// Context returns the disposed request context. Its attributes hold the
// state recorded while processing.
func (r *ProcessingResult) Context() *RequestContext {
	return r.rc
}

// Func adapts a function into a Process. Requires lists the component
// identifiers that must be registered before the process can initialize.
type Func struct {
	ProcessName string
	Requires    []string
	Fn          func(ctx context.Context, rc *RequestContext, query string) (any, error)
}

// Name implements Process
func (f *Func) Name() string {
	return f.ProcessName
}

// Initialize implements Process
func (f *Func) Initialize(ctx component.Context) error {
	return RequireRegistered(ctx, f.Requires...)
}

// Query implements Process
func (f *Func) Query(ctx context.Context, rc *RequestContext, query string) (any, error) {
	return f.Fn(ctx, rc, query)
}
