package process

import (
	"fmt"
	"maps"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"github.com/gluonch/carrot2/component"
	"github.com/gluonch/carrot2/errors"
)

// ErrContextDisposed is returned when borrowing through a disposed RequestContext
var ErrContextDisposed = errors.New("request context disposed")

type borrowed struct {
	id string
	c  component.Component
}

// RequestContext is the per-query state handed to a process. Components
// borrowed through it are tracked and returned on Dispose if the process did
// not return them itself.
type RequestContext struct {
	id       string
	borrower component.Borrower
	params   map[string]any

	mu         sync.Mutex
	attributes map[string]any
	borrowed   []borrowed
	hooks      []func()
	disposed   bool
	once       sync.Once
}

// NewRequestContext creates a context that borrows through b. params is copied.
func NewRequestContext(b component.Borrower, params map[string]any) *RequestContext {
	p := make(map[string]any, len(params))
	maps.Copy(p, params)

	return &RequestContext{
		id:         uuid.NewString(),
		borrower:   b,
		params:     p,
		attributes: make(map[string]any),
	}
}

// ID returns the request identifier
func (rc *RequestContext) ID() string {
	return rc.id
}

// Params returns a copy of the request parameters
func (rc *RequestContext) Params() map[string]any {
	return maps.Clone(rc.params)
}

// Param returns a single request parameter
func (rc *RequestContext) Param(key string) (any, bool) {
	v, ok := rc.params[key]
	return v, ok
}

// StringParam returns a parameter as a string, or def when absent
func (rc *RequestContext) StringParam(key, def string) string {
	v, ok := rc.params[key]
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// SetAttribute stores a value produced while processing the request
func (rc *RequestContext) SetAttribute(key string, value any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.attributes[key] = value
}

// Attribute returns a value stored with SetAttribute
func (rc *RequestContext) Attribute(key string) (any, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	v, ok := rc.attributes[key]
	return v, ok
}

// Attributes returns a copy of all attributes. Attributes stay readable after
// Dispose.
func (rc *RequestContext) Attributes() map[string]any {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return maps.Clone(rc.attributes)
}

// Borrow borrows a component on behalf of the request
func (rc *RequestContext) Borrow(id string) (component.Component, error) {
	rc.mu.Lock()
	if rc.disposed {
		rc.mu.Unlock()
		return nil, errors.WrapInvalid(ErrContextDisposed, "RequestContext", "Borrow", "disposal check")
	}
	rc.mu.Unlock()

	c, err := rc.borrower.Borrow(id)
	if err != nil {
		return nil, err
	}

	rc.mu.Lock()
	if rc.disposed {
		rc.mu.Unlock()
		rc.borrower.Return(id, c)
		return nil, errors.WrapInvalid(ErrContextDisposed, "RequestContext", "Borrow", "disposal check")
	}
	rc.borrowed = append(rc.borrowed, borrowed{id: id, c: c})
	rc.mu.Unlock()

	return c, nil
}

// Return gives a component borrowed through this context back early
func (rc *RequestContext) Return(id string, c component.Component) {
	if c == nil {
		return
	}

	rc.mu.Lock()
	i := rc.indexOf(id, c)
	if i < 0 {
		rc.mu.Unlock()
		return
	}
	rc.borrowed = append(rc.borrowed[:i], rc.borrowed[i+1:]...)
	rc.mu.Unlock()

	rc.borrower.Return(id, c)
}

// Outstanding returns the number of components not yet returned
func (rc *RequestContext) Outstanding() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.borrowed)
}

// OnDispose registers fn to run when the context is disposed. Hooks run in
// reverse registration order, after outstanding components are returned.
func (rc *RequestContext) OnDispose(fn func()) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.hooks = append(rc.hooks, fn)
}

// Dispose returns every outstanding component and runs the disposal hooks.
// Only the first call has an effect.
func (rc *RequestContext) Dispose() {
	rc.once.Do(func() {
		rc.mu.Lock()
		rc.disposed = true
		outstanding := rc.borrowed
		rc.borrowed = nil
		hooks := rc.hooks
		rc.hooks = nil
		rc.mu.Unlock()

		for i := len(outstanding) - 1; i >= 0; i-- {
			rc.borrower.Return(outstanding[i].id, outstanding[i].c)
		}
		for i := len(hooks) - 1; i >= 0; i-- {
			hooks[i]()
		}
	})
}

// Disposed reports whether Dispose has been called
func (rc *RequestContext) Disposed() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.disposed
}

// indexOf finds the tracked borrow for c. Instances of non-comparable types
// are matched by identifier only. Caller must hold rc.mu.
func (rc *RequestContext) indexOf(id string, c component.Component) int {
	comparable := reflect.TypeOf(c).Comparable()
	for i, b := range rc.borrowed {
		if b.id != id {
			continue
		}
		if !comparable {
			return i
		}
		if reflect.TypeOf(b.c) == reflect.TypeOf(c) && b.c == c {
			return i
		}
	}
	return -1
}
