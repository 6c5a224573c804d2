package descriptor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/gluonch/carrot2/component"
	"github.com/gluonch/carrot2/errors"
)

// LoaderError reports a descriptor that was found but could not be turned
// into a factory. It matches errors.ErrLoaderFailed.
type LoaderError struct {
	ID       string
	Location string
	Err      error
}

func (e *LoaderError) Error() string {
	if e.Location == "" {
		return fmt.Sprintf("load descriptor for %q: %v", e.ID, e.Err)
	}
	return fmt.Sprintf("load descriptor %s for %q: %v", e.Location, e.ID, e.Err)
}

// Unwrap returns the underlying error
func (e *LoaderError) Unwrap() error {
	return e.Err
}

// Is reports whether target is errors.ErrLoaderFailed
func (e *LoaderError) Is(target error) bool {
	return target == errors.ErrLoaderFailed
}

// Resolved is the outcome of a successful resolution
type Resolved struct {
	ID         string
	Factory    component.Factory
	Descriptor *Descriptor
	Location   string
}

// Resolver maps component identifiers to factories by loading descriptor
// files named "<id>.<extension>". Extensions are tried in loader order and the
// first existing file wins; a file that fails to load is an error and later
// extensions are not tried.
//
// Resolve is a pure lookup and never registers the factory.
type Resolver struct {
	locator Locator
	loaders []Loader
	kinds   *Kinds
	logger  *slog.Logger
	group   singleflight.Group
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithLoaders replaces the default loaders. Order is resolution priority.
func WithLoaders(loaders ...Loader) ResolverOption {
	return func(r *Resolver) {
		if len(loaders) > 0 {
			r.loaders = loaders
		}
	}
}

// WithLogger sets the resolver logger
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a resolver that finds descriptors through locator and
// builds them with kinds.
func NewResolver(locator Locator, kinds *Kinds, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		locator: locator,
		loaders: DefaultLoaders(),
		kinds:   kinds,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Candidates returns the file names tried for id, in order
func (r *Resolver) Candidates(id string) []string {
	names := make([]string, 0, len(r.loaders))
	for _, l := range r.loaders {
		names = append(names, id+"."+l.Extension())
	}
	return names
}

// Resolve finds and loads the descriptor for id. Concurrent calls for the
// same id share one lookup.
func (r *Resolver) Resolve(ctx context.Context, id string) (*Resolved, error) {
	v, err, _ := r.group.Do(id, func() (any, error) {
		return r.resolve(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Resolved), nil
}

func (r *Resolver) resolve(ctx context.Context, id string) (*Resolved, error) {
	if err := component.ValidateID(id); err != nil {
		return nil, errors.WrapInvalid(errors.Errorf(errors.ErrDescriptorNotFound, "%q: %v", id, err),
			"Resolver", "Resolve", "identifier validation")
	}

	for _, loader := range r.loaders {
		name := id + "." + loader.Extension()

		res, found, err := r.locator.Locate(ctx, name)
		if err != nil {
			return nil, loaderFailed(id, name, err)
		}
		if !found {
			continue
		}

		resolved, err := r.load(ctx, id, res, loader)
		if err != nil {
			r.logger.Warn("Failed to load component descriptor",
				"component", id, "location", res.Location(), "error", err)
			return nil, loaderFailed(id, res.Location(), err)
		}

		r.logger.Debug("Resolved component descriptor",
			"component", id, "location", res.Location(), "kind", resolved.Descriptor.Kind)
		return resolved, nil
	}

	return nil, errors.WrapInvalid(
		errors.Errorf(errors.ErrDescriptorNotFound, "%q (tried %s)", id, strings.Join(r.Candidates(id), ", ")),
		"Resolver", "Resolve", "descriptor lookup")
}

func loaderFailed(id, location string, err error) error {
	return errors.WrapFatal(&LoaderError{ID: id, Location: location, Err: err}, "Resolver", "Resolve", "descriptor loading")
}

func (r *Resolver) load(ctx context.Context, id string, res Resource, loader Loader) (*Resolved, error) {
	rc, err := res.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer rc.Close()

	doc, err := loader.Decode(rc)
	if err != nil {
		return nil, errors.Errorf(errors.ErrParsingFailed, "%s: %v", loader.Extension(), err)
	}

	d, err := Decode(doc)
	if err != nil {
		return nil, err
	}
	if d.ID != "" && d.ID != id {
		return nil, errors.Errorf(errors.ErrInvalidData, "descriptor declares id %q", d.ID)
	}

	kind, ok := r.kinds.Lookup(d.Kind)
	if !ok {
		return nil, errors.Errorf(errors.ErrInvalidData, "unknown kind %q", d.Kind)
	}

	factory, err := kind.Factory(d.Config)
	if err != nil {
		return nil, err
	}

	return &Resolved{
		ID:         id,
		Factory:    factory,
		Descriptor: d,
		Location:   res.Location(),
	}, nil
}
