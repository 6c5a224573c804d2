// Package controller implements the local pipeline controller: it owns the
// component factory registry and instance pool, keeps the registered
// processes and dispatches queries to them.
//
// # Registering processes
//
// AddProcess initializes a process against the controller and registers it
// under an identifier. A process whose Initialize reports a missing component
// (errors.MissingDependencyError) fails immediately unless autoload is
// enabled, in which case the controller asks its Resolver for a descriptor,
// registers the resulting factory and initializes the process again:
//
//	resolver := descriptor.NewResolver(descriptor.NewDirLocator("descriptors"), kinds)
//	ctrl := controller.New(controller.WithResolver(resolver), controller.WithAutoload(true))
//
//	err := ctrl.AddProcess(ctx, "clustering", process.NewPipeline("Clustering", "tokenizer", "frequency"))
//	switch {
//	case errors.Is(err, errors.ErrLoaderFailed):
//		// a descriptor exists but is broken
//	case errors.Is(err, errors.ErrInitializationFailed):
//		// no descriptor, or the process failed for another reason
//	}
//
// # Queries
//
// Query runs a registered process with a fresh process.RequestContext. The
// context is disposed when the process returns, fails or panics, so every
// component borrowed through it goes back to the pool. The context passed to
// the process carries a request-scoped slog logger, retrievable with
// slogcontext.FromCtx.
//
// # Thread Safety
//
// All Controller methods are safe for concurrent use. Concurrent AddProcess
// calls for the same identifier succeed at most once.
package controller
