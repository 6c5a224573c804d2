// Package process defines processes, the units a controller dispatches
// queries to, together with the per-request state they run against.
//
// A Process is initialized once against the controller's component.Context
// and then queried many times. Each query gets a fresh RequestContext that
// borrows components on behalf of the request; when the query finishes the
// controller disposes the context, which returns every component the process
// still holds.
//
// Pipeline is the stock Process: a chain of Stage components where each
// stage's output feeds the next one.
//
//	p := process.NewPipeline("clustering", "tokenizer", "stopwords", "frequency")
//	if err := ctrl.AddProcess(ctx, "clustering", p); err != nil {
//		return err
//	}
package process
