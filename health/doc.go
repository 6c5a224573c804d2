// Package health provides health statuses for the controller and its parts.
//
// A Status is healthy, degraded or unhealthy and may carry sub-statuses.
// Aggregate folds sub-statuses into a parent status: any unhealthy child makes
// the parent unhealthy, otherwise any degraded child makes it degraded.
//
//	subs := []health.Status{
//		health.NewHealthy("tokenizer", "idle=2 active=0"),
//		health.FromError("descriptor-store", err),
//	}
//	status := health.Aggregate("controller", subs)
//
// FromError sanitizes error text (URLs, paths, addresses, credentials) before
// it is placed in a status message.
package health
