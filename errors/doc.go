// Package errors provides standardized error handling for the orchestration packages.
//
// # Overview
//
// Errors are classified into three classes: Transient (temporary, retryable),
// Invalid (bad input, caller error) and Fatal (unrecoverable configuration or
// data problems). On top of the classes the package defines the controller
// taxonomy, which callers match with errors.Is:
//
//   - ErrDuplicateIdentifier: a factory or process id is already registered
//   - ErrUnknownComponent: no factory is registered for a component id
//   - ErrUnknownProcess: no process is registered for a process id
//   - ErrInitializationFailed: a process could not be initialized, even after autoload
//   - ErrDescriptorNotFound: autoload found no descriptor for a component id
//   - ErrLoaderFailed: a descriptor exists but could not be opened, parsed or built
//   - ErrIncompatible: adjacent pipeline stages do not match
//
// MissingDependencyError carries the id a process needs; it matches
// ErrUnknownComponent so callers that only care about the kind can use errors.Is.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Component", "Method", "action")
//	errors.WrapInvalid(err, "Component", "Method", "action")
//	errors.WrapFatal(err, "Component", "Method", "action")
//
// Taxonomy sentinels are attached with Errorf so that context can be added
// without losing the kind:
//
//	return errors.WrapInvalid(errors.Errorf(errors.ErrUnknownComponent, "%q", id),
//	    "Pool", "Borrow", "component lookup")
package errors
