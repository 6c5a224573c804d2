// Package carrot2 is a local orchestration layer for query pipelines built
// from reusable, possibly expensive to construct components.
//
// # Architecture
//
// A controller owns three registries:
//
//   - component factories, keyed by identifier (component.Registry)
//   - pooled component instances, keyed by the same identifier (component.Pool)
//   - processes, the named pipelines queries are dispatched to (controller.Controller)
//
// Components are created by factories, bound to the controller once through
// Init and then borrowed and returned around every use. The pool keeps up to
// three idle instances per identifier; extra returns are discarded.
//
// A process that needs a component nobody registered can still be added when
// autoload is on. The controller asks a descriptor.Resolver for a descriptor
// file named after the missing identifier, trying the json, yaml, yml and
// toml extensions in that order, builds a factory from the descriptor's kind
// and retries initialization:
//
//	descriptors/
//	    tokenizer.yaml   kind: tokenizer, config: {min_length: 2}
//	    frequency.json   {"kind": "frequency", "config": {"top": 10}}
//
// Descriptors can also live in a NATS JetStream key-value bucket
// (descriptor.KVLocator over natsclient).
//
// Before two components are chained, component.Checker compares the
// upstream outputs with the downstream inputs. Inputs may carry semver
// constraints and an exact or superset match policy.
//
// # Queries
//
// Each query gets a fresh process.RequestContext. Components borrowed through
// it are returned when the query ends, on success, failure or panic.
//
// # Packages
//
//   - errors: classified errors and the controller error taxonomy
//   - component: component contract, capabilities, registry, pool, checker
//   - process: process contract, request context, pipeline
//   - descriptor: descriptor loaders, locators, kind catalog, resolver
//   - controller: the controller
//   - processor/text: built-in text stages (normalize, tokenizer, stopwords, frequency)
//   - componentregistry: registers the built-in kinds
//   - config: viper-based configuration
//   - metric, health: Prometheus metrics and health statuses
//   - natsclient: NATS connection and key-value buckets
//   - pkg/retry: backoff for transient failures
//   - cmd/carrot2: command line tool
package carrot2
