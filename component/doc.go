// Package component provides the component infrastructure of the controller:
// the factory Registry, the keyed instance Pool and the capability Checker.
//
// # Overview
//
// A component is a reusable unit of processing logic identified by a string
// identifier. Factories are registered once per identifier and never replaced:
//
//	registry := component.NewRegistry()
//	err := registry.Register("tokenizer", func() (component.Component, error) {
//		return tokenizer.New(), nil
//	})
//
// # Pooling
//
// The Pool hands out instances per identifier. An instance is constructed by
// its factory and initialized with the pool's Context exactly once. Returned
// instances are kept on a per-identifier free list (most recently returned
// first) bounded by MaxIdle; surplus returns are discarded and, when the
// component implements Destroyer, destroyed.
//
//	c, err := pool.Borrow("tokenizer")
//	if err != nil {
//		return err
//	}
//	defer pool.Return("tokenizer", c)
//
// Two concurrent borrowers never receive the same instance. Construction of
// a new instance happens outside of the pool locks.
//
// # Capabilities
//
// Every component declares the capabilities it consumes and produces.
// Output versions are semantic versions and input versions are constraints
// (">=1.2", "~2.0"). MatchSuperset accepts an upstream offering at least the
// required inputs; MatchExact additionally rejects unexpected outputs.
//
// The Checker borrows one instance of each side, compares capabilities and
// returns both instances before reporting:
//
//	checker := component.NewChecker(pool)
//	explanation, err := checker.Explain("tokenizer", "stemmer")
//	if explanation != "" {
//		log.Printf("incompatible: %s", explanation)
//	}
//
// # Thread Safety
//
// Registry, Pool and Checker are safe for concurrent use.
package component
