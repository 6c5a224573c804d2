// Package config loads and validates the controller configuration.
//
// Configuration is layered: built-in defaults, then each file added to the
// Loader in order (JSON, YAML or TOML, chosen by extension), then environment
// variables prefixed with CARROT2_ where nested keys are joined with an
// underscore:
//
//	CARROT2_POOL_MAX_IDLE=5
//	CARROT2_AUTOLOAD_ENABLED=true
//	CARROT2_NATS_URL=nats://localhost:4222
//
// A minimal YAML file:
//
//	pool:
//	  max_idle: 3
//	autoload:
//	  enabled: true
//	  paths: [descriptors]
//	components:
//	  - id: tokenizer
//	    kind: tokenizer
//	processes:
//	  - id: words
//	    name: Word frequencies
//	    stages: [source, tokenizer, frequency]
//
// Keys are case-insensitive, so component config keys should be snake_case.
package config
