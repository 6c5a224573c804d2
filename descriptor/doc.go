// Package descriptor resolves component identifiers to factories from
// descriptor files.
//
// A descriptor names a component kind and its configuration:
//
//	# stopwords.yaml
//	kind: stopwords
//	name: English stop words
//	config:
//	  words: [a, an, the]
//
// The Resolver looks for "<id>.json", "<id>.yaml", "<id>.yml" and
// "<id>.toml", in that order, through a Locator. DirLocator searches
// directories, KVLocator a JetStream key-value bucket, and MultiLocator chains
// several locators. The first file found is decoded, validated against the
// descriptor schema and against the kind's own config schema, and turned into
// a component.Factory by the kind's Builder.
//
// Resolution errors come in two flavours: errors.ErrDescriptorNotFound when
// no candidate exists, and a *LoaderError (matching errors.ErrLoaderFailed)
// when a candidate exists but cannot be loaded. A broken descriptor never
// falls through to a lower-priority extension.
package descriptor
