// Package text provides pipeline stages for simple term extraction from query
// text, registered as descriptor kinds:
//
//   - normalize: text -> text (lowercase, collapse whitespace)
//   - tokenizer: text -> tokens
//   - stopwords: tokens -> tokens, with an optional per-request "stopwords" parameter
//   - frequency: tokens -> term-frequencies, limited by config "top" or the "top" parameter
//
// A descriptor for a tokenizer that drops single letters:
//
//	kind: tokenizer
//	config:
//	  min_length: 2
//
// Stages record counters as request attributes ("tokens",
// "stopwords_removed", "distinct_terms").
package text
