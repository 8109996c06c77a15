// Package fields maps query field names to per-user integer resolvers.
//
// A Registry is built once and passed to the query parser and evaluator.
// It holds the static fields, declared as metricir metrics or as small Go
// functions, and binds item_<id> fields lazily against the reward catalog.
// Unknown names always fail with ErrUnknownField; no name resolves to a
// default value.
package fields
