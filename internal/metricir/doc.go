// Package metricir declares per-user integer metrics as data.
//
// A metric is a sealed tree: an Aggregate (COUNT, SUM or ABS-SUM over one
// table) or a Column (one value from one row), filtered by predicates. The
// subject user is never a literal; predicates reference it with
// SubjectEquals and backends bind it at execution time.
//
// The metricsql package compiles metrics to parameterized SQLite SQL. Keeping
// the definitions backend-neutral lets the field registry describe most of
// its resolvers as a table instead of code.
package metricir
