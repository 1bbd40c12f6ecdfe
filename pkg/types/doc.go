/*
Package types defines the shared data model for Burrow.

A Query is one telemetry record: timestamp, record type, outcome status,
reply type, and index references into the client and domain dimension
tables. Clients and Domains are ever-growing aggregates whose rolling
counts move in lock-step with the query records that reference them: the
ingest path increments them, the retention engine decrements them when the
referencing records expire, and nothing else touches them.

The status classification table (QueryStatus.Blocked) is deliberately the
only place that decides whether a status counts as blocked. Both sides of
the counter lifecycle consult it, which is what keeps the global invariant
"every aggregate equals the sum over live records matching it" enforceable.
*/
package types
