/*
Package arena implements the fixed-capacity shared record store.

The arena is a contiguous array of query records with a live-count cursor,
plus the client and domain dimension tables and the global counters that
must stay consistent with the records. Everything sits behind one
exclusive mutex (readers and writers both exclude each other) because
the consistency contract spans multiple structures: a record and all of
its counter contributions must always be observed together.

Records are append-only at the tail with non-decreasing timestamps
(Append clamps to enforce this). That ordering is load-bearing: the
retention engine identifies the entire expired prefix with a single
forward scan and compacts the array in place with a memmove-style copy.

Indices into the query array are only stable between compactions; the
per-record ID is stable forever and is what the on-disk archive keys by.
*/
package arena
