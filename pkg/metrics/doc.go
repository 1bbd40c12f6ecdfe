/*
Package metrics exposes Burrow's Prometheus collectors.

Collectors are package-level variables registered once in init and
updated directly by the owning subsystem: the retention engine drives the
eviction counters, the resource monitor the shortage counters, the
housekeeper the CPU gauge, and the storage syncer the archive gauges.
The promhttp handler is mounted on the API server under /metrics.
*/
package metrics
