// Package storage provides the bbolt-backed persistence tier: a window
// bucket mirroring the in-memory retention horizon, a long-term archive
// bucket, and a message log for resource-shortage notices. The Syncer
// drives periodic exports and deferred housekeeping.
package storage
