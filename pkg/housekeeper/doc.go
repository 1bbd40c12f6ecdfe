// Package housekeeper runs the once-per-second scheduler that drives
// config reloads, rate-limit reconciliation, resource checks, and the
// retention engine.
package housekeeper
