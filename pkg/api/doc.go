// Package api serves the HTTP/JSON telemetry and control surface:
// summary statistics, time-bucketed history, top lists, persisted
// messages, and the gc/flush actions.
package api
