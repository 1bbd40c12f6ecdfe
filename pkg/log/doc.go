/*
Package log provides structured logging for Burrow using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers and configurable log levels. All logs include
timestamps and support filtering by severity level for production debugging.

Context loggers attach recurring fields once:

	logger := log.WithComponent("retention")
	logger.Info().Int("removed", n).Msg("GC pass finished")

Burrow is a long-running daemon; every background loop (housekeeper, storage
syncer, API server) owns a component logger so a single query storm or GC pass
can be traced across subsystems from the combined output.
*/
package log
