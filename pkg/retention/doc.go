/*
Package retention implements the garbage-collection core.

A pass moves through four states (idle, scanning, reversing, compacting)
and always terminates. The scan walks the arena from the oldest record
forward and stops at the first record at or past the retention cutoff;
append-time ordering guarantees that everything before the stop is the
complete expired set. Reversal then subtracts each expired record from
every aggregate it was counted in, using the status classification table
and the reset-to-unknown tally dance to keep the per-status counters
exact. Compaction finally slides the survivors down and the bucket window
forward.

The lock choreography is two-phase on purpose: scan and reverse under the
arena lock, release it for the on-disk delete, re-acquire for the
compaction. The disk tier is the only slow collaborator, and it must
never extend the time the live query path spends blocked.

Flush mode (Engine.Flush) serves destructive resets: cutoff is "now"
without bucket alignment, every record is evicted regardless of
timestamp, and no locks are taken because the caller already holds
exclusive access.
*/
package retention
