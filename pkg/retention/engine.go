package retention

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/burrow-dns/burrow/pkg/arena"
	"github.com/burrow-dns/burrow/pkg/config"
	"github.com/burrow-dns/burrow/pkg/log"
	"github.com/burrow-dns/burrow/pkg/metrics"
	"github.com/burrow-dns/burrow/pkg/overtime"
	"github.com/burrow-dns/burrow/pkg/types"
)

// Sink is the on-disk persistence collaborator. DeleteOlderThan removes
// archived records with timestamps strictly before cutoff; with
// bestEffort set, failures are reported but the caller proceeds; the
// in-memory and on-disk tiers are allowed to drift until the next pass.
type Sink interface {
	DeleteOlderThan(cutoff int64, bestEffort bool) (int, error)
}

// Engine is the garbage-collection core: it decides which records expire,
// reverses their aggregate contributions, and compacts the arena.
type Engine struct {
	arena   *arena.Arena
	buckets *overtime.Buckets
	sink    Sink
	cfg     *config.Store
	logger  zerolog.Logger

	force        atomic.Bool
	housekeeping atomic.Bool
	lastRun      atomic.Int64
}

// New creates a retention engine over the given arena and bucket window.
// sink may be nil when no persistence tier is attached.
func New(a *arena.Arena, b *overtime.Buckets, sink Sink, cfg *config.Store) *Engine {
	e := &Engine{
		arena:   a,
		buckets: b,
		sink:    sink,
		cfg:     cfg,
		logger:  log.WithComponent("retention"),
	}
	// Align the first run with the GC interval, like every later one
	now := time.Now().Unix()
	e.lastRun.Store(now - now%cfg.Snapshot().GC.Interval)
	return e
}

// Cutoff computes the oldest timestamp that may remain after a pass
// starting at now. Normal runs subtract the GC delay and the configured
// history window, then align down to the bucket width so the oldest
// surviving bucket is never partial. Flush mode is an unaligned,
// immediate collapse to now.
func (e *Engine) Cutoff(now int64, flush bool) int64 {
	if flush {
		return now
	}
	gc := e.cfg.Snapshot().GC
	cutoff := now - gc.Delay - gc.MaxHistory
	cutoff -= cutoff % gc.Interval
	return cutoff
}

// Due reports whether a pass should run: either the interval elapsed
// since the last run, or something set the force flag.
func (e *Engine) Due(now int64) bool {
	gc := e.cfg.Snapshot().GC
	return now-gc.Delay-e.lastRun.Load() >= gc.Interval || e.force.Load()
}

// ForceGC requests a pass on the housekeeper's next wake. Used by
// data-altering operations that need the retention state fresh.
func (e *Engine) ForceGC() {
	e.force.Store(true)
}

// TakeHousekeepingDue returns and clears the deferred disk-maintenance
// flag. The storage syncer polls this after each pass.
func (e *Engine) TakeHousekeepingDue() bool {
	return e.housekeeping.Swap(false)
}

// Flush wipes the entire retention window immediately: no locking, no
// bucket alignment, every record evicted. The caller must already hold
// the arena lock and be the only writer: this is the destructive-reset
// path, not a shortcut.
func (e *Engine) Flush(now int64) int {
	return e.run(now, true)
}

// Run performs one normal retention pass.
func (e *Engine) Run(now int64) int {
	return e.run(now, false)
}

func (e *Engine) run(now int64, flush bool) int {
	started := time.Now()
	e.force.Store(false)

	gc := e.cfg.Snapshot().GC
	e.lastRun.Store(now - gc.Delay - (now-gc.Delay)%gc.Interval)

	cutoff := e.Cutoff(now, flush)

	// Phase: scanning + reversing. Holding the lock here keeps every
	// record's counter contributions observable as a unit.
	if !flush {
		e.arena.Lock()
	}

	removed := 0
	counters := e.arena.CountersRef()
	for i := 0; i < e.arena.NumQueries(); i++ {
		q := e.arena.Query(i)
		if q == nil {
			continue
		}

		// Records are time-ordered, so the first record at or past the
		// cutoff ends the expired prefix. Flush evicts unconditionally.
		if !flush && q.Timestamp >= cutoff {
			break
		}

		blocked := q.Status.Blocked()

		e.buckets.Sub(q.Timestamp, blocked)

		if c := e.arena.Client(q.ClientID); c != nil {
			c.Count--
			if blocked {
				c.BlockedCount--
			}
		}
		if d := e.arena.Domain(q.DomainID); d != nil {
			d.Count--
			if blocked {
				d.BlockedCount--
			}
		}

		counters.Reply[q.Reply]--
		counters.Type[q.Type]--

		// Subtract UNKNOWN unconditionally before resetting the status.
		// For any other status, the minus here and the plus inside
		// SetStatus cancel, leaving a net -1 on the old status and 0 on
		// UNKNOWN. For a record already at UNKNOWN, SetStatus is a
		// no-op and the minus here is the eviction itself.
		counters.Status[types.StatusUnknown]--
		e.arena.SetStatus(q, types.StatusUnknown)

		removed++
	}

	// Phase: persistence-tier delete. The disk can be slow; never make
	// the query path wait on it.
	if !flush {
		e.arena.Unlock()
	}
	if e.sink != nil {
		if _, err := e.sink.DeleteOlderThan(cutoff, true); err != nil {
			e.logger.Error().Err(err).Int64("cutoff", cutoff).Msg("persistence delete failed")
		}
	}
	if !flush {
		e.arena.Lock()
	}

	// Phase: compacting. Zero expired records skips the move entirely
	// but the bucket window check still runs.
	if removed > 0 {
		e.arena.Compact(removed)
	}
	e.buckets.Slide(cutoff)

	live := e.arena.NumQueries()
	if !flush {
		e.arena.Unlock()
	}

	// Let the storage syncer vacuum the archive outside any lock
	e.housekeeping.Store(true)

	metrics.QueriesLive.Set(float64(live))
	metrics.QueriesEvicted.Add(float64(removed))
	metrics.GCRuns.Inc()
	metrics.GCDuration.Observe(time.Since(started).Seconds())

	e.logger.Debug().
		Int64("cutoff", cutoff).
		Int("removed", removed).
		Int("live", live).
		Bool("flush", flush).
		Dur("took", time.Since(started)).
		Msg("retention pass finished")

	return removed
}
