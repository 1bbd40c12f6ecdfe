package ratelimit

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/burrow-dns/burrow/pkg/arena"
	"github.com/burrow-dns/burrow/pkg/config"
	"github.com/burrow-dns/burrow/pkg/log"
	"github.com/burrow-dns/burrow/pkg/metrics"
)

// Reconciler ends or extends per-client rate limiting on every interval
// boundary. It runs on the housekeeping schedule, deliberately decoupled
// from the retention pass: rate limiting works on a much shorter interval
// than historical eviction.
type Reconciler struct {
	arena  *arena.Arena
	cfg    *config.Store
	logger zerolog.Logger

	lastReset atomic.Int64
}

// New creates a reconciler. The interval clock starts at construction.
func New(a *arena.Arena, cfg *config.Store) *Reconciler {
	r := &Reconciler{
		arena:  a,
		cfg:    cfg,
		logger: log.WithComponent("ratelimit"),
	}
	r.lastReset.Store(time.Now().Unix())
	return r
}

// Due reports whether the rate-limiting interval has elapsed. An
// interval of zero disables the reconciler entirely.
func (r *Reconciler) Due(now int64) bool {
	interval := r.cfg.Snapshot().RateLimit.Interval
	return interval > 0 && now-r.lastReset.Load() >= interval
}

// Reset walks every known client and either ends its rate limitation or
// keeps it blocked into the next interval, then zeroes the interval
// counter. The caller must hold the arena lock.
//
// A client that kept querying past the allowed maximum while blocked
// stays blocked; it is only unblocked once an entire interval passes
// with its count at or below the maximum.
func (r *Reconciler) Reset(now int64) {
	r.lastReset.Store(now)
	maxCount := r.cfg.Snapshot().RateLimit.Count

	stillLimited := 0
	for i := 0; i < r.arena.NumClients(); i++ {
		c := r.arena.Client(i)
		if c == nil {
			continue
		}

		if c.RateLimited {
			if c.RateLimit > maxCount {
				r.logger.Info().
					Str("client", c.IP).
					Uint("queries", c.RateLimit).
					Msg("still rate-limiting client, made additional queries")
				stillLimited++
			} else {
				r.logger.Info().
					Str("client", c.IP).
					Msg("ending rate-limitation of client")
				c.RateLimited = false
			}
		}

		// Counter restarts every interval, limited or not
		c.RateLimit = 0
	}

	metrics.RateLimitedClients.Set(float64(stillLimited))
}

// Turnaround returns how many seconds remain until a client that has
// made rateLimit queries stops being rate-limited. A configured count of
// zero means no limit is enforced and the turnaround is zero; without
// this guard a concurrent reconfiguration to zero would divide by zero.
func (r *Reconciler) Turnaround(now int64, rateLimit uint) int64 {
	rl := r.cfg.Snapshot().RateLimit
	if rl.Count == 0 {
		return 0
	}
	intervals := int64(rateLimit / rl.Count)
	remaining := rl.Interval*intervals - (now - r.lastReset.Load())
	if remaining < 0 {
		return 0
	}
	return remaining
}
