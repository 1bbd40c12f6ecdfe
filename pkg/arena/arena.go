package arena

import (
	"errors"
	"sync"

	"github.com/burrow-dns/burrow/pkg/types"
)

// ErrCapacityExceeded is returned by Append when the arena is full. The
// caller decides whether to grow a replacement arena or drop the record.
var ErrCapacityExceeded = errors.New("arena capacity exceeded")

// Counters are the process-wide scalar tallies. Summing Status equals the
// live record count at all times; the same holds for Reply and Type.
type Counters struct {
	Queries int
	Status  [types.StatusMax]int
	Reply   [types.ReplyMax]int
	Type    [types.TypeMax]int
}

// Blocked sums the per-status tallies that classify as blocked.
func (c *Counters) Blocked() int {
	blocked := 0
	for s := types.QueryStatus(0); s < types.StatusMax; s++ {
		if s.Blocked() {
			blocked += c.Status[s]
		}
	}
	return blocked
}

// Arena is the fixed-capacity shared record store. Queries live in a
// contiguous array with a live-count cursor; clients and domains are
// append-only dimension tables.
//
// One exclusive lock protects everything. Any method other than New,
// Lock and Unlock requires the caller to hold the lock; traversals that
// span more than one record must not release it in between.
type Arena struct {
	mu sync.Mutex

	queries    []types.Query // len == capacity, [0:numQueries) live
	numQueries int
	nextID     uint64
	lastStamp  int64

	clients   []types.Client
	clientIdx map[string]int

	domains   []types.Domain
	domainIdx map[string]int

	counters Counters
}

// New creates an arena holding at most maxQueries records.
func New(maxQueries int) *Arena {
	return &Arena{
		queries:   make([]types.Query, maxQueries),
		clientIdx: make(map[string]int),
		domainIdx: make(map[string]int),
	}
}

// Lock acquires the exclusive arena lock.
func (a *Arena) Lock() { a.mu.Lock() }

// Unlock releases the exclusive arena lock.
func (a *Arena) Unlock() { a.mu.Unlock() }

// Append adds a record at the tail, assigns its ID and updates every
// aggregate the record participates in: global counters, the owning
// client's rolling and rate-limit counters, and the owning domain's
// rolling counters.
//
// Timestamps are clamped to be non-decreasing. The retention engine
// relies on a single forward scan finding the entire expired prefix, so
// the append path must never produce out-of-order records even when the
// wall clock steps backwards.
func (a *Arena) Append(q types.Query) (int, error) {
	if a.numQueries >= len(a.queries) {
		return -1, ErrCapacityExceeded
	}

	if q.Timestamp < a.lastStamp {
		q.Timestamp = a.lastStamp
	} else {
		a.lastStamp = q.Timestamp
	}

	q.ID = a.nextID
	a.nextID++

	idx := a.numQueries
	a.queries[idx] = q
	a.numQueries++

	a.counters.Queries++
	a.counters.Status[q.Status]++
	a.counters.Reply[q.Reply]++
	a.counters.Type[q.Type]++

	blocked := q.Status.Blocked()
	if c := a.Client(q.ClientID); c != nil {
		c.Count++
		c.RateLimit++
		if blocked {
			c.BlockedCount++
		}
	}
	if d := a.Domain(q.DomainID); d != nil {
		d.Count++
		if blocked {
			d.BlockedCount++
		}
	}

	return idx, nil
}

// NumQueries returns the live record count.
func (a *Arena) NumQueries() int { return a.numQueries }

// Capacity returns the maximum record count.
func (a *Arena) Capacity() int { return len(a.queries) }

// Query returns the record at index i, or nil if i is out of bounds.
// The pointer is only valid while the lock is held and until the next
// compaction.
func (a *Arena) Query(i int) *types.Query {
	if i < 0 || i >= a.numQueries {
		return nil
	}
	return &a.queries[i]
}

// Client returns the client aggregate at index i, or nil if out of bounds.
func (a *Arena) Client(i int) *types.Client {
	if i < 0 || i >= len(a.clients) {
		return nil
	}
	return &a.clients[i]
}

// Domain returns the domain aggregate at index i, or nil if out of bounds.
func (a *Arena) Domain(i int) *types.Domain {
	if i < 0 || i >= len(a.domains) {
		return nil
	}
	return &a.domains[i]
}

// NumClients returns the number of known clients.
func (a *Arena) NumClients() int { return len(a.clients) }

// NumDomains returns the number of known domains.
func (a *Arena) NumDomains() int { return len(a.domains) }

// RegisterClient returns the index for ip, creating the aggregate on
// first sight. Clients are never removed.
func (a *Arena) RegisterClient(ip string) int {
	if idx, ok := a.clientIdx[ip]; ok {
		return idx
	}
	a.clients = append(a.clients, types.Client{IP: ip})
	idx := len(a.clients) - 1
	a.clientIdx[ip] = idx
	return idx
}

// RegisterDomain returns the index for name, creating the aggregate on
// first sight. Domains are never removed.
func (a *Arena) RegisterDomain(name string) int {
	if idx, ok := a.domainIdx[name]; ok {
		return idx
	}
	a.domains = append(a.domains, types.Domain{Name: name})
	idx := len(a.domains) - 1
	a.domainIdx[name] = idx
	return idx
}

// SetStatus moves q from its current status to status, keeping the
// per-status tallies balanced: exactly one decrement for the old status
// and one increment for the new one, regardless of what either is.
func (a *Arena) SetStatus(q *types.Query, status types.QueryStatus) {
	if q.Status == status {
		return
	}
	a.counters.Status[q.Status]--
	a.counters.Status[status]++
	q.Status = status
}

// Compact moves the surviving suffix [removed, numQueries) down to offset
// zero, preserving relative order, zero-fills the freed tail and adjusts
// the live counter. The ranges overlap; copy handles that like memmove.
// Cost is O(records moved), not O(capacity of the arena).
func (a *Arena) Compact(removed int) {
	if removed <= 0 {
		return
	}
	if removed > a.numQueries {
		removed = a.numQueries
	}

	remaining := a.numQueries - removed
	copy(a.queries[:remaining], a.queries[removed:a.numQueries])

	var zero types.Query
	for i := remaining; i < a.numQueries; i++ {
		a.queries[i] = zero
	}

	a.numQueries = remaining
	a.counters.Queries -= removed
}

// Counters returns a copy of the global tallies.
func (a *Arena) Counters() Counters {
	return a.counters
}

// CountersRef returns the live tallies for in-place adjustment during
// eviction. Only valid while the lock is held.
func (a *Arena) CountersRef() *Counters {
	return &a.counters
}
