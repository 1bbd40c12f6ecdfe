package retention

import (
	"github.com/burrow-dns/burrow/pkg/metrics"
	"github.com/burrow-dns/burrow/pkg/overtime"
	"github.com/burrow-dns/burrow/pkg/types"
)

// Ingest records one observed query. It registers the client and domain
// aggregates on first sight and updates the arena record array, the
// global counters and the time-bucket aggregates in one critical
// section, so a retention pass can never observe a half-counted record.
//
// This is the hook the live query-processing path calls; everything it
// increments here is exactly what a later eviction reverses.
func (e *Engine) Ingest(ts int64, clientIP, domain string, qtype types.QueryType, status types.QueryStatus, reply types.ReplyType) (int, error) {
	e.arena.Lock()
	defer e.arena.Unlock()

	q := types.Query{
		Timestamp: ts,
		Type:      qtype,
		Status:    status,
		Reply:     reply,
		ClientID:  e.arena.RegisterClient(clientIP),
		DomainID:  e.arena.RegisterDomain(domain),
	}

	idx, err := e.arena.Append(q)
	if err != nil {
		return -1, err
	}

	// Append may have clamped the timestamp; bucket by what was stored
	stored := e.arena.Query(idx)
	e.buckets.Add(stored.Timestamp, status.Blocked())

	metrics.QueriesLive.Set(float64(e.arena.NumQueries()))
	metrics.QueriesIngested.Inc()

	return idx, nil
}

// History returns a copy of the time-bucket window, taken under the
// arena lock so the slots are mutually consistent.
func (e *Engine) History() []overtime.Slot {
	e.arena.Lock()
	defer e.arena.Unlock()
	return e.buckets.Slots()
}
