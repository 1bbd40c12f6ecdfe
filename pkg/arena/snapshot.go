package arena

import (
	"sort"

	"github.com/burrow-dns/burrow/pkg/types"
)

// Stats is a consistent copy of the headline tallies, taken under the
// arena lock in one go.
type Stats struct {
	Queries int
	Blocked int
	Clients int
	Domains int
	Status  [types.StatusMax]int
	Reply   [types.ReplyMax]int
	Type    [types.TypeMax]int
}

// Snapshot locks the arena and copies the headline tallies. Intended for
// the API layer; the retention engine works on the live structures
// instead.
func (a *Arena) Snapshot() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Stats{
		Queries: a.counters.Queries,
		Blocked: a.counters.Blocked(),
		Clients: len(a.clients),
		Domains: len(a.domains),
		Status:  a.counters.Status,
		Reply:   a.counters.Reply,
		Type:    a.counters.Type,
	}
}

// TopEntry is one row of a top-clients or top-domains listing.
type TopEntry struct {
	Name    string `json:"name"`
	Count   int    `json:"count"`
	Blocked int    `json:"blocked"`
}

// TopClients returns up to n clients ordered by rolling count (or rolling
// blocked count when blocked is set), descending.
func (a *Arena) TopClients(n int, blocked bool) []TopEntry {
	a.mu.Lock()
	entries := make([]TopEntry, 0, len(a.clients))
	for i := range a.clients {
		c := &a.clients[i]
		entries = append(entries, TopEntry{Name: c.IP, Count: c.Count, Blocked: c.BlockedCount})
	}
	a.mu.Unlock()
	return topN(entries, n, blocked)
}

// TopDomains returns up to n domains ordered by rolling count (or rolling
// blocked count when blocked is set), descending.
func (a *Arena) TopDomains(n int, blocked bool) []TopEntry {
	a.mu.Lock()
	entries := make([]TopEntry, 0, len(a.domains))
	for i := range a.domains {
		d := &a.domains[i]
		entries = append(entries, TopEntry{Name: d.Name, Count: d.Count, Blocked: d.BlockedCount})
	}
	a.mu.Unlock()
	return topN(entries, n, blocked)
}

func topN(entries []TopEntry, n int, blocked bool) []TopEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		if blocked {
			return entries[i].Blocked > entries[j].Blocked
		}
		return entries[i].Count > entries[j].Count
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// QueriesSince locks the arena and copies every record with ID greater
// than lastID. The storage syncer uses this to export new records without
// tracking arena indices, which compaction invalidates.
func (a *Arena) QueriesSince(lastID uint64) []types.Query {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]types.Query, 0)
	for i := 0; i < a.numQueries; i++ {
		if a.queries[i].ID > lastID {
			out = append(out, a.queries[i])
		}
	}
	return out
}
