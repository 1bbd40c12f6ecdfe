package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burrow-dns/burrow/pkg/types"
)

func newTestQuery(a *Arena, ts int64, status types.QueryStatus) types.Query {
	return types.Query{
		Timestamp: ts,
		Type:      types.TypeA,
		Status:    status,
		Reply:     types.ReplyIP,
		ClientID:  a.RegisterClient("192.168.1.1"),
		DomainID:  a.RegisterDomain("example.com"),
	}
}

func TestAppendAssignsIncreasingIDs(t *testing.T) {
	a := New(10)
	a.Lock()
	defer a.Unlock()

	for i := 0; i < 3; i++ {
		idx, err := a.Append(newTestQuery(a, int64(100+i), types.StatusForwarded))
		require.NoError(t, err)
		assert.Equal(t, i, idx)
		assert.Equal(t, uint64(i), a.Query(idx).ID)
	}
	assert.Equal(t, 3, a.NumQueries())
}

func TestAppendCapacityExceeded(t *testing.T) {
	a := New(2)
	a.Lock()
	defer a.Unlock()

	_, err := a.Append(newTestQuery(a, 100, types.StatusForwarded))
	require.NoError(t, err)
	_, err = a.Append(newTestQuery(a, 101, types.StatusForwarded))
	require.NoError(t, err)

	_, err = a.Append(newTestQuery(a, 102, types.StatusForwarded))
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 2, a.NumQueries())
}

func TestAppendClampsBackwardsTimestamps(t *testing.T) {
	a := New(10)
	a.Lock()
	defer a.Unlock()

	_, err := a.Append(newTestQuery(a, 200, types.StatusForwarded))
	require.NoError(t, err)
	idx, err := a.Append(newTestQuery(a, 150, types.StatusForwarded))
	require.NoError(t, err)

	// Clock stepped backwards; record must not break ordering
	assert.Equal(t, int64(200), a.Query(idx).Timestamp)
}

func TestAppendUpdatesAggregates(t *testing.T) {
	a := New(10)
	a.Lock()
	defer a.Unlock()

	clientID := a.RegisterClient("10.0.0.2")
	domainID := a.RegisterDomain("ads.example.net")

	_, err := a.Append(types.Query{
		Timestamp: 100,
		Type:      types.TypeAAAA,
		Status:    types.StatusBlocklist,
		Reply:     types.ReplyNXDOMAIN,
		ClientID:  clientID,
		DomainID:  domainID,
	})
	require.NoError(t, err)

	c := a.Client(clientID)
	require.NotNil(t, c)
	assert.Equal(t, 1, c.Count)
	assert.Equal(t, 1, c.BlockedCount)
	assert.Equal(t, uint(1), c.RateLimit)

	d := a.Domain(domainID)
	require.NotNil(t, d)
	assert.Equal(t, 1, d.Count)
	assert.Equal(t, 1, d.BlockedCount)

	counters := a.Counters()
	assert.Equal(t, 1, counters.Queries)
	assert.Equal(t, 1, counters.Status[types.StatusBlocklist])
	assert.Equal(t, 1, counters.Reply[types.ReplyNXDOMAIN])
	assert.Equal(t, 1, counters.Type[types.TypeAAAA])
	assert.Equal(t, 1, counters.Blocked())
}

func TestQueryBoundsChecks(t *testing.T) {
	a := New(4)
	a.Lock()
	defer a.Unlock()

	assert.Nil(t, a.Query(-1))
	assert.Nil(t, a.Query(0))

	_, err := a.Append(newTestQuery(a, 100, types.StatusCache))
	require.NoError(t, err)
	assert.NotNil(t, a.Query(0))
	assert.Nil(t, a.Query(1))

	assert.Nil(t, a.Client(99))
	assert.Nil(t, a.Domain(-1))
}

func TestRegisterClientIsIdempotent(t *testing.T) {
	a := New(4)
	a.Lock()
	defer a.Unlock()

	first := a.RegisterClient("10.0.0.1")
	second := a.RegisterClient("10.0.0.1")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, a.NumClients())
}

func TestSetStatusNetZero(t *testing.T) {
	a := New(4)
	a.Lock()
	defer a.Unlock()

	idx, err := a.Append(newTestQuery(a, 100, types.StatusBlocklist))
	require.NoError(t, err)
	q := a.Query(idx)

	before := a.Counters()
	a.SetStatus(q, types.StatusUnknown)
	after := a.Counters()

	assert.Equal(t, before.Status[types.StatusBlocklist]-1, after.Status[types.StatusBlocklist])
	assert.Equal(t, before.Status[types.StatusUnknown]+1, after.Status[types.StatusUnknown])
	assert.Equal(t, types.StatusUnknown, q.Status)

	// Setting the same status twice must not drift
	a.SetStatus(q, types.StatusUnknown)
	assert.Equal(t, after.Status, a.Counters().Status)
}

func TestCompactPreservesOrderAndZeroesTail(t *testing.T) {
	a := New(8)
	a.Lock()
	defer a.Unlock()

	for _, ts := range []int64{100, 200, 300, 400, 500} {
		_, err := a.Append(newTestQuery(a, ts, types.StatusForwarded))
		require.NoError(t, err)
	}

	a.Compact(2)

	assert.Equal(t, 3, a.NumQueries())
	assert.Equal(t, 3, a.Counters().Queries)
	wantTS := []int64{300, 400, 500}
	var lastID uint64
	for i, ts := range wantTS {
		q := a.Query(i)
		require.NotNil(t, q)
		assert.Equal(t, ts, q.Timestamp)
		if i > 0 {
			assert.Greater(t, q.ID, lastID)
		}
		lastID = q.ID
	}

	// Freed tail must be zeroed
	assert.Equal(t, types.Query{}, a.queries[3])
	assert.Equal(t, types.Query{}, a.queries[4])
}

func TestCompactWholeArena(t *testing.T) {
	a := New(4)
	a.Lock()

	for _, ts := range []int64{10, 20} {
		_, err := a.Append(newTestQuery(a, ts, types.StatusForwarded))
		require.NoError(t, err)
	}
	a.Compact(2)
	assert.Equal(t, 0, a.NumQueries())
	a.Unlock()

	// IDs keep increasing after a full wipe
	a.Lock()
	idx, err := a.Append(newTestQuery(a, 30, types.StatusForwarded))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), a.Query(idx).ID)
	a.Unlock()
}

func TestTopDomains(t *testing.T) {
	a := New(16)
	a.Lock()
	blocked := a.RegisterDomain("ads.example.com")
	popular := a.RegisterDomain("cdn.example.com")
	client := a.RegisterClient("10.0.0.1")

	for i := 0; i < 3; i++ {
		_, err := a.Append(types.Query{Timestamp: int64(100 + i), Status: types.StatusForwarded, ClientID: client, DomainID: popular})
		require.NoError(t, err)
	}
	_, err := a.Append(types.Query{Timestamp: 110, Status: types.StatusBlocklist, ClientID: client, DomainID: blocked})
	require.NoError(t, err)
	a.Unlock()

	top := a.TopDomains(1, false)
	require.Len(t, top, 1)
	assert.Equal(t, "cdn.example.com", top[0].Name)

	topBlocked := a.TopDomains(1, true)
	require.Len(t, topBlocked, 1)
	assert.Equal(t, "ads.example.com", topBlocked[0].Name)
}

func TestQueriesSince(t *testing.T) {
	a := New(8)
	a.Lock()
	for _, ts := range []int64{100, 200, 300} {
		_, err := a.Append(newTestQuery(a, ts, types.StatusForwarded))
		require.NoError(t, err)
	}
	a.Compact(1)
	a.Unlock()

	// ID 0 was evicted; only records with ID > 0 remain
	fresh := a.QueriesSince(0)
	require.Len(t, fresh, 2)
	assert.Equal(t, uint64(1), fresh[0].ID)
	assert.Equal(t, uint64(2), fresh[1].ID)

	assert.Empty(t, a.QueriesSince(2))
}
