package resource

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/burrow-dns/burrow/pkg/config"
)

type recordedShortage struct {
	load    float64
	cores   int
	diskPct int
	path    string
	human   string
}

type fakeRecorder struct {
	shortages []recordedShortage
}

func (f *fakeRecorder) RecordResourceShortage(load float64, cores int, diskPct int, path, human string) error {
	f.shortages = append(f.shortages, recordedShortage{load, cores, diskPct, path, human})
	return nil
}

func testMonitor(diskThreshold uint, checkLoad bool) (*Monitor, *fakeRecorder) {
	snap := config.Default()
	snap.Check.Disk = diskThreshold
	snap.Check.Load = checkLoad
	rec := &fakeRecorder{}
	m := &Monitor{
		cfg:      config.NewStatic(snap),
		recorder: rec,
		fsUsage: func(string) (uint64, uint64, error) {
			return 1000, 500, nil
		},
		loadavg: func() ([3]float64, error) {
			return [3]float64{0, 0, 0}, nil
		},
		nprocs:   func() int { return 4 },
		deviceID: func(string) (uint64, error) { return 1, nil },
	}
	return m, rec
}

// percent helper: total 100 blocks, avail = 100-used
func withUsage(m *Monitor, perc uint64) {
	m.fsUsage = func(string) (uint64, uint64, error) {
		return 100, 100 - perc, nil
	}
}

func TestCheckSpaceWarnsWhenAboveThresholdAndGrowing(t *testing.T) {
	m, rec := testMonitor(90, false)
	withUsage(m, 92)

	got := m.checkSpace("/var/lib/burrow/burrow.db", 85)

	assert.Equal(t, 92, got)
	assert.Len(t, rec.shortages, 1)
	assert.Equal(t, 92, rec.shortages[0].diskPct)
	assert.Equal(t, "/var/lib/burrow/burrow.db", rec.shortages[0].path)
	assert.NotEmpty(t, rec.shortages[0].human)
}

func TestCheckSpaceQuietBelowThreshold(t *testing.T) {
	m, rec := testMonitor(90, false)
	withUsage(m, 80)

	got := m.checkSpace("/db", 85)

	assert.Equal(t, 80, got)
	assert.Empty(t, rec.shortages)
}

func TestCheckSpaceQuietWhenUsageDecreased(t *testing.T) {
	// Anti-spam rule: above threshold but lower than last time
	m, rec := testMonitor(90, false)
	withUsage(m, 92)

	got := m.checkSpace("/db", 95)

	assert.Equal(t, 92, got)
	assert.Empty(t, rec.shortages)
}

func TestCheckSpaceDisabled(t *testing.T) {
	m, rec := testMonitor(0, false)
	withUsage(m, 99)

	assert.Equal(t, 0, m.checkSpace("/db", 0))
	assert.Empty(t, rec.shortages)
}

func TestCheckSpaceStatFailureIsNotFatal(t *testing.T) {
	m, rec := testMonitor(90, false)
	m.fsUsage = func(string) (uint64, uint64, error) {
		return 0, 0, errors.New("no such file")
	}

	assert.Equal(t, 0, m.checkSpace("/db", 50))
	assert.Empty(t, rec.shortages)
}

func TestCheckLoadWarnsAboveCoreCount(t *testing.T) {
	m, rec := testMonitor(0, true)
	m.loadavg = func() ([3]float64, error) {
		return [3]float64{1.0, 2.0, 4.5}, nil
	}

	m.checkLoad()

	assert.Len(t, rec.shortages, 1)
	assert.Equal(t, 4.5, rec.shortages[0].load)
	assert.Equal(t, 4, rec.shortages[0].cores)
	assert.Equal(t, -1, rec.shortages[0].diskPct)
}

func TestCheckLoadQuietBelowCoreCount(t *testing.T) {
	m, rec := testMonitor(0, true)
	m.loadavg = func() ([3]float64, error) {
		return [3]float64{5.0, 4.0, 3.9}, nil
	}

	m.checkLoad()
	assert.Empty(t, rec.shortages)
}

func TestCheckLoadDisabled(t *testing.T) {
	m, rec := testMonitor(0, false)
	m.loadavg = func() ([3]float64, error) {
		return [3]float64{9, 9, 9}, nil
	}

	m.checkLoad()
	assert.Empty(t, rec.shortages)
}

func TestCheckLoadUnavailableSkipsSilently(t *testing.T) {
	m, rec := testMonitor(0, true)
	m.loadavg = func() ([3]float64, error) {
		return [3]float64{}, errors.New("not supported")
	}

	m.checkLoad()
	assert.Empty(t, rec.shortages)
}

func TestCheckDeduplicatesSameDevice(t *testing.T) {
	m, _ := testMonitor(90, false)
	m.sameDevice = true

	calls := 0
	m.fsUsage = func(string) (uint64, uint64, error) {
		calls++
		return 100, 50, nil
	}

	m.Check()
	assert.Equal(t, 1, calls, "database and log on the same device must be checked once")

	m.sameDevice = false
	calls = 0
	m.Check()
	assert.Equal(t, 2, calls)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 KiB", formatBytes(1024))
	assert.Equal(t, "1.5 MiB", formatBytes(3*1024*1024/2))
	assert.Equal(t, "2.0 GiB", formatBytes(2*1024*1024*1024))
}
