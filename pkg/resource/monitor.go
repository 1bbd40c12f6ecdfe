package resource

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/burrow-dns/burrow/pkg/config"
	"github.com/burrow-dns/burrow/pkg/log"
	"github.com/burrow-dns/burrow/pkg/metrics"
)

// CheckInterval is how often the housekeeper runs the resource checks.
// Independent of the GC interval.
const CheckInterval = 300 * time.Second

// Recorder persists a resource-shortage notice so it outlives the log
// stream. Load shortages pass a negative diskPct; disk shortages pass a
// negative load. Mirrors the warning's log line fields.
type Recorder interface {
	RecordResourceShortage(load float64, cores int, diskPct int, path, human string) error
}

// Monitor performs the periodic disk-usage and load-average checks.
//
// The OS facilities are plain function fields so tests can substitute
// them; production callers get the defaults from New.
type Monitor struct {
	cfg      *config.Store
	recorder Recorder
	logger   zerolog.Logger

	fsUsage  func(path string) (total, avail uint64, err error)
	loadavg  func() ([3]float64, error)
	nprocs   func() int
	deviceID func(path string) (uint64, error)

	// Last observed usage per tracked file. A warning fires only when
	// usage exceeded the threshold AND grew since the previous check,
	// the original anti-spam rule.
	lastDBUsage  int
	lastLogUsage int

	sameDevice bool
}

// New creates a resource monitor. recorder may be nil, in which case
// shortages are only logged.
func New(cfg *config.Store, recorder Recorder) *Monitor {
	m := &Monitor{
		cfg:      cfg,
		recorder: recorder,
		logger:   log.WithComponent("resource"),
		fsUsage:  fsUsage,
		loadavg:  loadAverages,
		nprocs:   numProcs,
		deviceID: deviceID,
	}
	m.sameDevice = m.onSameDevice()
	return m
}

// onSameDevice reports whether the database and log files live on the
// same filesystem, so the disk check runs once instead of twice.
func (m *Monitor) onSameDevice() bool {
	files := m.cfg.Snapshot().Files
	d1, err := m.deviceID(files.Database)
	if err != nil {
		m.logger.Warn().Err(err).Str("path", files.Database).Msg("device check failed")
		return false
	}
	d2, err := m.deviceID(files.Log)
	if err != nil {
		m.logger.Warn().Err(err).Str("path", files.Log).Msg("device check failed")
		return false
	}
	return d1 == d2
}

// Check runs the load-average and disk-usage checks once. Requires no
// arena lock; nothing here touches query records.
func (m *Monitor) Check() {
	m.checkLoad()

	files := m.cfg.Snapshot().Files
	m.lastDBUsage = m.checkSpace(files.Database, m.lastDBUsage)
	if !m.sameDevice {
		m.lastLogUsage = m.checkSpace(files.Log, m.lastLogUsage)
	}
}

func (m *Monitor) checkLoad() {
	if !m.cfg.Snapshot().Check.Load {
		return
	}

	load, err := m.loadavg()
	if err != nil {
		// Load average facility unavailable: skip silently
		m.logger.Debug().Err(err).Msg("load average unavailable")
		return
	}

	cores := m.nprocs()
	if load[2] > float64(cores) {
		m.logger.Warn().
			Float64("load15", load[2]).
			Int("cores", cores).
			Msg("excessive load: 15 minute average exceeds core count")
		metrics.ResourceShortages.WithLabelValues("load").Inc()
		if m.recorder != nil {
			if err := m.recorder.RecordResourceShortage(load[2], cores, -1, "", ""); err != nil {
				m.logger.Error().Err(err).Msg("failed to record load shortage")
			}
		}
	}
}

// checkSpace checks the filesystem hosting path and returns the current
// usage percentage, which the caller feeds back in as lastUsage on the
// next round.
func (m *Monitor) checkSpace(path string, lastUsage int) int {
	threshold := m.cfg.Snapshot().Check.Disk
	if threshold == 0 {
		return 0
	}

	total, avail, err := m.fsUsage(path)
	if err != nil || total == 0 {
		m.logger.Debug().Err(err).Str("path", path).Msg("disk usage unavailable")
		return 0
	}

	used := total - avail
	perc := int(used * 100 / total)
	human := fmt.Sprintf("%s used, %s total", formatBytes(used), formatBytes(total))

	m.logger.Debug().
		Str("path", path).
		Int("used_percent", perc).
		Uint("threshold", threshold).
		Msg("disk usage checked")
	metrics.DiskUsagePercent.WithLabelValues(path).Set(float64(perc))

	// Warn only when above the threshold and growing since the last
	// check. Flat-but-high usage stays quiet on purpose; changing that
	// would change user-visible alerting.
	if perc > int(threshold) && perc > lastUsage && perc <= 100 {
		m.logger.Warn().
			Str("path", path).
			Int("used_percent", perc).
			Str("usage", human).
			Msg("disk usage exceeds threshold")
		metrics.ResourceShortages.WithLabelValues("disk").Inc()
		if m.recorder != nil {
			if err := m.recorder.RecordResourceShortage(-1, 0, perc, path, human); err != nil {
				m.logger.Error().Err(err).Msg("failed to record disk shortage")
			}
		}
	}

	return perc
}

// formatBytes renders a byte count with a binary unit prefix.
func formatBytes(n uint64) string {
	units := []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}
	value := float64(n)
	i := 0
	for value >= 1024 && i < len(units)-1 {
		value /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d %s", n, units[i])
	}
	return fmt.Sprintf("%.1f %s", value, units[i])
}
