package housekeeper

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/burrow-dns/burrow/pkg/arena"
	"github.com/burrow-dns/burrow/pkg/config"
	"github.com/burrow-dns/burrow/pkg/log"
	"github.com/burrow-dns/burrow/pkg/metrics"
	"github.com/burrow-dns/burrow/pkg/ratelimit"
	"github.com/burrow-dns/burrow/pkg/resource"
	"github.com/burrow-dns/burrow/pkg/retention"
)

// Housekeeper is the central scheduler. It wakes once per second and
// drives the periodic duties in a fixed order: config reload, rate-limit
// reconciliation, CPU accounting, resource checks, and the retention
// pass. A stop request is honored between any two duties, so shutdown
// never waits on a full cycle.
type Housekeeper struct {
	arena      *arena.Arena
	engine     *retention.Engine
	reconciler *ratelimit.Reconciler
	monitor    *resource.Monitor
	cfg        *config.Store
	watcher    *config.Watcher
	logger     zerolog.Logger

	lastResourceCheck time.Time
	cpu               cpuSampler

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a housekeeper. watcher may be nil when no config file is
// being watched.
func New(a *arena.Arena, engine *retention.Engine, reconciler *ratelimit.Reconciler,
	monitor *resource.Monitor, cfg *config.Store, watcher *config.Watcher) *Housekeeper {
	return &Housekeeper{
		arena:      a,
		engine:     engine,
		reconciler: reconciler,
		monitor:    monitor,
		cfg:        cfg,
		watcher:    watcher,
		logger:     log.WithComponent("housekeeper"),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start launches the scheduler loop.
func (h *Housekeeper) Start() {
	h.logger.Info().Msg("Starting housekeeper")
	go h.run()
}

// Stop signals the loop and waits for the current cycle to finish.
func (h *Housekeeper) Stop() {
	close(h.stopCh)
	<-h.doneCh
}

func (h *Housekeeper) stopped() bool {
	select {
	case <-h.stopCh:
		return true
	default:
		return false
	}
}

func (h *Housekeeper) run() {
	defer close(h.doneCh)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.cycle(time.Now())
		}
	}
}

// cycle runs one scheduler wake-up. Split out for tests.
func (h *Housekeeper) cycle(wall time.Time) {
	now := wall.Unix()

	if h.watcher != nil && h.watcher.Changed() {
		if err := h.cfg.Reload(); err != nil {
			h.logger.Error().Err(err).Msg("Config reload failed, keeping previous configuration")
		} else {
			h.logger.Info().Str("path", h.cfg.Path()).Msg("Configuration reloaded")
		}
	}
	if h.stopped() {
		return
	}

	if h.reconciler.Due(now) {
		h.arena.Lock()
		h.reconciler.Reset(now)
		h.arena.Unlock()
	}
	if h.stopped() {
		return
	}

	if usage, ok := h.cpu.sample(wall); ok {
		metrics.CPUUsagePercent.Set(usage)
	}
	if h.stopped() {
		return
	}

	if wall.Sub(h.lastResourceCheck) >= resource.CheckInterval {
		h.lastResourceCheck = wall
		h.monitor.Check()
	}
	if h.stopped() {
		return
	}

	if h.engine.Due(now) {
		h.engine.Run(now)
	}
}
