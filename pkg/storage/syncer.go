package storage

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/burrow-dns/burrow/pkg/arena"
	"github.com/burrow-dns/burrow/pkg/config"
	"github.com/burrow-dns/burrow/pkg/log"
	"github.com/burrow-dns/burrow/pkg/metrics"
	"github.com/burrow-dns/burrow/pkg/retention"
)

// Syncer periodically exports new in-memory records to the store and
// runs the deferred disk housekeeping the retention engine schedules.
// It runs in its own goroutine so slow disk writes never stall the
// ingestion path or the retention pass.
type Syncer struct {
	store  *Store
	arena  *arena.Arena
	engine *retention.Engine
	cfg    *config.Store
	logger zerolog.Logger

	// Highest record ID already exported. Record IDs are stable across
	// arena compaction, so this survives retention passes.
	lastID uint64

	lastExport int64
	stopCh     chan struct{}
	doneCh     chan struct{}
}

// NewSyncer creates a syncer bound to the given store and arena.
func NewSyncer(store *Store, a *arena.Arena, engine *retention.Engine, cfg *config.Store) *Syncer {
	return &Syncer{
		store:  store,
		arena:  a,
		engine: engine,
		cfg:    cfg,
		logger: log.WithComponent("syncer"),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the sync loop.
func (s *Syncer) Start() {
	s.logger.Info().Str("database", s.store.Path()).Msg("Starting storage syncer")
	go s.run()
}

// Stop signals the loop to exit and waits for the in-flight iteration to
// finish, so Close on the store cannot race a pending write.
func (s *Syncer) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *Syncer) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			// Flush whatever accumulated since the last export before
			// shutdown
			s.export()
			return
		case <-ticker.C:
			now := time.Now().Unix()
			interval := s.cfg.Snapshot().Database.Interval
			if interval <= 0 || now-s.lastExport < interval {
				continue
			}
			s.lastExport = now - now%interval

			s.export()

			if s.engine.TakeHousekeepingDue() {
				s.housekeep(now)
			}
		}
	}
}

// export copies records newer than the last exported ID out of the arena
// and writes them to both store tiers.
func (s *Syncer) export() {
	queries := s.arena.QueriesSince(s.lastID)
	if len(queries) == 0 {
		return
	}

	if err := s.store.SaveQueries(queries); err != nil {
		// Keep lastID unchanged so the batch is retried next interval
		s.logger.Error().Err(err).Int("queries", len(queries)).Msg("Failed to export queries")
		return
	}

	s.lastID = queries[len(queries)-1].ID
	metrics.ArchivedQueries.Add(float64(len(queries)))
	s.logger.Debug().Int("queries", len(queries)).Uint64("last_id", s.lastID).Msg("Exported queries")
}

// housekeep trims the archive tier to the configured maximum age and
// compacts the database file.
func (s *Syncer) housekeep(now int64) {
	maxDays := s.cfg.Snapshot().Database.MaxDays
	if maxDays >= 0 {
		cutoff := now - int64(maxDays)*86400
		pruned, err := s.store.PruneArchive(cutoff)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to prune archive")
		} else if pruned > 0 {
			s.logger.Info().Int("queries", pruned).Int("max_days", maxDays).Msg("Pruned archive")
		}
	}

	if err := s.store.Maintain(); err != nil {
		s.logger.Error().Err(err).Msg("Database compaction failed")
		return
	}
	if size, err := s.store.Size(); err == nil {
		metrics.ArchiveSizeBytes.Set(float64(size))
	}
}
