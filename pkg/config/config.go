package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// Snapshot is a read-only view of the configuration. Callers must not
// mutate it; Store.Reload swaps in a fresh snapshot atomically instead.
type Snapshot struct {
	GC        GCConfig        `toml:"gc"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Check     CheckConfig     `toml:"check"`
	Files     FilesConfig     `toml:"files"`
	Database  DatabaseConfig  `toml:"database"`
	API       APIConfig       `toml:"api"`
	Arena     ArenaConfig     `toml:"arena"`
	Log       LogConfig       `toml:"log"`
}

// GCConfig tunes the retention engine.
type GCConfig struct {
	// Interval is the seconds between GC passes and doubles as the
	// time-bucket width, so the retention cutoff always lands on a
	// bucket boundary.
	Interval int64 `toml:"interval"`
	// Delay shifts the retention window back, keeping records GC-able
	// only once they are at least Delay seconds old.
	Delay int64 `toml:"delay"`
	// MaxHistory is the in-memory retention window in seconds.
	MaxHistory int64 `toml:"max_history"`
}

// RateLimitConfig tunes per-client admission control. Interval 0 disables
// the reconciler entirely.
type RateLimitConfig struct {
	Count    uint  `toml:"count"`
	Interval int64 `toml:"interval"`
}

// CheckConfig toggles the resource monitor. Disk is a percentage
// threshold where 0 disables the disk check.
type CheckConfig struct {
	Disk uint `toml:"disk"`
	Load bool `toml:"load"`
}

// FilesConfig lists the files whose hosting filesystems are watched for
// disk shortage.
type FilesConfig struct {
	Database string `toml:"database"`
	Log      string `toml:"log"`
}

// DatabaseConfig tunes the on-disk archive tier.
type DatabaseConfig struct {
	// Interval is the seconds between exports of new in-memory records
	// to the archive.
	Interval int64 `toml:"interval"`
	// MaxDays bounds on-disk retention; -1 disables deletion.
	MaxDays int `toml:"max_days"`
}

// APIConfig configures the HTTP/JSON API.
type APIConfig struct {
	Addr  string `toml:"addr"`
	Token string `toml:"token"`
}

// ArenaConfig sizes the in-memory record store.
type ArenaConfig struct {
	MaxQueries int `toml:"max_queries"`
	// Slots is the number of time buckets kept for history reporting.
	Slots int `toml:"slots"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

// Default returns the built-in configuration.
func Default() *Snapshot {
	return &Snapshot{
		GC: GCConfig{
			Interval:   600,
			Delay:      0,
			MaxHistory: 86400,
		},
		RateLimit: RateLimitConfig{
			Count:    1000,
			Interval: 60,
		},
		Check: CheckConfig{
			Disk: 90,
			Load: true,
		},
		Files: FilesConfig{
			Database: "/var/lib/burrow/burrow.db",
			Log:      "/var/log/burrow/burrow.log",
		},
		Database: DatabaseConfig{
			Interval: 60,
			MaxDays:  365,
		},
		API: APIConfig{
			Addr: "127.0.0.1:4711",
		},
		Arena: ArenaConfig{
			MaxQueries: 300000,
			Slots:      600,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func (s *Snapshot) validate() error {
	if s.GC.Interval <= 0 {
		return fmt.Errorf("gc.interval must be positive, got %d", s.GC.Interval)
	}
	if s.GC.MaxHistory < 0 {
		return fmt.Errorf("gc.max_history must not be negative, got %d", s.GC.MaxHistory)
	}
	if s.Check.Disk > 100 {
		return fmt.Errorf("check.disk must be a percentage (0-100), got %d", s.Check.Disk)
	}
	if s.Arena.MaxQueries <= 0 {
		return fmt.Errorf("arena.max_queries must be positive, got %d", s.Arena.MaxQueries)
	}
	if s.Arena.Slots <= 0 {
		return fmt.Errorf("arena.slots must be positive, got %d", s.Arena.Slots)
	}
	return nil
}

// Store holds the current configuration snapshot and reloads it on demand.
type Store struct {
	mu   sync.RWMutex
	path string
	snap *Snapshot
}

// Load reads the TOML file at path on top of the built-in defaults. A
// missing file is not an error; the defaults apply unchanged.
func Load(path string) (*Store, error) {
	s := &Store{path: path}
	snap, err := s.read()
	if err != nil {
		return nil, err
	}
	s.snap = snap
	return s, nil
}

func (s *Store) read() (*Snapshot, error) {
	snap := Default()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return snap, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", s.path, err)
	}
	if err := toml.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", s.path, err)
	}
	if err := snap.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", s.path, err)
	}
	return snap, nil
}

// NewStatic wraps a fixed snapshot. Reload is a no-op without a path;
// used by tests and by callers that manage configuration themselves.
func NewStatic(snap *Snapshot) *Store {
	return &Store{snap: snap}
}

// Snapshot returns the current configuration view.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Path returns the config file location the store was loaded from.
func (s *Store) Path() string {
	return s.path
}

// Reload re-reads the config file and swaps the snapshot. On any error the
// previous snapshot stays in effect.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	snap, err := s.read()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	return nil
}
