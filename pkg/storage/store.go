package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/burrow-dns/burrow/pkg/types"
)

var (
	// Bucket names
	//
	// The window bucket mirrors the in-memory retention window and is
	// trimmed by the retention engine's cutoff on every pass. The
	// archive bucket is the long-term tier, trimmed only by the
	// configured maximum age during deferred housekeeping.
	bucketWindow   = []byte("window")
	bucketArchive  = []byte("archive")
	bucketMessages = []byte("messages")
)

// Store is the bbolt-backed persistence tier.
type Store struct {
	mu   sync.RWMutex
	db   *bolt.DB
	path string
}

// Open attaches the on-disk store at path, creating it if needed.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketWindow, bucketArchive, bucketMessages} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, path: path}, nil
}

// Close detaches the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func idKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}

// SaveQueries appends a batch of records to both tiers in one
// transaction. Keys are the record IDs in big-endian order, so key order
// equals append order equals timestamp order.
func (s *Store) SaveQueries(queries []types.Query) error {
	if len(queries) == 0 {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		window := tx.Bucket(bucketWindow)
		archive := tx.Bucket(bucketArchive)
		for i := range queries {
			data, err := json.Marshal(&queries[i])
			if err != nil {
				return err
			}
			key := idKey(queries[i].ID)
			if err := window.Put(key, data); err != nil {
				return err
			}
			if err := archive.Put(key, data); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteOlderThan removes window records with timestamps strictly before
// cutoff. This is the retention engine's sink: it runs with the arena
// lock released, and with bestEffort set a malformed record is skipped
// rather than failing the pass.
func (s *Store) DeleteOlderThan(cutoff int64, bestEffort bool) (int, error) {
	return s.deleteOld(bucketWindow, cutoff, bestEffort)
}

// PruneArchive removes archive records with timestamps strictly before
// cutoff. Used by the deferred housekeeping pass with the long-term age
// bound, never with the in-memory cutoff.
func (s *Store) PruneArchive(cutoff int64) (int, error) {
	return s.deleteOld(bucketArchive, cutoff, true)
}

func (s *Store) deleteOld(bucket []byte, cutoff int64, bestEffort bool) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	deleted := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var q types.Query
			if err := json.Unmarshal(v, &q); err != nil {
				if bestEffort {
					continue
				}
				return fmt.Errorf("failed to decode record %x: %w", k, err)
			}
			// Keys are in timestamp order; the first record at or past
			// the cutoff ends the expired prefix
			if q.Timestamp >= cutoff {
				break
			}
			if err := c.Delete(); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}

// CountWindow returns the number of records in the window tier.
func (s *Store) CountWindow() (int, error) {
	return s.count(bucketWindow)
}

// CountArchive returns the number of records in the archive tier.
func (s *Store) CountArchive() (int, error) {
	return s.count(bucketArchive)
}

func (s *Store) count(bucket []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucket).Stats().KeyN
		return nil
	})
	return n, err
}

// RecordResourceShortage persists a resource-shortage notice. Implements
// the resource monitor's recorder contract: a negative diskPct marks a
// load shortage, a negative load marks a disk shortage.
func (s *Store) RecordResourceShortage(load float64, cores int, diskPct int, path, human string) error {
	msg := types.Message{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
	}
	if diskPct < 0 {
		msg.Type = types.MessageLoadShortage
		msg.Text = fmt.Sprintf("15 minute load average %.2f exceeds %d available cores", load, cores)
	} else {
		msg.Type = types.MessageDiskShortage
		msg.Text = fmt.Sprintf("filesystem hosting %s is %d%% full (%s)", path, diskPct, human)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(&msg)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMessages).Put([]byte(msg.ID), data)
	})
}

// Messages returns all persisted messages.
func (s *Store) Messages() ([]types.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var messages []types.Message
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMessages).ForEach(func(k, v []byte) error {
			var msg types.Message
			if err := json.Unmarshal(v, &msg); err != nil {
				return err
			}
			messages = append(messages, msg)
			return nil
		})
	})
	return messages, err
}

// Size returns the database file size in bytes.
func (s *Store) Size() (int64, error) {
	st, err := os.Stat(s.path)
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

// Maintain copy-compacts the database file to reclaim pages freed by
// deletions, then swaps the compacted copy into place. bbolt never
// shrinks a file on its own, so without this the file grows forever.
func (s *Store) Maintain() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".compact"
	dst, err := bolt.Open(tmp, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return fmt.Errorf("failed to open compaction target: %w", err)
	}

	if err := bolt.Compact(dst, s.db, 0); err != nil {
		dst.Close()
		os.Remove(tmp)
		return fmt.Errorf("compaction failed: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := s.db.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to swap compacted database: %w", err)
	}

	db, err := bolt.Open(s.path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}
	s.db = db
	return nil
}
