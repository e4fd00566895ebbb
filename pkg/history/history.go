// Package history persists query history and named checkpoints for the
// explorer, backed by BadgerDB.
//
// The store implements cypher.Tracker, so the executor reports every
// execution here fire-and-forget: a storage failure surfaces as an error to
// the tracker call only and never fails the query that triggered it.
//
// Key layout:
//   - h:<reverse-nanos> -> JSON(Entry)      (ascending scan = newest first)
//   - c:<uuid>          -> JSON(Checkpoint)
package history

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/spacebiology/osdrgraph/pkg/cypher"
)

const (
	// DefaultMaxEntries bounds the query history.
	DefaultMaxEntries = 20
	// maxCheckpoints bounds saved checkpoints; oldest are dropped first.
	maxCheckpoints = 10
)

var (
	historyPrefix    = []byte("h:")
	checkpointPrefix = []byte("c:")
)

// Entry is one executed query with its outcome metadata.
type Entry struct {
	Query        string    `json:"query"`
	Timestamp    time.Time `json:"timestamp"`
	ElapsedMS    float64   `json:"execution_time_ms"`
	ResultCount  int       `json:"result_count"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Checkpoint is a named, restorable query snapshot.
type Checkpoint struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Timestamp   time.Time `json:"timestamp"`
	Query       string    `json:"query"`
	Description string    `json:"description,omitempty"`
}

// Stats summarizes the stored history.
type Stats struct {
	TotalQueries      int        `json:"total_queries"`
	SuccessfulQueries int        `json:"successful_queries"`
	FailedQueries     int        `json:"failed_queries"`
	AvgElapsedMS      float64    `json:"avg_execution_time_ms"`
	MostRecent        *time.Time `json:"most_recent,omitempty"`
}

// Store is a badger-backed history and checkpoint store. Safe for concurrent
// use; writes are serialized so dedup and bounding stay consistent.
type Store struct {
	mu         sync.Mutex
	db         *badger.DB
	maxEntries int
}

// Open opens (or creates) a store in dir. maxEntries <= 0 uses
// DefaultMaxEntries.
func Open(dir string, maxEntries int) (*Store, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	return &Store{db: db, maxEntries: maxEntries}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record implements cypher.Tracker. Blank queries are ignored; an identical
// earlier query is replaced (moved to the front) and the history is trimmed
// to its bound.
func (s *Store) Record(q cypher.TrackedQuery) error {
	query := strings.TrimSpace(q.Query)
	if query == "" {
		return nil
	}

	entry := Entry{
		Query:        query,
		Timestamp:    q.Timestamp,
		ElapsedMS:    float64(q.Elapsed.Milliseconds()),
		ResultCount:  q.ResultCount,
		Success:      q.Success,
		ErrorMessage: q.ErrorMessage,
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		// Drop duplicates of the same query text, then insert and trim.
		keys, entries, err := scanHistory(txn)
		if err != nil {
			return err
		}
		for i, e := range entries {
			if e.Query == query {
				if err := txn.Delete(keys[i]); err != nil {
					return err
				}
			}
		}

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if err := txn.Set(historyKey(entry.Timestamp), data); err != nil {
			return err
		}

		keys, _, err = scanHistory(txn)
		if err != nil {
			return err
		}
		for i := s.maxEntries; i < len(keys); i++ {
			if err := txn.Delete(keys[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Entries returns the stored history, newest first.
func (s *Store) Entries() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		_, entries, err = scanHistory(txn)
		return err
	})
	return entries, err
}

// ClearHistory removes all history entries, keeping checkpoints.
func (s *Store) ClearHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletePrefix(historyPrefix)
}

// HistoryStats computes summary statistics over the stored history.
func (s *Store) HistoryStats() (Stats, error) {
	entries, err := s.Entries()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{TotalQueries: len(entries)}
	var elapsedSum float64
	var elapsedCount int
	for _, e := range entries {
		if e.Success {
			stats.SuccessfulQueries++
			elapsedSum += e.ElapsedMS
			elapsedCount++
		} else {
			stats.FailedQueries++
		}
	}
	if elapsedCount > 0 {
		stats.AvgElapsedMS = elapsedSum / float64(elapsedCount)
	}
	if len(entries) > 0 {
		ts := entries[0].Timestamp
		stats.MostRecent = &ts
	}
	return stats, nil
}

// SaveCheckpoint stores a named query snapshot. An existing checkpoint with
// the same name is replaced; at most maxCheckpoints newest are kept.
func (s *Store) SaveCheckpoint(name, query, description string) (Checkpoint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Checkpoint{}, fmt.Errorf("checkpoint name cannot be empty")
	}

	cp := Checkpoint{
		ID:          uuid.NewString(),
		Name:        name,
		Timestamp:   time.Now().UTC(),
		Query:       query,
		Description: description,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		existing, err := scanCheckpoints(txn)
		if err != nil {
			return err
		}
		for _, old := range existing {
			if old.Name == name {
				if err := txn.Delete(checkpointKey(old.ID)); err != nil {
					return err
				}
			}
		}

		data, err := json.Marshal(cp)
		if err != nil {
			return err
		}
		if err := txn.Set(checkpointKey(cp.ID), data); err != nil {
			return err
		}

		remaining, err := scanCheckpoints(txn)
		if err != nil {
			return err
		}
		sortCheckpoints(remaining)
		for i := maxCheckpoints; i < len(remaining); i++ {
			if err := txn.Delete(checkpointKey(remaining[i].ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Checkpoint{}, err
	}
	return cp, nil
}

// Checkpoints returns all checkpoints, newest first.
func (s *Store) Checkpoints() ([]Checkpoint, error) {
	var cps []Checkpoint
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		cps, err = scanCheckpoints(txn)
		return err
	})
	if err != nil {
		return nil, err
	}
	sortCheckpoints(cps)
	return cps, nil
}

// GetCheckpoint looks up a checkpoint by id.
func (s *Store) GetCheckpoint(id string) (Checkpoint, bool, error) {
	var cp Checkpoint
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(checkpointKey(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &cp)
		})
	})
	return cp, found, err
}

// DeleteCheckpoint removes a checkpoint; it reports whether one existed.
func (s *Store) DeleteCheckpoint(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(checkpointKey(id)); err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		existed = true
		return txn.Delete(checkpointKey(id))
	})
	return existed, err
}

// ClearCheckpoints removes all checkpoints.
func (s *Store) ClearCheckpoints() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletePrefix(checkpointPrefix)
}

// exportedState is the JSON envelope for Export/Import.
type exportedState struct {
	History     []Entry      `json:"query_history"`
	Checkpoints []Checkpoint `json:"checkpoints"`
	ExportedAt  time.Time    `json:"exported_at"`
}

// Export serializes the full store state to JSON.
func (s *Store) Export() ([]byte, error) {
	entries, err := s.Entries()
	if err != nil {
		return nil, err
	}
	cps, err := s.Checkpoints()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(exportedState{
		History:     entries,
		Checkpoints: cps,
		ExportedAt:  time.Now().UTC(),
	}, "", "  ")
}

// Import replaces the store contents with a previously exported state.
func (s *Store) Import(data []byte) error {
	var state exportedState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("import history: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.deletePrefix(historyPrefix); err != nil {
		return err
	}
	if err := s.deletePrefix(checkpointPrefix); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, e := range state.History {
			data, err := json.Marshal(e)
			if err != nil {
				return err
			}
			if err := txn.Set(historyKey(e.Timestamp), data); err != nil {
				return err
			}
		}
		for _, cp := range state.Checkpoints {
			data, err := json.Marshal(cp)
			if err != nil {
				return err
			}
			if err := txn.Set(checkpointKey(cp.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// historyKey encodes the timestamp reversed so an ascending prefix scan
// yields newest entries first.
func historyKey(ts time.Time) []byte {
	return fmt.Appendf(nil, "h:%020d", math.MaxInt64-ts.UnixNano())
}

func checkpointKey(id string) []byte {
	return append(append([]byte{}, checkpointPrefix...), id...)
}

func scanHistory(txn *badger.Txn) ([][]byte, []Entry, error) {
	var keys [][]byte
	var entries []Entry

	opts := badger.DefaultIteratorOptions
	opts.Prefix = historyPrefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(historyPrefix); it.ValidForPrefix(historyPrefix); it.Next() {
		item := it.Item()
		var e Entry
		err := item.Value(func(v []byte) error {
			return json.Unmarshal(v, &e)
		})
		if err != nil {
			return nil, nil, err
		}
		keys = append(keys, item.KeyCopy(nil))
		entries = append(entries, e)
	}
	return keys, entries, nil
}

func scanCheckpoints(txn *badger.Txn) ([]Checkpoint, error) {
	var cps []Checkpoint

	opts := badger.DefaultIteratorOptions
	opts.Prefix = checkpointPrefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(checkpointPrefix); it.ValidForPrefix(checkpointPrefix); it.Next() {
		var cp Checkpoint
		err := it.Item().Value(func(v []byte) error {
			return json.Unmarshal(v, &cp)
		})
		if err != nil {
			return nil, err
		}
		cps = append(cps, cp)
	}
	return cps, nil
}

func sortCheckpoints(cps []Checkpoint) {
	sort.Slice(cps, func(i, j int) bool {
		return cps[i].Timestamp.After(cps[j].Timestamp)
	})
}

func (s *Store) deletePrefix(prefix []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)

		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
