package memory

import (
	"sort"
	"sync"

	"github.com/yndnr/minidb-go/internal/core/domain"
	"github.com/yndnr/minidb-go/pkg/cmap"
)

// Store holds at most one value per key.
type Store struct {
	records *cmap.Map[string]

	// Shared by single-key operations, exclusive for whole-store views.
	mu sync.RWMutex
}

// Option configures the Store.
type Option func(*storeOptions)

type storeOptions struct {
	shards int
}

// WithShards sets the number of map shards (must be a power of two).
func WithShards(n int) Option {
	return func(o *storeOptions) {
		o.shards = n
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	o := storeOptions{shards: cmap.DefaultShardCount}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{records: cmap.NewWithShards[string](o.shards)}
}

// Insert sets key to value, replacing any previous value.
// It reports whether the key already existed.
func (s *Store) Insert(key, value string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records.Set(key, value)
}

// Lookup returns the value stored under key, or domain.ErrKeyNotFound.
func (s *Store) Lookup(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.records.Get(key)
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return v, nil
}

// Remove deletes key, or returns domain.ErrKeyNotFound if it is absent.
func (s *Store) Remove(key string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.records.Delete(key); !ok {
		return domain.ErrKeyNotFound
	}
	return nil
}

// Len returns the number of keys.
func (s *Store) Len() int {
	return s.records.Count()
}

// Snapshot returns every record, sorted by key, as of one instant.
func (s *Store) Snapshot() []domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Record, 0, s.records.Count())
	s.records.Range(func(k, v string) bool {
		out = append(out, domain.Record{Key: k, Value: v})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Restore replaces the store's contents with records.
// Later duplicates of a key win.
func (s *Store) Restore(records []domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records.Clear()
	for _, r := range records {
		s.records.Set(r.Key, r.Value)
	}
}
