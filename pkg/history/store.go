// Package history persists the fingerprints of previous executions, keyed by
// task and property.
package history

import (
	"sync"

	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/fingerprint"
)

// Store loads and stores fingerprints. Load returns (nil, nil) when nothing
// was stored for the key.
type Store interface {
	Load(task, property string) (*fingerprint.Fingerprint, error)
	Store(task, property string, fp *fingerprint.Fingerprint) error
}

type memoryKey struct {
	task     string
	property string
}

// MemoryStore keeps fingerprints in memory. Fingerprints are immutable, so
// they are stored by reference.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[memoryKey]*fingerprint.Fingerprint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[memoryKey]*fingerprint.Fingerprint)}
}

func (s *MemoryStore) Load(task, property string) (*fingerprint.Fingerprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[memoryKey{task, property}], nil
}

func (s *MemoryStore) Store(task, property string, fp *fingerprint.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[memoryKey{task, property}] = fp
	return nil
}
