// Package fingerprint normalizes snapshots into fingerprints: ordered maps
// from comparison key to content hash, summarized by an aggregate hash.
package fingerprint

import (
	"iter"
	"slices"
	"strings"

	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/hashing"
	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/snapshot"
)

// Entry is one normalized path of a fingerprint.
type Entry struct {
	// Key is the comparison key. It equals Path unless keys are case folded.
	Key  string
	Path string
	// AbsolutePath of the snapshot the entry came from. Not part of the
	// comparison.
	AbsolutePath string
	Hash         hashing.Hash
	Type         snapshot.Type
	// Root is the label of the root that contributed the entry.
	Root string
}

// Fingerprint is immutable and safe for concurrent use.
type Fingerprint struct {
	strategy  Strategy
	folded    bool
	entries   []Entry
	index     map[string]int
	aggregate hashing.Hash
}

// Empty returns the fingerprint without entries.
func Empty(strategy Strategy) *Fingerprint {
	return newFingerprint(strategy, false, nil)
}

// newFingerprint takes ownership of entries, whose keys must be unique.
func newFingerprint(strategy Strategy, folded bool, entries []Entry) *Fingerprint {
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		index[e.Key] = i
	}
	return &Fingerprint{
		strategy:  strategy,
		folded:    folded,
		entries:   entries,
		index:     index,
		aggregate: aggregateHash(strategy, entries),
	}
}

// aggregateHash combines (key, type, hash) of all entries. Order-insensitive
// strategies are combined in key order.
func aggregateHash(strategy Strategy, entries []Entry) hashing.Hash {
	if len(entries) == 0 {
		return hashing.EmptyAggregateHash
	}
	ordered := entries
	if !strategy.OrderSensitive() {
		ordered = slices.Clone(entries)
		slices.SortStableFunc(ordered, func(a, b Entry) int {
			return strings.Compare(a.Key, b.Key)
		})
	}

	c := hashing.NewCombiner()
	for _, e := range ordered {
		c.PutString(e.Key)
		c.PutInt(int(e.Type))
		c.PutHash(e.Hash)
	}
	return c.Sum()
}

func (f *Fingerprint) Strategy() Strategy          { return f.strategy }
func (f *Fingerprint) AggregateHash() hashing.Hash { return f.aggregate }
func (f *Fingerprint) Len() int                    { return len(f.entries) }

// CaseInsensitive reports whether the keys were folded to lower case.
func (f *Fingerprint) CaseInsensitive() bool { return f.folded }

func (f *Fingerprint) Get(key string) (Entry, bool) {
	i, ok := f.index[key]
	if !ok {
		return Entry{}, false
	}
	return f.entries[i], true
}

// Entries yields the entries in insertion order.
func (f *Fingerprint) Entries() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, e := range f.entries {
			if !yield(e) {
				return
			}
		}
	}
}
