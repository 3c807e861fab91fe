// Package hashcache memoizes file content hashes by file identity.
//
// Entries are keyed by path, size, modification time and inode, so a file
// rewritten in place with new content gets a new key. The cache is bounded
// and evicts the least recently used entry. Concurrent requests for the same
// key share one computation.
package hashcache

import (
	"fmt"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/hashing"
)

// DefaultSize keeps roughly 6 MiB of keys and hashes for typical path lengths.
const DefaultSize = 64 * 1024

type Key struct {
	Path    string
	Size    int64
	ModTime int64
	Inode   uint64
}

func KeyOf(path string, size int64, modTime time.Time, inode uint64) Key {
	return Key{Path: path, Size: size, ModTime: modTime.UnixNano(), Inode: inode}
}

func (k Key) String() string {
	return k.Path + "\x00" + strconv.FormatInt(k.Size, 10) + "\x00" +
		strconv.FormatInt(k.ModTime, 10) + "\x00" + strconv.FormatUint(k.Inode, 10)
}

type Cache struct {
	entries *lru.Cache[Key, hashing.Hash]
	flights singleflight.Group
	metrics *metrics
	log     zerolog.Logger
}

// New creates a cache holding at most size hashes. size <= 0 selects
// DefaultSize. reg may be nil, in which case metrics are kept but not
// registered. A nil logger selects the global logger.
func New(size int, reg prometheus.Registerer, logger *zerolog.Logger) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[Key, hashing.Hash](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}

	if logger == nil {
		logger = &log.Logger
	}

	m := newMetrics()
	if reg != nil {
		if err := m.register(reg); err != nil {
			return nil, err
		}
	}

	return &Cache{
		entries: entries,
		metrics: m,
		log:     logger.With().Str("component", "hashcache").Logger(),
	}, nil
}

// GetOrCompute returns the cached hash for key or runs compute. While one
// computation for a key is running, other callers for the same key wait for
// its result. Errors are returned to every waiting caller and not cached.
func (c *Cache) GetOrCompute(key Key, compute func() (hashing.Hash, error)) (hashing.Hash, error) {
	if h, ok := c.entries.Get(key); ok {
		c.metrics.hits.Inc()
		return h, nil
	}

	v, err, _ := c.flights.Do(key.String(), func() (any, error) {
		// a flight that finished just before this one started already stored the hash
		if h, ok := c.entries.Get(key); ok {
			c.metrics.hits.Inc()
			return h, nil
		}

		c.metrics.misses.Inc()
		h, err := compute()
		if err != nil {
			c.metrics.errors.Inc()
			return nil, err
		}
		c.entries.Add(key, h)
		c.log.Debug().Str("path", key.Path).Str("hash", h.String()).Msg("Computed content hash")
		return h, nil
	})
	if err != nil {
		return hashing.Zero, err
	}
	return v.(hashing.Hash), nil
}

func (c *Cache) Len() int {
	return c.entries.Len()
}
