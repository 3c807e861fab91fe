package fingerprint

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/hashing"
	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/snapshot"
)

// CollisionPolicy decides what happens when two entries normalize to the
// same key with different content.
type CollisionPolicy int

const (
	// LastWins keeps the position of the first entry and the value of the
	// last one.
	LastWins CollisionPolicy = iota
	// Fail makes Build return a *CollisionError.
	Fail
	// Merge combines the hashes of all colliding entries in encounter order.
	Merge
)

var collisionPolicyNames = [...]string{
	LastWins: "last-wins",
	Fail:     "fail",
	Merge:    "merge",
}

func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	if s == "" {
		return LastWins, nil
	}
	for i, n := range collisionPolicyNames {
		if strings.EqualFold(n, s) {
			return CollisionPolicy(i), nil
		}
	}
	return 0, fmt.Errorf("unknown collision policy %q", s)
}

func (p CollisionPolicy) String() string {
	if p < LastWins || p > Merge {
		return fmt.Sprintf("CollisionPolicy(%d)", int(p))
	}
	return collisionPolicyNames[p]
}

type Source struct {
	Root string
	Path string
}

type Collision struct {
	Key     string
	Sources []Source
}

type CollisionError struct {
	Collisions []Collision
}

func (e *CollisionError) Error() string {
	parts := make([]string, 0, len(e.Collisions))
	for _, c := range e.Collisions {
		sources := make([]string, 0, len(c.Sources))
		for _, s := range c.Sources {
			sources = append(sources, s.Root+":"+s.Path)
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", c.Key, strings.Join(sources, ", ")))
	}
	return fmt.Sprintf("%d normalized path(s) collide: %s", len(e.Collisions), strings.Join(parts, "; "))
}

type Options struct {
	// CaseInsensitive folds keys to lower case. Entry.Path keeps the case
	// found on disk.
	CaseInsensitive bool
	Collisions      CollisionPolicy
	Logger          *zerolog.Logger
}

// Build normalizes roots with strategy into a fingerprint. Entries follow the
// order of roots and, within a root, the walk order of the snapshot (name
// order for Relative).
func Build(roots []Root, strategy Strategy, opts Options) (*Fingerprint, error) {
	if !strategy.valid() {
		return nil, fmt.Errorf("build fingerprint: unknown strategy %d", int(strategy))
	}
	logger := opts.Logger
	if logger == nil {
		logger = &log.Logger
	}

	if strategy == Ignored {
		// the single key does not depend on case
		return newFingerprint(strategy, false, collapseIgnored(roots)), nil
	}

	b := &entryBuilder{
		policy: opts.Collisions,
		index:  make(map[string]int),
		log:    logger,
	}
	normalize := normalizers[strategy]
	for _, root := range roots {
		if root.Node == nil {
			continue
		}
		normalize(root, opts.CaseInsensitive, b.add)
	}

	entries, err := b.finish()
	if err != nil {
		return nil, err
	}
	return newFingerprint(strategy, opts.CaseInsensitive, entries), nil
}

type entryBuilder struct {
	policy     CollisionPolicy
	entries    []Entry
	index      map[string]int
	collisions []Collision
	collided   map[string]int
	merged     map[string][]hashing.Hash
	log        *zerolog.Logger
}

func (b *entryBuilder) add(e Entry) {
	i, ok := b.index[e.Key]
	if !ok {
		b.index[e.Key] = len(b.entries)
		b.entries = append(b.entries, e)
		return
	}

	prev := b.entries[i]
	if b.policy == Merge {
		// every occurrence counts, including repeats of the current winner
		if b.merged == nil {
			b.merged = make(map[string][]hashing.Hash)
		}
		if _, ok := b.merged[e.Key]; !ok {
			b.merged[e.Key] = []hashing.Hash{prev.Hash}
		}
		b.merged[e.Key] = append(b.merged[e.Key], e.Hash)
	}
	if prev.Hash == e.Hash && prev.Type == e.Type {
		return
	}
	b.recordCollision(prev, e)

	switch b.policy {
	case LastWins:
		b.log.Debug().Str("key", e.Key).Str("root", e.Root).Str("shadowed_root", prev.Root).Msg("Normalized path shadowed by later root")
		b.entries[i] = e
	case Merge:
		b.entries[i] = e
	}
}

func (b *entryBuilder) recordCollision(prev, e Entry) {
	if b.collided == nil {
		b.collided = make(map[string]int)
	}
	ci, ok := b.collided[e.Key]
	if !ok {
		ci = len(b.collisions)
		b.collided[e.Key] = ci
		b.collisions = append(b.collisions, Collision{
			Key:     e.Key,
			Sources: []Source{{Root: prev.Root, Path: prev.AbsolutePath}},
		})
	}
	b.collisions[ci].Sources = append(b.collisions[ci].Sources, Source{Root: e.Root, Path: e.AbsolutePath})
}

func (b *entryBuilder) finish() ([]Entry, error) {
	if b.policy == Fail && len(b.collisions) > 0 {
		return nil, &CollisionError{Collisions: b.collisions}
	}
	for key, hashes := range b.merged {
		if _, collided := b.collided[key]; !collided {
			continue
		}
		c := hashing.NewCombiner()
		for _, h := range hashes {
			c.PutHash(h)
		}
		b.entries[b.index[key]].Hash = c.Sum()
	}
	return b.entries, nil
}

// collapseIgnored reduces all files of all roots to one entry whose hash
// combines the file hashes in sorted order.
func collapseIgnored(roots []Root) []Entry {
	var hashes []hashing.Hash
	var last Entry
	for _, root := range roots {
		if root.Node == nil {
			continue
		}
		ignoredPaths(root, false, func(e Entry) {
			hashes = append(hashes, e.Hash)
			last = e
		})
	}
	if len(hashes) == 0 {
		return nil
	}

	slices.SortFunc(hashes, hashing.Compare)
	c := hashing.NewCombiner()
	for _, h := range hashes {
		c.PutHash(h)
	}
	return []Entry{{
		Key:  IgnoredKey,
		Path: IgnoredKey,
		Hash: c.Sum(),
		Type: snapshot.RegularFile,
		Root: last.Root,
	}}
}
