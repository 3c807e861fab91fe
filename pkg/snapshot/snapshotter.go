package snapshot

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/hashcache"
	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/hashing"
)

const DefaultWorkers = 4

type Options struct {
	// Algorithm hashes file contents. The zero value selects SHA256.
	Algorithm hashing.Algorithm
	// HashFile replaces Algorithm.HashFile, e.g. to read through another
	// file system layer. Optional.
	HashFile func(path string) (hashing.Hash, error)
	// Cache memoizes content hashes across walks. Optional; a cache must only
	// be shared by snapshotters using the same algorithm.
	Cache *hashcache.Cache
	// SkipSymlinks leaves symlinks out of directory snapshots instead of
	// following them. A symlinked root is always followed.
	SkipSymlinks bool
	// Workers bounds the number of roots walked concurrently by WalkAll.
	Workers int
	Logger  *zerolog.Logger
}

type Snapshotter struct {
	opts Options
	log  *zerolog.Logger
}

func New(opts Options) *Snapshotter {
	if opts.Algorithm.Name() == "" {
		opts.Algorithm = hashing.SHA256
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	logger := opts.Logger
	if logger == nil {
		logger = &log.Logger
	}
	return &Snapshotter{opts: opts, log: logger}
}

// Walk snapshots the file or directory at root. It never fails: paths that
// cannot be read become Missing nodes and are reported as warnings.
func (s *Snapshotter) Walk(root string) (*Node, Warnings) {
	w := &walk{s: s}

	abs, err := filepath.Abs(root)
	if err != nil {
		w.warn(root, "abs", err)
		return NewMissing(root), w.warnings
	}

	node := w.visit(abs, nil, true)
	return node, w.warnings
}

// WalkAll snapshots independent roots concurrently. The returned nodes are
// in the order of roots.
func (s *Snapshotter) WalkAll(roots []string) ([]*Node, Warnings) {
	nodes := make([]*Node, len(roots))
	perRoot := make([]Warnings, len(roots))
	if len(roots) == 0 {
		return nodes, nil
	}

	runner := NewTaskRunner(s.log)
	runner.Start(min(s.opts.Workers, len(roots)))

	var wg sync.WaitGroup
	for i, root := range roots {
		wg.Add(1)
		runner.Schedule(TaskFunc(func() error {
			defer wg.Done()
			nodes[i], perRoot[i] = s.Walk(root)
			return nil
		}))
	}
	wg.Wait()
	runner.Stop()

	return nodes, slices.Concat(perRoot...)
}

type walk struct {
	s        *Snapshotter
	warnings Warnings
}

func (w *walk) warn(path, op string, err error) {
	w.s.log.Warn().Err(err).Str("path", path).Msgf("Failed to %s path, treating it as missing", op)
	w.warnings = append(w.warnings, &AccessError{Path: path, Op: op, Err: err})
}

// visit returns nil for entries that are left out of the snapshot.
func (w *walk) visit(path string, ancestors []identity, isRoot bool) *Node {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewMissing(path)
	}
	if err != nil {
		w.warn(path, "lstat", err)
		return NewMissing(path)
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		if w.s.opts.SkipSymlinks && !isRoot {
			return nil
		}
		info, err = os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			// dangling link
			return NewMissing(path)
		}
		if err != nil {
			w.warn(path, "stat", err)
			return NewMissing(path)
		}
	}

	switch {
	case info.Mode().IsRegular():
		return w.visitFile(path, info)
	case info.IsDir():
		return w.visitDir(path, info, ancestors)
	}

	if isRoot {
		return NewMissing(path)
	}
	w.s.log.Debug().Str("path", path).Str("mode", info.Mode().String()).Msg("Skipping special file")
	return nil
}

func (w *walk) visitFile(path string, info fs.FileInfo) *Node {
	h, err := w.hashFile(path, info)
	if errors.Is(err, fs.ErrNotExist) {
		w.s.log.Debug().Str("path", path).Msg("File vanished during walk")
		return NewMissing(path)
	}
	if err != nil {
		w.warn(path, "hash", err)
		return NewMissing(path)
	}
	return NewFile(path, h, info.Size(), info.ModTime())
}

func (w *walk) hashFile(path string, info fs.FileInfo) (hashing.Hash, error) {
	hashFile := w.s.opts.HashFile
	if hashFile == nil {
		hashFile = w.s.opts.Algorithm.HashFile
	}
	if w.s.opts.Cache == nil {
		return hashFile(path)
	}
	key := hashcache.KeyOf(path, info.Size(), info.ModTime(), inodeOf(info))
	return w.s.opts.Cache.GetOrCompute(key, func() (hashing.Hash, error) {
		return hashFile(path)
	})
}

func (w *walk) visitDir(path string, info fs.FileInfo, ancestors []identity) *Node {
	id, ok := identityOf(path, info)
	if ok {
		if slices.Contains(ancestors, id) {
			w.warn(path, "walk", ErrSymlinkCycle)
			return NewMissing(path)
		}
		ancestors = append(ancestors, id)
	}

	names, err := readDirNames(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewMissing(path)
	}
	if err != nil {
		w.warn(path, "read", err)
		return NewMissing(path)
	}

	children := make([]*Node, 0, len(names))
	for _, name := range names {
		child := w.visit(filepath.Join(path, name), ancestors, false)
		if child != nil {
			children = append(children, child)
		}
	}
	return NewDirectory(path, children)
}
