// Package snapshot builds immutable trees describing the state of files and
// directories on disk.
package snapshot

import (
	"iter"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/hashing"
)

type Type int

const (
	RegularFile Type = iota
	Directory
	Missing
)

func (t Type) String() string {
	switch t {
	case RegularFile:
		return "file"
	case Directory:
		return "directory"
	case Missing:
		return "missing"
	}
	return "unknown"
}

// Node is an immutable snapshot of a file, a directory with its children or
// a path that does not exist.
type Node struct {
	absPath  string
	name     string
	typ      Type
	hash     hashing.Hash
	size     int64
	modTime  time.Time
	children []*Node
	sorted   []*Node
}

func NewFile(absPath string, hash hashing.Hash, size int64, modTime time.Time) *Node {
	return &Node{
		absPath: absPath,
		name:    filepath.Base(absPath),
		typ:     RegularFile,
		hash:    hash,
		size:    size,
		modTime: modTime,
	}
}

func NewMissing(absPath string) *Node {
	return &Node{
		absPath: absPath,
		name:    filepath.Base(absPath),
		typ:     Missing,
		hash:    hashing.MissingHash,
	}
}

// NewDirectory creates a directory node. children keep their order; the
// directory hash combines (name, hash) of the children sorted by name.
func NewDirectory(absPath string, children []*Node) *Node {
	n := &Node{
		absPath:  absPath,
		name:     filepath.Base(absPath),
		typ:      Directory,
		children: slices.Clone(children),
	}
	n.sorted = slices.Clone(children)
	slices.SortStableFunc(n.sorted, func(a, b *Node) int {
		return strings.Compare(a.name, b.name)
	})

	c := hashing.NewCombiner()
	for _, child := range n.sorted {
		c.PutString(child.name)
		c.PutHash(child.hash)
	}
	n.hash = c.Sum()
	return n
}

func (n *Node) AbsolutePath() string { return n.absPath }
func (n *Node) Name() string         { return n.name }
func (n *Node) Type() Type           { return n.typ }
func (n *Node) Hash() hashing.Hash   { return n.hash }
func (n *Node) Size() int64          { return n.size }
func (n *Node) ModTime() time.Time   { return n.modTime }
func (n *Node) Len() int             { return len(n.children) }

// Children yields the children in the order they were read from disk.
func (n *Node) Children() iter.Seq[*Node] {
	return slices.Values(n.children)
}

// SortedChildren yields the children ordered by name.
func (n *Node) SortedChildren() iter.Seq[*Node] {
	return slices.Values(n.sorted)
}

func (n *Node) Child(name string) (*Node, bool) {
	i, found := slices.BinarySearchFunc(n.sorted, name, func(c *Node, name string) int {
		return strings.Compare(c.name, name)
	})
	if !found {
		return nil, false
	}
	return n.sorted[i], true
}
