package snapshot

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var ErrNotDirectory = errors.New("not a directory")

// Builder assembles a directory snapshot incrementally from sub-results.
// Seal turns it into an immutable Node; a sealed builder rejects further
// additions by panicking.
type Builder struct {
	root   *builderNode
	sealed *Node
}

type builderNode struct {
	absPath  string
	node     *Node
	children []*builderNode
	index    map[string]int
}

func NewBuilder(absPath string) *Builder {
	return &Builder{root: newBuilderDir(absPath)}
}

func newBuilderDir(absPath string) *builderNode {
	return &builderNode{absPath: absPath, index: make(map[string]int)}
}

// Add inserts child at segments[offset:] below the builder root. Missing
// intermediate directories are created. An existing entry with the same name
// is replaced in place.
func (b *Builder) Add(segments []string, offset int, child *Node) error {
	if b.sealed != nil {
		panic(&ImmutableMutationError{Path: b.root.absPath})
	}
	if offset < 0 || offset >= len(segments) {
		return fmt.Errorf("add %s: offset %d out of range", strings.Join(segments, "/"), offset)
	}
	if name := segments[len(segments)-1]; name != child.Name() {
		return fmt.Errorf("add %s: segment %q does not match snapshot name %q", strings.Join(segments, "/"), name, child.Name())
	}

	parent := b.root
	for _, seg := range segments[offset : len(segments)-1] {
		next, err := parent.ensureDir(seg)
		if err != nil {
			return fmt.Errorf("add %s: %w", strings.Join(segments, "/"), err)
		}
		parent = next
	}
	parent.put(&builderNode{absPath: child.AbsolutePath(), node: child})
	return nil
}

func (bn *builderNode) ensureDir(name string) (*builderNode, error) {
	i, ok := bn.index[name]
	if !ok {
		dir := newBuilderDir(filepath.Join(bn.absPath, name))
		bn.put(dir)
		return dir, nil
	}

	existing := bn.children[i]
	if existing.node == nil {
		return existing, nil
	}
	switch existing.node.Type() {
	case Directory:
		// reopen a sealed subtree so more children can be merged into it
		dir := newBuilderDir(existing.absPath)
		for c := range existing.node.Children() {
			dir.put(&builderNode{absPath: c.AbsolutePath(), node: c})
		}
		bn.children[i] = dir
		return dir, nil
	case Missing:
		dir := newBuilderDir(existing.absPath)
		bn.children[i] = dir
		return dir, nil
	}
	return nil, fmt.Errorf("%s: %w", existing.absPath, ErrNotDirectory)
}

func (bn *builderNode) put(child *builderNode) {
	name := filepath.Base(child.absPath)
	if i, ok := bn.index[name]; ok {
		bn.children[i] = child
		return
	}
	bn.index[name] = len(bn.children)
	bn.children = append(bn.children, child)
}

func (bn *builderNode) seal() *Node {
	if bn.node != nil {
		return bn.node
	}
	children := make([]*Node, 0, len(bn.children))
	for _, c := range bn.children {
		children = append(children, c.seal())
	}
	return NewDirectory(bn.absPath, children)
}

// Seal returns the immutable snapshot. Calling it again returns the same node.
func (b *Builder) Seal() *Node {
	if b.sealed == nil {
		b.sealed = b.root.seal()
	}
	return b.sealed
}
