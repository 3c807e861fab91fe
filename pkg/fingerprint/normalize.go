package fingerprint

import (
	"strings"

	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/hashing"
	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/snapshot"
)

// IgnoredKey is the only key of a fingerprint built with Ignored.
const IgnoredKey = "<ignored>"

// Root is a snapshot together with the label it was declared under.
type Root struct {
	Label string
	Node  *snapshot.Node
}

type emitFunc func(Entry)

type normalizer func(root Root, fold bool, emit emitFunc)

var normalizers = [...]normalizer{
	Absolute: absolutePaths(true),
	Output:   absolutePaths(false),
	Relative: relativePaths,
	NameOnly: fileNames,
	Ignored:  ignoredPaths,
}

func newEntry(root Root, n *snapshot.Node, path string, fold bool) Entry {
	key := path
	if fold {
		key = strings.ToLower(path)
	}
	h := n.Hash()
	if n.Type() == snapshot.Directory {
		h = hashing.DirSignature
	}
	return Entry{
		Key:          key,
		Path:         path,
		AbsolutePath: n.AbsolutePath(),
		Hash:         h,
		Type:         n.Type(),
		Root:         root.Label,
	}
}

func absolutePaths(includeRoot bool) normalizer {
	return func(root Root, fold bool, emit emitFunc) {
		var visit func(n *snapshot.Node, isRoot bool)
		visit = func(n *snapshot.Node, isRoot bool) {
			switch n.Type() {
			case snapshot.RegularFile:
				emit(newEntry(root, n, n.AbsolutePath(), fold))
			case snapshot.Directory:
				if !isRoot || includeRoot {
					emit(newEntry(root, n, n.AbsolutePath(), fold))
				}
				for c := range n.Children() {
					visit(c, false)
				}
			}
		}
		visit(root.Node, true)
	}
}

func relativePaths(root Root, fold bool, emit emitFunc) {
	var visit func(n *snapshot.Node, rel string)
	visit = func(n *snapshot.Node, rel string) {
		switch n.Type() {
		case snapshot.RegularFile:
			emit(newEntry(root, n, rel, fold))
		case snapshot.Directory:
			for c := range n.SortedChildren() {
				visit(c, joinRel(rel, c.Name()))
			}
		}
	}

	n := root.Node
	switch n.Type() {
	case snapshot.RegularFile:
		emit(newEntry(root, n, n.Name(), fold))
	case snapshot.Directory:
		for c := range n.SortedChildren() {
			visit(c, c.Name())
		}
	}
}

func joinRel(parent, name string) string {
	return parent + "/" + name
}

func fileNames(root Root, fold bool, emit emitFunc) {
	var visit func(n *snapshot.Node)
	visit = func(n *snapshot.Node) {
		switch n.Type() {
		case snapshot.RegularFile:
			emit(newEntry(root, n, n.Name(), fold))
		case snapshot.Directory:
			for c := range n.Children() {
				visit(c)
			}
		}
	}
	visit(root.Node)
}

// ignoredPaths emits every file under IgnoredKey; Build collapses them.
func ignoredPaths(root Root, _ bool, emit emitFunc) {
	var visit func(n *snapshot.Node)
	visit = func(n *snapshot.Node) {
		switch n.Type() {
		case snapshot.RegularFile:
			emit(newEntry(root, n, IgnoredKey, false))
		case snapshot.Directory:
			for c := range n.Children() {
				visit(c)
			}
		}
	}
	visit(root.Node)
}
