package snapshot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/snapshot"
)

func TestBuilderCreatesIntermediateDirectories(t *testing.T) {
	b := snapshot.NewBuilder("/root")
	require.NoError(t, b.Add([]string{"root", "src", "main", "a.go"}, 1, file("/root/src/main/a.go", "package a")))
	require.NoError(t, b.Add([]string{"src", "b.go"}, 0, file("/root/src/b.go", "package b")))

	root := b.Seal()
	assert.Equal(t, snapshot.Directory, root.Type())

	src, ok := root.Child("src")
	require.True(t, ok)
	assert.Equal(t, "/root/src", src.AbsolutePath())
	assert.Equal(t, []string{"main", "b.go"}, names(src.Children()))

	main, ok := src.Child("main")
	require.True(t, ok)
	a, ok := main.Child("a.go")
	require.True(t, ok)
	assert.Equal(t, snapshot.RegularFile, a.Type())
}

func TestBuilderMatchesDirectSnapshot(t *testing.T) {
	b := snapshot.NewBuilder("/root")
	require.NoError(t, b.Add([]string{"dir", "x"}, 0, file("/root/dir/x", "x")))
	require.NoError(t, b.Add([]string{"y"}, 0, file("/root/y", "y")))

	direct := snapshot.NewDirectory("/root", []*snapshot.Node{
		snapshot.NewDirectory("/root/dir", []*snapshot.Node{file("/root/dir/x", "x")}),
		file("/root/y", "y"),
	})
	assert.Equal(t, direct.Hash(), b.Seal().Hash())
}

func TestBuilderMergesIntoSealedSubtree(t *testing.T) {
	sub := snapshot.NewDirectory("/root/dir", []*snapshot.Node{file("/root/dir/x", "x")})

	b := snapshot.NewBuilder("/root")
	require.NoError(t, b.Add([]string{"dir"}, 0, sub))
	require.NoError(t, b.Add([]string{"dir", "y"}, 0, file("/root/dir/y", "y")))

	dir, ok := b.Seal().Child("dir")
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, names(dir.Children()))
}

func TestBuilderReplacesExistingEntry(t *testing.T) {
	b := snapshot.NewBuilder("/root")
	require.NoError(t, b.Add([]string{"a"}, 0, file("/root/a", "old")))
	require.NoError(t, b.Add([]string{"b"}, 0, file("/root/b", "b")))
	require.NoError(t, b.Add([]string{"a"}, 0, file("/root/a", "new")))

	root := b.Seal()
	assert.Equal(t, []string{"a", "b"}, names(root.Children()))
	a, _ := root.Child("a")
	assert.Equal(t, file("/root/a", "new").Hash(), a.Hash())
}

func TestBuilderRejectsChildBelowFile(t *testing.T) {
	b := snapshot.NewBuilder("/root")
	require.NoError(t, b.Add([]string{"a"}, 0, file("/root/a", "1")))

	err := b.Add([]string{"a", "b"}, 0, file("/root/a/b", "2"))
	assert.ErrorIs(t, err, snapshot.ErrNotDirectory)
}

func TestBuilderRejectsBadArguments(t *testing.T) {
	b := snapshot.NewBuilder("/root")
	assert.Error(t, b.Add([]string{"a"}, 1, file("/root/a", "1")))
	assert.Error(t, b.Add([]string{"a"}, 0, file("/root/other", "1")))
}

func TestSealedBuilderPanicsOnAdd(t *testing.T) {
	b := snapshot.NewBuilder("/root")
	require.NoError(t, b.Add([]string{"a"}, 0, file("/root/a", "1")))
	sealed := b.Seal()
	assert.Same(t, sealed, b.Seal())

	assert.PanicsWithError(t, "cannot add children to immutable directory snapshot /root", func() {
		_ = b.Add([]string{"b"}, 0, file("/root/b", "2"))
	})
}
