package fingerprint_test

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/fingerprint"
	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/hashing"
	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/snapshot"
)

func file(path, content string) *snapshot.Node {
	return snapshot.NewFile(path, hashing.SHA256.HashBytes([]byte(content)), int64(len(content)), time.Unix(0, 0))
}

func dir(path string, children ...*snapshot.Node) *snapshot.Node {
	return snapshot.NewDirectory(path, children)
}

// sample is /root { a.txt, sub { b.txt, deep { c.txt } } }
func sample() *snapshot.Node {
	return dir("/root",
		file("/root/a.txt", "1"),
		dir("/root/sub",
			file("/root/sub/b.txt", "2"),
			dir("/root/sub/deep", file("/root/sub/deep/c.txt", "3")),
		),
	)
}

func build(t *testing.T, strategy fingerprint.Strategy, roots ...*snapshot.Node) *fingerprint.Fingerprint {
	t.Helper()
	var rs []fingerprint.Root
	for i, n := range roots {
		rs = append(rs, fingerprint.Root{Label: string(rune('A' + i)), Node: n})
	}
	fp, err := fingerprint.Build(rs, strategy, fingerprint.Options{})
	require.NoError(t, err)
	return fp
}

func keys(fp *fingerprint.Fingerprint) []string {
	var out []string
	for e := range fp.Entries() {
		out = append(out, e.Key)
	}
	return out
}

func TestStrategyKeys(t *testing.T) {
	tests := []struct {
		strategy fingerprint.Strategy
		want     []string
	}{
		{fingerprint.Absolute, []string{"/root", "/root/a.txt", "/root/sub", "/root/sub/b.txt", "/root/sub/deep", "/root/sub/deep/c.txt"}},
		{fingerprint.Output, []string{"/root/a.txt", "/root/sub", "/root/sub/b.txt", "/root/sub/deep", "/root/sub/deep/c.txt"}},
		{fingerprint.Relative, []string{"a.txt", "sub/b.txt", "sub/deep/c.txt"}},
		{fingerprint.NameOnly, []string{"a.txt", "b.txt", "c.txt"}},
		{fingerprint.Ignored, []string{fingerprint.IgnoredKey}},
	}
	for _, tt := range tests {
		t.Run(tt.strategy.String(), func(t *testing.T) {
			fp := build(t, tt.strategy, sample())
			if diff := cmp.Diff(tt.want, keys(fp)); diff != "" {
				t.Errorf("keys mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.strategy, fp.Strategy())
		})
	}
}

func TestDirectoryEntriesUseSignature(t *testing.T) {
	fp := build(t, fingerprint.Absolute, sample())
	e, ok := fp.Get("/root/sub")
	require.True(t, ok)
	assert.Equal(t, hashing.DirSignature, e.Hash)
	assert.Equal(t, snapshot.Directory, e.Type)
	assert.Equal(t, "A", e.Root)

	f, ok := fp.Get("/root/a.txt")
	require.True(t, ok)
	assert.Equal(t, hashing.SHA256.HashBytes([]byte("1")), f.Hash)
}

func TestFileRoots(t *testing.T) {
	root := file("/libs/x.jar", "x")

	assert.Equal(t, []string{"x.jar"}, keys(build(t, fingerprint.Relative, root)))
	assert.Equal(t, []string{"/libs/x.jar"}, keys(build(t, fingerprint.Output, root)))
	assert.Equal(t, []string{"/libs/x.jar"}, keys(build(t, fingerprint.Absolute, root)))
}

func TestEmptyFingerprints(t *testing.T) {
	emptyDir := dir("/root")
	missing := snapshot.NewMissing("/gone")

	for _, s := range []fingerprint.Strategy{fingerprint.Output, fingerprint.Relative, fingerprint.NameOnly, fingerprint.Ignored} {
		for _, roots := range [][]*snapshot.Node{nil, {missing}, {emptyDir}, {missing, emptyDir}} {
			fp := build(t, s, roots...)
			assert.Equal(t, 0, fp.Len(), s.String())
			assert.Equal(t, hashing.EmptyAggregateHash, fp.AggregateHash(), s.String())
		}
	}

	for _, roots := range [][]*snapshot.Node{nil, {missing}} {
		fp := build(t, fingerprint.Absolute, roots...)
		assert.Equal(t, 0, fp.Len())
		assert.Equal(t, hashing.EmptyAggregateHash, fp.AggregateHash())
	}

	assert.Equal(t, hashing.EmptyAggregateHash, fingerprint.Empty(fingerprint.Relative).AggregateHash())
}

func TestEmptyDirectoryRootFingerprintedTwice(t *testing.T) {
	root := t.TempDir()
	s := snapshot.New(snapshot.Options{})

	for range 2 {
		node, warnings := s.Walk(root)
		require.Empty(t, warnings)
		fp, err := fingerprint.Build([]fingerprint.Root{{Label: "in", Node: node}}, fingerprint.Relative, fingerprint.Options{})
		require.NoError(t, err)
		assert.Equal(t, 0, fp.Len())
		assert.Equal(t, hashing.EmptyAggregateHash, fp.AggregateHash())
	}
}

func TestIdempotentOnDisk(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("2"), 0o644))

	s := snapshot.New(snapshot.Options{})
	var fps []*fingerprint.Fingerprint
	for range 2 {
		node, _ := s.Walk(root)
		fp, err := fingerprint.Build([]fingerprint.Root{{Label: "in", Node: node}}, fingerprint.Relative, fingerprint.Options{})
		require.NoError(t, err)
		fps = append(fps, fp)
	}

	assert.Equal(t, fps[0].AggregateHash(), fps[1].AggregateHash())
	assert.Equal(t, slices.Collect(fps[0].Entries()), slices.Collect(fps[1].Entries()))
}

func TestUnorderedStrategiesIgnoreEnumerationOrder(t *testing.T) {
	a := file("/root/a.txt", "1")
	b := file("/root/b.txt", "2")
	forward := dir("/root", a, b)
	backward := dir("/root", b, a)

	for _, s := range []fingerprint.Strategy{fingerprint.Absolute, fingerprint.Output, fingerprint.NameOnly, fingerprint.Ignored} {
		assert.Equal(t, build(t, s, forward).AggregateHash(), build(t, s, backward).AggregateHash(), s.String())
	}
}

func TestRelativeIsOrderSensitive(t *testing.T) {
	a := file("/root/a.txt", "1")
	b := file("/root/b.txt", "2")

	// enumeration order inside a root is not significant
	forward := build(t, fingerprint.Relative, dir("/root", a, b))
	backward := build(t, fingerprint.Relative, dir("/root", b, a))
	assert.Equal(t, forward.AggregateHash(), backward.AggregateHash())
	assert.Equal(t, []string{"a.txt", "b.txt"}, keys(backward))

	// classpath style: swapping two roots
	x := file("/libs/x.jar", "x")
	y := file("/libs/y.jar", "y")
	assert.NotEqual(t,
		build(t, fingerprint.Relative, x, y).AggregateHash(),
		build(t, fingerprint.Relative, y, x).AggregateHash())
}

func TestRelativeSurvivesRecreatedFile(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(name), 0o644))
	}

	s := snapshot.New(snapshot.Options{})
	fingerprintRoot := func() *fingerprint.Fingerprint {
		node, warnings := s.Walk(root)
		require.Empty(t, warnings)
		fp, err := fingerprint.Build([]fingerprint.Root{{Label: "in", Node: node}}, fingerprint.Relative, fingerprint.Options{})
		require.NoError(t, err)
		return fp
	}

	before := fingerprintRoot()
	require.NoError(t, os.Remove(filepath.Join(root, "a.txt")))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a.txt"), 0o644))
	after := fingerprintRoot()

	assert.Equal(t, before.AggregateHash(), after.AggregateHash())
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, keys(after))
}

func TestAggregateHashReflectsContent(t *testing.T) {
	before := build(t, fingerprint.NameOnly, dir("/root", file("/root/a.txt", "1")))
	after := build(t, fingerprint.NameOnly, dir("/root", file("/root/a.txt", "2")))
	assert.NotEqual(t, before.AggregateHash(), after.AggregateHash())

	ignoredBefore := build(t, fingerprint.Ignored, dir("/root", file("/root/a.txt", "1")))
	ignoredMoved := build(t, fingerprint.Ignored, dir("/other", file("/other/z.txt", "1")))
	assert.Equal(t, ignoredBefore.AggregateHash(), ignoredMoved.AggregateHash())
}

func TestCaseInsensitiveKeys(t *testing.T) {
	root := dir("/root", file("/root/Readme.MD", "1"))
	fp, err := fingerprint.Build([]fingerprint.Root{{Label: "in", Node: root}}, fingerprint.Relative, fingerprint.Options{CaseInsensitive: true})
	require.NoError(t, err)

	e, ok := fp.Get("readme.md")
	require.True(t, ok)
	assert.Equal(t, "Readme.MD", e.Path)

	other, err := fingerprint.Build([]fingerprint.Root{{Label: "in", Node: dir("/root", file("/root/README.md", "1"))}}, fingerprint.Relative, fingerprint.Options{CaseInsensitive: true})
	require.NoError(t, err)
	assert.Equal(t, fp.AggregateHash(), other.AggregateHash())
}

func TestBuildRejectsUnknownStrategy(t *testing.T) {
	_, err := fingerprint.Build(nil, fingerprint.Strategy(42), fingerprint.Options{})
	assert.Error(t, err)
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]fingerprint.Strategy{
		"absolute":  fingerprint.Absolute,
		"OUTPUT":    fingerprint.Output,
		"relative":  fingerprint.Relative,
		"name_only": fingerprint.NameOnly,
		"name-only": fingerprint.NameOnly,
		"ignored":   fingerprint.Ignored,
		"none":      fingerprint.Ignored,
	} {
		got, err := fingerprint.ParseStrategy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := fingerprint.ParseStrategy("content")
	assert.Error(t, err)
}
