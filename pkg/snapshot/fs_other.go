//go:build !linux

package snapshot

import (
	"io/fs"
	"os"
	"path/filepath"
)

// readDirNames lists a directory in the order the OS returns the entries.
func readDirNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

type identity struct {
	realPath string
}

func identityOf(path string, _ fs.FileInfo) (identity, bool) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return identity{}, false
	}
	return identity{realPath: resolved}, true
}

func inodeOf(fs.FileInfo) uint64 {
	return 0
}
