package hashing

import (
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Algorithm computes content hashes of regular files.
type Algorithm struct {
	name string
	new  func() hash.Hash
}

var (
	SHA256   = Algorithm{name: "sha256", new: sha256.New}
	XXHash64 = Algorithm{name: "xxhash", new: func() hash.Hash { return xxhash.New() }}
)

var algorithms = []Algorithm{SHA256, XXHash64}

// ParseAlgorithm resolves an algorithm by name. The empty name selects SHA256.
func ParseAlgorithm(name string) (Algorithm, error) {
	if name == "" {
		return SHA256, nil
	}
	for _, a := range algorithms {
		if strings.EqualFold(a.name, name) {
			return a, nil
		}
	}
	return Algorithm{}, fmt.Errorf("unknown hash algorithm %q", name)
}

func (a Algorithm) Name() string {
	return a.name
}

func (a Algorithm) String() string {
	return a.name
}

func (a Algorithm) newHash() hash.Hash {
	if a.new == nil {
		return sha256.New()
	}
	return a.new()
}

func (a Algorithm) HashBytes(b []byte) Hash {
	h := a.newHash()
	h.Write(b)
	return fromDigest(h.Sum(nil))
}

func (a Algorithm) HashReader(r io.Reader) (Hash, error) {
	h := a.newHash()
	if _, err := io.Copy(h, r); err != nil {
		return Zero, err
	}
	return fromDigest(h.Sum(nil)), nil
}

func (a Algorithm) HashFile(path string) (Hash, error) {
	f, err := os.Open(path)
	if err != nil {
		return Zero, err
	}
	defer f.Close()

	sum, err := a.HashReader(f)
	if err != nil {
		return Zero, fmt.Errorf("hash %s: %w", path, err)
	}
	return sum, nil
}
