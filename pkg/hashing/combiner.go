package hashing

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"
)

// Sentinels are SHA-256 digests of fixed tags so they do not depend on the
// configured content algorithm.
var (
	MissingHash        = tagHash("snapcheck/missing")
	DirSignature       = tagHash("snapcheck/directory")
	EmptyAggregateHash = tagHash("snapcheck/empty-fingerprint")
)

func tagHash(tag string) Hash {
	return Hash(sha256.Sum256([]byte(tag)))
}

// Combiner folds strings and hashes into a single SHA-256 hash. Every string
// is length prefixed, so ("ab", "c") and ("a", "bc") combine differently.
type Combiner struct {
	h   hash.Hash
	buf [binary.MaxVarintLen64]byte
}

func NewCombiner() *Combiner {
	return &Combiner{h: sha256.New()}
}

func (c *Combiner) PutString(s string) {
	n := binary.PutUvarint(c.buf[:], uint64(len(s)))
	c.h.Write(c.buf[:n])
	c.h.Write([]byte(s))
}

func (c *Combiner) PutHash(h Hash) {
	c.h.Write(h[:])
}

func (c *Combiner) PutInt(v int) {
	n := binary.PutVarint(c.buf[:], int64(v))
	c.h.Write(c.buf[:n])
}

func (c *Combiner) Sum() Hash {
	return fromDigest(c.h.Sum(nil))
}
