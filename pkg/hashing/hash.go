// Package hashing holds the content hash value type, the pluggable content
// hash algorithms and the canonical combiner used for directory, marker and
// aggregate hashes.
package hashing

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

const Size = 32

// Hash is a fixed size digest. Algorithms with shorter digests are stored
// left-aligned and zero padded.
type Hash [Size]byte

// Zero is the all-zero hash. No algorithm or sentinel produces it.
var Zero Hash

func ParseHash(s string) (Hash, error) {
	var h Hash
	if len(s) != hex.EncodedLen(Size) {
		return h, fmt.Errorf("parse hash %q: want %d hex chars, got %d", s, hex.EncodedLen(Size), len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, fmt.Errorf("parse hash %q: %w", s, err)
	}
	return h, nil
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) IsZero() bool {
	return h == Zero
}

func Compare(a, b Hash) int {
	return bytes.Compare(a[:], b[:])
}

func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

func fromDigest(sum []byte) Hash {
	var h Hash
	copy(h[:], sum)
	return h
}
