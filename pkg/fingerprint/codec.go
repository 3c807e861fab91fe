package fingerprint

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/hashing"
	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/snapshot"
)

var ErrCorrupt = errors.New("corrupt fingerprint")

type jsonFingerprint struct {
	Strategy        Strategy     `json:"strategy"`
	CaseInsensitive bool         `json:"caseInsensitive,omitempty"`
	AggregateHash   hashing.Hash `json:"aggregateHash"`
	Entries         []jsonEntry  `json:"entries"`
}

type jsonEntry struct {
	Key          string       `json:"key"`
	Path         string       `json:"path,omitempty"`
	AbsolutePath string       `json:"absolutePath,omitempty"`
	Hash         hashing.Hash `json:"hash"`
	Type         string       `json:"type"`
	Root         string       `json:"root,omitempty"`
}

func (f *Fingerprint) MarshalJSON() ([]byte, error) {
	out := jsonFingerprint{
		Strategy:        f.strategy,
		CaseInsensitive: f.folded,
		AggregateHash:   f.aggregate,
		Entries:         make([]jsonEntry, 0, len(f.entries)),
	}
	for _, e := range f.entries {
		je := jsonEntry{
			Key:          e.Key,
			AbsolutePath: e.AbsolutePath,
			Hash:         e.Hash,
			Type:         e.Type.String(),
			Root:         e.Root,
		}
		if e.Path != e.Key {
			je.Path = e.Path
		}
		out.Entries = append(out.Entries, je)
	}
	return json.Marshal(out)
}

// Decode parses a fingerprint written by MarshalJSON. The stored aggregate
// hash must match the entries.
func Decode(data []byte) (*Fingerprint, error) {
	var in jsonFingerprint
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode fingerprint: %w", err)
	}

	entries := make([]Entry, 0, len(in.Entries))
	seen := make(map[string]struct{}, len(in.Entries))
	for _, je := range in.Entries {
		if _, dup := seen[je.Key]; dup {
			return nil, fmt.Errorf("decode fingerprint: duplicate key %q: %w", je.Key, ErrCorrupt)
		}
		seen[je.Key] = struct{}{}

		typ, err := parseType(je.Type)
		if err != nil {
			return nil, fmt.Errorf("decode fingerprint: %w", err)
		}
		path := je.Path
		if path == "" {
			path = je.Key
		}
		entries = append(entries, Entry{
			Key:          je.Key,
			Path:         path,
			AbsolutePath: je.AbsolutePath,
			Hash:         je.Hash,
			Type:         typ,
			Root:         je.Root,
		})
	}

	f := newFingerprint(in.Strategy, in.CaseInsensitive, entries)
	if f.aggregate != in.AggregateHash {
		return nil, fmt.Errorf("decode fingerprint: aggregate hash %s does not match entries (%s): %w", in.AggregateHash, f.aggregate, ErrCorrupt)
	}
	return f, nil
}

func parseType(s string) (snapshot.Type, error) {
	for _, t := range []snapshot.Type{snapshot.RegularFile, snapshot.Directory, snapshot.Missing} {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown entry type %q", s)
}
