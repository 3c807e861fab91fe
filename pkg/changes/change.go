// Package changes compares fingerprints and feeds the resulting changes to
// visitors.
package changes

import (
	"fmt"

	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/fingerprint"
	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/snapshot"
)

type Kind int

const (
	Added Kind = iota
	Removed
	Modified
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Change is one difference between two fingerprints. Path is the normalized
// path of the entry.
type Change struct {
	Path    string
	Kind    Kind
	Type    snapshot.Type
	Message string
}

type StrategyMismatchError struct {
	Previous fingerprint.Strategy
	Current  fingerprint.Strategy
}

func (e *StrategyMismatchError) Error() string {
	return fmt.Sprintf("cannot compare fingerprints built with different strategies: %s and %s", e.Previous, e.Current)
}

// CaseMismatchError is returned when one fingerprint has case folded keys and
// the other has not.
type CaseMismatchError struct {
	Previous bool
	Current  bool
}

func (e *CaseMismatchError) Error() string {
	return fmt.Sprintf("cannot compare fingerprints with different case sensitivity: case-insensitive %t and %t", e.Previous, e.Current)
}
