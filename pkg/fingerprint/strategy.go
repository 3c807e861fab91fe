package fingerprint

import (
	"fmt"
	"strings"
)

// Strategy decides how the paths of a snapshot are turned into comparison
// keys. The set is closed.
type Strategy int

const (
	// Absolute keys entries by absolute path and registers every node.
	Absolute Strategy = iota
	// Output is Absolute without the entry of a root directory.
	Output
	// Relative keys files by their path below the root. Files of one root are
	// ordered by path; the order of the roots is significant.
	Relative
	// NameOnly keys files by their name.
	NameOnly
	// Ignored collapses all files into a single entry.
	Ignored
)

var strategyNames = [...]string{
	Absolute: "absolute",
	Output:   "output",
	Relative: "relative",
	NameOnly: "name_only",
	Ignored:  "ignored",
}

func ParseStrategy(s string) (Strategy, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "none":
		return Ignored, nil
	case "name-only", "nameonly":
		return NameOnly, nil
	}
	for i, n := range strategyNames {
		if n == name {
			return Strategy(i), nil
		}
	}
	return 0, fmt.Errorf("unknown normalization strategy %q", s)
}

func (s Strategy) String() string {
	if !s.valid() {
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
	return strategyNames[s]
}

func (s Strategy) valid() bool {
	return s >= Absolute && s <= Ignored
}

// OrderSensitive reports whether entry order contributes to the aggregate
// hash.
func (s Strategy) OrderSensitive() bool {
	return s == Relative
}

func (s Strategy) MarshalText() ([]byte, error) {
	if !s.valid() {
		return nil, fmt.Errorf("marshal strategy: invalid value %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
