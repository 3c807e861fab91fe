package changes

import (
	"errors"
	"iter"
	"slices"
	"strings"

	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/fingerprint"
)

// Detector renders changes for one fingerprinted property. Title prefixes
// every message, e.g. "Input property 'sources'".
type Detector struct {
	Title string
}

// Detect compares with an untitled Detector.
func Detect(previous, current *fingerprint.Fingerprint) (iter.Seq[Change], error) {
	return Detector{}.Detect(previous, current)
}

// Detect returns the changes from previous to current. Removed and modified
// entries come first, in the order of previous, followed by added entries in
// the order of current. The sequence is lazy and can be ranged over more than
// once.
func (d Detector) Detect(previous, current *fingerprint.Fingerprint) (iter.Seq[Change], error) {
	if previous == nil || current == nil {
		return nil, errors.New("detect changes: nil fingerprint")
	}
	if previous.Strategy() != current.Strategy() {
		return nil, &StrategyMismatchError{Previous: previous.Strategy(), Current: current.Strategy()}
	}
	if previous.CaseInsensitive() != current.CaseInsensitive() {
		return nil, &CaseMismatchError{Previous: previous.CaseInsensitive(), Current: current.CaseInsensitive()}
	}
	if previous.AggregateHash() == current.AggregateHash() {
		return func(func(Change) bool) {}, nil
	}

	return func(yield func(Change) bool) {
		emitted := false
		for e := range previous.Entries() {
			ce, ok := current.Get(e.Key)
			if !ok {
				emitted = true
				if !yield(d.change(Removed, e)) {
					return
				}
				continue
			}
			if ce.Hash != e.Hash || ce.Type != e.Type {
				emitted = true
				if !yield(d.change(Modified, ce)) {
					return
				}
			}
		}

		for e := range current.Entries() {
			if _, ok := previous.Get(e.Key); !ok {
				emitted = true
				if !yield(d.change(Added, e)) {
					return
				}
			}
		}

		if !emitted && current.Strategy().OrderSensitive() {
			if e, ok := firstReordered(previous, current); ok {
				c := d.change(Modified, e)
				c.Message = d.subject(e) + " has been reordered."
				yield(c)
			}
		}
	}, nil
}

// firstReordered finds the first position where two fingerprints with the
// same keys list them differently.
func firstReordered(previous, current *fingerprint.Fingerprint) (fingerprint.Entry, bool) {
	prev := slices.Collect(previous.Entries())
	cur := slices.Collect(current.Entries())
	for i := range min(len(prev), len(cur)) {
		if prev[i].Key != cur[i].Key {
			return cur[i], true
		}
	}
	return fingerprint.Entry{}, false
}

func (d Detector) change(kind Kind, e fingerprint.Entry) Change {
	var verb string
	switch kind {
	case Added:
		verb = "been added"
	case Removed:
		verb = "been removed"
	default:
		verb = "changed"
	}

	aux := "has"
	if e.Key == fingerprint.IgnoredKey {
		aux = "have"
	}
	return Change{
		Path:    e.Path,
		Kind:    kind,
		Type:    e.Type,
		Message: d.subject(e) + " " + aux + " " + verb + ".",
	}
}

func (d Detector) subject(e fingerprint.Entry) string {
	noun := e.Type.String()
	if e.Key == fingerprint.IgnoredKey {
		noun = "files"
	}
	if d.Title == "" {
		noun = strings.ToUpper(noun[:1]) + noun[1:]
	} else {
		noun = d.Title + " " + noun
	}

	if e.Key == fingerprint.IgnoredKey {
		return noun
	}
	return noun + " '" + e.Path + "'"
}
