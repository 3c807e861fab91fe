package changes

import (
	"iter"
	"slices"
)

// MoreMessage is appended by MessageCollector when it stops early.
const MoreMessage = "more..."

// Visitor receives changes one at a time and returns false to stop.
type Visitor interface {
	VisitChange(Change) bool
}

type VisitorFunc func(Change) bool

func (f VisitorFunc) VisitChange(c Change) bool {
	return f(c)
}

// Visit feeds changes to v until v returns false. It reports whether all
// changes were visited. Changes after the one that stopped v are never
// computed.
func Visit(changes iter.Seq[Change], v Visitor) bool {
	for c := range changes {
		if !v.VisitChange(c) {
			return false
		}
	}
	return true
}

// MessageCollector keeps the messages of the first Max changes. The next
// change is recorded as MoreMessage and stops the visit.
type MessageCollector struct {
	max      int
	count    int
	messages []string
}

func NewMessageCollector(max int) *MessageCollector {
	return &MessageCollector{max: max}
}

func (c *MessageCollector) VisitChange(change Change) bool {
	c.count++
	if c.count > c.max {
		c.messages = append(c.messages, MoreMessage)
		return false
	}
	c.messages = append(c.messages, change.Message)
	return true
}

// Messages returns the collected messages.
func (c *MessageCollector) Messages() []string {
	return slices.Clone(c.messages)
}

// Count is the number of changes the collector was given.
func (c *MessageCollector) Count() int {
	return c.count
}

// Full reports whether the collector has stopped accepting changes.
func (c *MessageCollector) Full() bool {
	return c.count > c.max
}
