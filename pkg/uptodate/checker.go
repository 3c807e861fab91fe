// Package uptodate decides whether a task can be skipped by comparing the
// fingerprints of its declared properties with the ones stored after its
// previous execution.
package uptodate

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"

	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/changes"
	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/fingerprint"
	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/history"
	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/snapshot"
)

const DefaultMaxMessages = 3

const NoHistoryMessage = "No history is available."

type Property struct {
	Name     string
	Strategy fingerprint.Strategy
	Roots    []string
}

type Task struct {
	Name       string
	Properties []Property
}

func (t Task) validate() error {
	if t.Name == "" {
		return errors.New("task without name")
	}
	seen := make(map[string]bool, len(t.Properties))
	for _, p := range t.Properties {
		if p.Name == "" {
			return fmt.Errorf("task %s: property without name", t.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("task %s: duplicate property %s", t.Name, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

type Outcome struct {
	UpToDate bool
	// Reasons holds at most MaxMessages messages, followed by
	// changes.MoreMessage when there were more.
	Reasons  []string
	Warnings snapshot.Warnings
	// Current maps property names to their fingerprint in this check.
	Current map[string]*fingerprint.Fingerprint
}

type Checker struct {
	Snapshotter *snapshot.Snapshotter
	Store       history.Store
	Options     fingerprint.Options
	MaxMessages int
	Logger      *zerolog.Logger
}

func (c *Checker) logger() *zerolog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return &log.Logger
}

// Check fingerprints every property of task and compares it with history.
// All properties are fingerprinted even after the reasons are exhausted, so
// the outcome can always be committed.
func (c *Checker) Check(task Task) (Outcome, error) {
	if err := task.validate(); err != nil {
		return Outcome{}, fmt.Errorf("check: %w", err)
	}
	maxMessages := c.MaxMessages
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	logger := c.logger().With().Str("task", task.Name).Logger()

	collector := changes.NewMessageCollector(maxMessages)
	outcome := Outcome{Current: make(map[string]*fingerprint.Fingerprint, len(task.Properties))}
	reportedNoHistory := false

	for _, p := range task.Properties {
		nodes, warnings := c.Snapshotter.WalkAll(p.Roots)
		outcome.Warnings = append(outcome.Warnings, warnings...)
		for _, w := range warnings {
			logger.Warn().Err(w).Str("property", p.Name).Msg("Snapshot incomplete")
		}

		roots := make([]fingerprint.Root, len(nodes))
		for i, n := range nodes {
			roots[i] = fingerprint.Root{Label: p.Roots[i], Node: n}
		}
		current, err := fingerprint.Build(roots, p.Strategy, c.Options)
		if err != nil {
			return Outcome{}, fmt.Errorf("check %s: property %s: %w", task.Name, p.Name, err)
		}
		outcome.Current[p.Name] = current
		logger.Debug().Str("property", p.Name).Str("strategy", p.Strategy.String()).Int("entries", current.Len()).Str("hash", current.AggregateHash().String()).Msg("Fingerprinted property")

		if collector.Full() {
			continue
		}

		previous, err := c.Store.Load(task.Name, p.Name)
		if err != nil {
			return Outcome{}, fmt.Errorf("check %s: %w", task.Name, err)
		}
		if previous == nil {
			if !reportedNoHistory {
				reportedNoHistory = true
				collector.VisitChange(changes.Change{Kind: changes.Added, Message: NoHistoryMessage})
			}
			continue
		}

		detector := changes.Detector{Title: fmt.Sprintf("Input property '%s'", p.Name)}
		seq, err := detector.Detect(previous, current)
		var mismatch *changes.StrategyMismatchError
		if errors.As(err, &mismatch) {
			collector.VisitChange(changes.Change{
				Kind:    changes.Modified,
				Message: fmt.Sprintf("%s normalization has changed from %s to %s.", detector.Title, mismatch.Previous, mismatch.Current),
			})
			continue
		}
		var caseMismatch *changes.CaseMismatchError
		if errors.As(err, &caseMismatch) {
			collector.VisitChange(changes.Change{
				Kind:    changes.Modified,
				Message: fmt.Sprintf("%s case sensitivity has changed.", detector.Title),
			})
			continue
		}
		if err != nil {
			return Outcome{}, fmt.Errorf("check %s: property %s: %w", task.Name, p.Name, err)
		}
		changes.Visit(seq, collector)
	}

	outcome.Reasons = collector.Messages()
	outcome.UpToDate = collector.Count() == 0
	logger.Debug().Bool("upToDate", outcome.UpToDate).Strs("reasons", outcome.Reasons).Msg("Checked task")
	return outcome, nil
}

// Commit stores the fingerprints of outcome as the history of task. It is
// called after the task executed successfully.
func (c *Checker) Commit(task Task, outcome Outcome) error {
	var errs error
	for _, p := range task.Properties {
		fp, ok := outcome.Current[p.Name]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("commit %s: no fingerprint for property %s", task.Name, p.Name))
			continue
		}
		if err := c.Store.Store(task.Name, p.Name, fp); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("commit %s: %w", task.Name, err))
		}
	}
	return errs
}
