package snapshot

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

var ErrSymlinkCycle = errors.New("symlink cycle")

// AccessError records a path that could not be read during a walk. The
// offending path is represented by a Missing node.
type AccessError struct {
	Path string
	Op   string
	Err  error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// ImmutableMutationError is the panic value raised when a sealed snapshot is
// modified.
type ImmutableMutationError struct {
	Path string
}

func (e *ImmutableMutationError) Error() string {
	return fmt.Sprintf("cannot add children to immutable directory snapshot %s", e.Path)
}

// Warnings collects the recoverable access failures of one or more walks.
type Warnings []*AccessError

func (w Warnings) Err() error {
	errs := make([]error, 0, len(w))
	for _, e := range w {
		errs = append(errs, e)
	}
	return multierr.Combine(errs...)
}
