package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDirtyWorkspace means a cleanliness precondition failed before any
	// mutation was attempted.
	ErrDirtyWorkspace = errors.New("workspace is not clean")

	// ErrNoPreviousSync means no marker commit exists in git history.
	ErrNoPreviousSync = errors.New("no previous sync found")

	// ErrBackwardSync means the target changelist is older than the current
	// position and --force was not given.
	ErrBackwardSync = errors.New("cannot sync backward without --force")

	// ErrWritableConflicts means a pull stopped because Perforce refused to
	// clobber writable files. Recoverable: re-run with --force.
	ErrWritableConflicts = errors.New("writable files prevented sync")

	// ErrAliasNotFound means an alias name did not resolve to a changelist.
	ErrAliasNotFound = errors.New("alias not found")

	// ErrAliasExists means an alias name is already taken and force was not set.
	ErrAliasExists = errors.New("alias already exists")
)

// CommandError reports a failed external command together with its captured
// stderr, so callers can classify the failure (for example, clobber
// conflicts during a pull) instead of treating every non-zero exit the same.
type CommandError struct {
	Command string
	Stderr  []string
	Err     error
}

func (e *CommandError) Error() string {
	if len(e.Stderr) == 0 {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s: %v\n%s", e.Command, e.Err, strings.Join(e.Stderr, "\n"))
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
