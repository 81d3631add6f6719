package ports

import (
	"context"

	"p4son/internal/domain"
)

// PerforceStatus queries workspace-level state.
type PerforceStatus interface {
	// HasOpenFiles reports whether any files are opened (checked out) in the
	// p4 workspace.
	HasOpenFiles(ctx context.Context) (bool, error)
}

// ChangelistPuller drives sync operations against the depot.
type ChangelistPuller interface {
	// CountPendingFiles returns how many files a sync to pos would change,
	// via a dry run.
	CountPendingFiles(ctx context.Context, pos domain.ChangelistPosition) (int, error)

	// Pull syncs the whole workspace view to pos, invoking onLine for every
	// stdout line as the subprocess emits it. On failure the returned error
	// wraps a *domain.CommandError carrying captured stderr.
	Pull(ctx context.Context, pos domain.ChangelistPosition, onLine func(string)) error

	// PullFile force-syncs a single path at pos with the same streaming
	// contract as Pull. No dry-run phase.
	PullFile(ctx context.Context, path string, pos domain.ChangelistPosition, onLine func(string)) error
}

// ChangeFinder resolves the "latest" target against the depot.
type ChangeFinder interface {
	// ClientName returns the p4 client (workspace) name from p4 info.
	ClientName(ctx context.Context) (string, error)

	// LatestSubmittedChange returns the most recent submitted changelist
	// touching the client's view.
	LatestSubmittedChange(ctx context.Context, clientName string) (domain.ChangelistPosition, error)
}

// ChangelistEditor manages pending changelists for the new/update/review
// workflows.
type ChangelistEditor interface {
	// CreateChangelist creates a new pending changelist with the given
	// description and returns its number.
	CreateChangelist(ctx context.Context, description string) (domain.ChangelistPosition, error)

	// UpdateDescription replaces the description of an existing changelist.
	UpdateDescription(ctx context.Context, pos domain.ChangelistPosition, description string) error

	// Describe returns the current description of a changelist.
	Describe(ctx context.Context, pos domain.ChangelistPosition) (string, error)

	// OpenFiles opens the given files in the changelist: edit for modified,
	// add for new, delete for removed.
	OpenFiles(ctx context.Context, pos domain.ChangelistPosition, changes []domain.FileChange) error

	// Shelve shelves the changelist, replacing any existing shelf.
	Shelve(ctx context.Context, pos domain.ChangelistPosition) error
}

// PerforceClient is the composite interface over the p4 binary.
type PerforceClient interface {
	PerforceStatus
	ChangelistPuller
	ChangeFinder
	ChangelistEditor
}
