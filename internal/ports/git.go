package ports

import (
	"context"

	"p4son/internal/domain"
)

// GitStatus queries working tree state.
type GitStatus interface {
	// IsClean reports whether the working tree has no modified or untracked
	// files.
	IsClean(ctx context.Context) (bool, error)
}

// GitCommitter mutates the repository.
type GitCommitter interface {
	// AddAll stages every change in the working tree.
	AddAll(ctx context.Context) error

	// Commit creates a commit with the given message. With allowEmpty, a
	// commit is created even when nothing is staged.
	Commit(ctx context.Context, message string, allowEmpty bool) error
}

// GitHistory reads commit history.
type GitHistory interface {
	// CommitSubjectsSince returns the subjects of commits after baseBranch
	// up to HEAD, oldest first.
	CommitSubjectsSince(ctx context.Context, baseBranch string) ([]string, error)

	// CommitLinesSince returns "shortid subject" lines for commits after
	// baseBranch up to HEAD, oldest first.
	CommitLinesSince(ctx context.Context, baseBranch string) ([]string, error)

	// ChangedFilesSince returns the files that differ between baseBranch
	// and HEAD with their change status.
	ChangedFilesSince(ctx context.Context, baseBranch string) ([]domain.FileChange, error)
}

// GitRebaser drives the interactive rebase used by the review workflow.
type GitRebaser interface {
	// InteractiveRebase runs git rebase -i onto baseBranch with the given
	// extra environment (GIT_SEQUENCE_EDITOR), inheriting the terminal.
	InteractiveRebase(ctx context.Context, baseBranch string, extraEnv []string) error

	// EditorCommand resolves the user's editor via git var GIT_EDITOR.
	EditorCommand(ctx context.Context) (string, error)
}

// GitRepository is the composite interface over the git binary.
type GitRepository interface {
	GitStatus
	GitCommitter
	GitHistory
	GitRebaser
}

// PositionStore records and recalls the last synchronized changelist
// position. The git implementation derives it from marker commits; tests
// supply an in-memory stub.
type PositionStore interface {
	// CurrentPosition returns the most recent recorded position. ok is
	// false when no position was ever recorded; that is not an error.
	CurrentPosition(ctx context.Context) (pos domain.ChangelistPosition, ok bool, err error)

	// RecordPosition durably records pos as the new current position.
	// Idempotent in effect: recording the same position twice is harmless.
	RecordPosition(ctx context.Context, pos domain.ChangelistPosition) error
}
