package domain

import (
	"fmt"
	"time"
)

// ChangelistPosition is a Perforce changelist number. Changelists are
// assigned monotonically by the server and totally ordered; positions are
// never negative.
type ChangelistPosition int64

// String formats the position the way it appears in user-facing output.
func (p ChangelistPosition) String() string {
	return fmt.Sprintf("CL %d", int64(p))
}

// Alias is a named shortcut for a changelist number, persisted in the
// workspace-local alias store.
type Alias struct {
	Name       string
	Changelist ChangelistPosition
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ChangeStatus describes how a file changed between two git revisions.
type ChangeStatus string

const (
	ChangeAdded    ChangeStatus = "A"
	ChangeModified ChangeStatus = "M"
	ChangeDeleted  ChangeStatus = "D"
)

// FileChange is one entry from a git diff between the base branch and HEAD,
// used to open the corresponding files in a Perforce changelist.
type FileChange struct {
	Status ChangeStatus
	Path   string
}
