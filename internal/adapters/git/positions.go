package git

import (
	"context"
	"fmt"

	"p4son/internal/domain"
	"p4son/internal/logging"
	"p4son/internal/ports"
)

// MarkerStore records and retrieves the last-synced changelist position as
// marker commits on the current branch.
type MarkerStore struct {
	repo *CLIRepository
}

var _ ports.PositionStore = (*MarkerStore)(nil)

// NewMarkerStore creates a position store backed by marker commits in repo.
func NewMarkerStore(repo *CLIRepository) *MarkerStore {
	return &MarkerStore{repo: repo}
}

// CurrentPosition finds the most recent marker commit and parses its
// changelist number. ok is false when the branch has no marker yet.
func (s *MarkerStore) CurrentPosition(ctx context.Context) (domain.ChangelistPosition, bool, error) {
	lines, err := s.repo.run(ctx, "log", "-1", "--pretty=%s", "--grep", domain.MarkerGrepPattern)
	if err != nil {
		return 0, false, fmt.Errorf("failed to search for sync marker: %w", err)
	}
	if len(lines) == 0 {
		logging.Logger.Debug("No sync marker found in history")
		return 0, false, nil
	}

	pos, ok := domain.ParseMarker(lines[0])
	if !ok {
		// grep matched but the subject is malformed; treat as no marker
		logging.Logger.Warn("Found marker-like commit with unparsable subject", "subject", lines[0])
		return 0, false, nil
	}
	logging.Logger.Debug("Found sync marker", "position", int64(pos))
	return pos, true, nil
}

// RecordPosition stages any pending changes and commits a marker for pos.
// The commit is created even when the tree is clean so the position is
// always discoverable.
func (s *MarkerStore) RecordPosition(ctx context.Context, pos domain.ChangelistPosition) error {
	clean, err := s.repo.IsClean(ctx)
	if err != nil {
		return err
	}
	if !clean {
		if err := s.repo.AddAll(ctx); err != nil {
			return err
		}
	}
	if err := s.repo.Commit(ctx, domain.FormatMarker(pos), true); err != nil {
		return fmt.Errorf("failed to record sync marker: %w", err)
	}
	logging.Logger.Info("Recorded sync marker", "position", int64(pos))
	return nil
}
