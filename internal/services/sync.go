// Package services holds the application workflows: synchronization,
// changelist lifecycle, change listing and the review rebase. Services
// depend only on ports and domain types so tests can drive them with
// in-memory fakes.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"p4son/internal/domain"
	"p4son/internal/logging"
	"p4son/internal/ports"
)

// SyncService reconciles the git workspace against a Perforce changelist:
// verify both trees are clean, resolve the target, re-anchor on the
// current position, advance to the target, and record a marker commit.
type SyncService struct {
	git       ports.GitStatus
	p4        ports.PerforceClient
	positions ports.PositionStore
	aliases   ports.AliasResolver
	out       ports.Reporter
}

// NewSyncService creates a new SyncService
func NewSyncService(
	git ports.GitStatus,
	p4 ports.PerforceClient,
	positions ports.PositionStore,
	aliases ports.AliasResolver,
	out ports.Reporter,
) *SyncService {
	return &SyncService{
		git:       git,
		p4:        p4,
		positions: positions,
		aliases:   aliases,
		out:       out,
	}
}

// SyncParams are the inputs to one sync invocation.
type SyncParams struct {
	// Target is a decimal changelist number, an alias name, or one of the
	// keywords "latest" and "last-synced".
	Target string

	// Force permits backward moves and clobbering writable files.
	Force bool
}

// Sync runs the full reconciliation sequence.
func (s *SyncService) Sync(ctx context.Context, params SyncParams) error {
	logging.Logger.Info("Starting sync", "target", params.Target, "force", params.Force)

	s.out.Heading("Checking git workspace")
	clean, err := s.git.IsClean(ctx)
	if err != nil {
		return err
	}
	if !clean {
		return fmt.Errorf("git %w", domain.ErrDirtyWorkspace)
	}
	s.out.Info("clean")

	s.out.Heading("Checking p4 workspace")
	open, err := s.p4.HasOpenFiles(ctx)
	if err != nil {
		return err
	}
	if open {
		return fmt.Errorf("p4 %w", domain.ErrDirtyWorkspace)
	}
	s.out.Info("clean")

	keyword := strings.ToLower(params.Target)

	var target domain.ChangelistPosition
	if keyword != "latest" && keyword != "last-synced" {
		target, err = s.resolvePosition(ctx, params.Target)
		if err != nil {
			return err
		}
	}

	s.out.Heading("Finding last synced changelist")
	current, hasCurrent, err := s.positions.CurrentPosition(ctx)
	if err != nil {
		return err
	}
	if hasCurrent {
		s.out.Detail("last synced", current.String())
	} else {
		s.out.Info("no previous sync found")
	}

	// "last-synced" re-anchors the workspace without advancing.
	if keyword == "last-synced" {
		if !hasCurrent {
			return fmt.Errorf("cannot use \"last-synced\": %w", domain.ErrNoPreviousSync)
		}
		s.out.Heading(fmt.Sprintf("Syncing to %s", current))
		if err := s.pull(ctx, current, params.Force); err != nil {
			return err
		}
		return s.record(ctx, current)
	}

	if keyword == "latest" {
		s.out.Heading("Finding latest changelist")
		target, err = s.resolveLatest(ctx)
		if err != nil {
			return err
		}
		s.out.Detail("latest", target.String())
	}

	if hasCurrent && target == current {
		s.out.Info(fmt.Sprintf("Already at %s, nothing to do.", current))
		return nil
	}

	if hasCurrent && target < current {
		if !params.Force {
			return fmt.Errorf("target %s is older than current %s: %w",
				target, current, domain.ErrBackwardSync)
		}
		s.out.Info(fmt.Sprintf("Warning: syncing to older %s (currently at %s) with --force",
			target, current))
	}

	// Re-establish the current position first so the marker commit captures
	// exactly the current-to-target move and nothing accumulated outside
	// the tool's bookkeeping.
	if hasCurrent {
		s.out.Heading(fmt.Sprintf("Syncing to %s", current))
		if err := s.pull(ctx, current, params.Force); err != nil {
			return err
		}
	}

	s.out.Heading(fmt.Sprintf("Syncing to %s", target))
	if err := s.pull(ctx, target, params.Force); err != nil {
		return err
	}

	return s.record(ctx, target)
}

// record snapshots the workspace with a marker commit for pos.
func (s *SyncService) record(ctx context.Context, pos domain.ChangelistPosition) error {
	s.out.Heading("Committing git changes")
	if err := s.positions.RecordPosition(ctx, pos); err != nil {
		return err
	}
	s.out.Info("Done")
	return nil
}

// resolvePosition turns a decimal token or alias name into a changelist
// number.
func (s *SyncService) resolvePosition(ctx context.Context, token string) (domain.ChangelistPosition, error) {
	if isDecimal(token) {
		n, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid changelist number %q: %w", token, err)
		}
		return domain.ChangelistPosition(n), nil
	}
	pos, err := s.aliases.Resolve(ctx, token)
	if err != nil {
		return 0, err
	}
	s.out.Detail(token, pos.String())
	return pos, nil
}

func isDecimal(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// resolveLatest asks Perforce for the most recent submitted changelist
// touching the client's view.
func (s *SyncService) resolveLatest(ctx context.Context) (domain.ChangelistPosition, error) {
	client, err := s.p4.ClientName(ctx)
	if err != nil {
		return 0, err
	}
	return s.p4.LatestSubmittedChange(ctx, client)
}

// pull is one sync attempt against pos: dry count, live streamed pull,
// clobber recovery. Non-clobber failures propagate untouched.
func (s *SyncService) pull(ctx context.Context, pos domain.ChangelistPosition, force bool) error {
	count, err := s.p4.CountPendingFiles(ctx, pos)
	if err != nil {
		return err
	}
	if count == 0 {
		s.out.Info("all files up to date")
		return nil
	}
	s.out.Info(fmt.Sprintf("%d files to sync", count))

	agg := domain.NewSyncAggregator(count, s.out)
	start := time.Now()
	pullErr := s.p4.Pull(ctx, pos, agg.OnLine)
	s.out.Info(agg.Summary())
	s.out.Elapsed(time.Since(start))
	if pullErr == nil {
		return nil
	}

	var cmdErr *domain.CommandError
	if !errors.As(pullErr, &cmdErr) {
		return pullErr
	}
	conflicts := domain.ExtractConflicts(cmdErr.Stderr)
	if len(conflicts) == 0 {
		return pullErr
	}

	s.out.Info(fmt.Sprintf("Found %d writable files", len(conflicts)))
	if !force {
		s.out.Info("Leaving files as is, use --force to force sync")
		for _, path := range conflicts {
			s.out.Info(path)
		}
		return fmt.Errorf("%d files: %w", len(conflicts), domain.ErrWritableConflicts)
	}

	for _, path := range conflicts {
		if err := s.forceSyncFile(ctx, pos, path); err != nil {
			return err
		}
	}
	return nil
}

// forceSyncFile re-syncs one conflicting path with -f. No dry-run phase,
// so progress lines carry no fraction.
func (s *SyncService) forceSyncFile(ctx context.Context, pos domain.ChangelistPosition, path string) error {
	agg := domain.NewSyncAggregator(-1, s.out)
	start := time.Now()
	if err := s.p4.PullFile(ctx, path, pos, agg.OnLine); err != nil {
		return err
	}
	s.out.Info(agg.Summary())
	s.out.Elapsed(time.Since(start))
	return nil
}
