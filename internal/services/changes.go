package services

import (
	"context"
	"fmt"
	"strings"

	"p4son/internal/ports"
)

// ChangesService lists the git commits that make up a pending changelist.
type ChangesService struct {
	git ports.GitHistory
}

// NewChangesService creates a new ChangesService
func NewChangesService(git ports.GitHistory) *ChangesService {
	return &ChangesService{git: git}
}

// EnumeratedChanges returns "N. subject" lines for commits since
// baseBranch, oldest first, numbered from 1.
func (s *ChangesService) EnumeratedChanges(ctx context.Context, baseBranch string) ([]string, error) {
	subjects, err := s.git.CommitSubjectsSince(ctx, baseBranch)
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(subjects))
	for i, subject := range subjects {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, subject))
	}
	return lines, nil
}

// Description returns the enumerated commit lines joined into a changelist
// description body. Empty when there are no commits.
func (s *ChangesService) Description(ctx context.Context, baseBranch string) (string, error) {
	lines, err := s.EnumeratedChanges(ctx, baseBranch)
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}
