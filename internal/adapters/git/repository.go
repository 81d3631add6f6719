// Package git wraps the git command-line client for the bridge: workspace
// cleanliness, staging and committing, and the history queries the sync and
// review workflows depend on.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"p4son/internal/domain"
	"p4son/internal/logging"
	"p4son/internal/ports"
)

// CLIRepository implements ports.GitRepository by shelling out to git in
// the workspace directory.
type CLIRepository struct {
	dir string
	out ports.Reporter
}

// Verify interface compliance at compile time
var _ ports.GitRepository = (*CLIRepository)(nil)

// NewCLIRepository creates a git repository adapter rooted at workspaceDir.
func NewCLIRepository(workspaceDir string, out ports.Reporter) *CLIRepository {
	return &CLIRepository{dir: workspaceDir, out: out}
}

// run executes a git command, echoes it, and returns stdout lines.
func (r *CLIRepository) run(ctx context.Context, args ...string) ([]string, error) {
	cmdLine := "git " + strings.Join(args, " ")
	logging.Logger.Debug("Running git command", "args", args, "dir", r.dir)

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.out.Command(cmdLine)
	err := cmd.Run()
	r.out.EndCommand()

	if err != nil {
		logging.Logger.Error("git command failed", "args", args, "error", err, "stderr", stderr.String())
		return nil, &domain.CommandError{
			Command: cmdLine,
			Stderr:  splitLines(stderr.Bytes()),
			Err:     err,
		}
	}
	return splitLines(stdout.Bytes()), nil
}

func splitLines(output []byte) []string {
	text := strings.TrimRight(string(output), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// IsClean reports whether the working tree has no modified or untracked
// files.
func (r *CLIRepository) IsClean(ctx context.Context) (bool, error) {
	lines, err := r.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("failed to check git status: %w", err)
	}
	return len(lines) == 0, nil
}

// AddAll stages every change in the working tree.
func (r *CLIRepository) AddAll(ctx context.Context) error {
	if _, err := r.run(ctx, "add", "."); err != nil {
		return fmt.Errorf("failed to stage files: %w", err)
	}
	return nil
}

// Commit creates a commit with the given message.
func (r *CLIRepository) Commit(ctx context.Context, message string, allowEmpty bool) error {
	args := []string{"commit", "-m", message}
	if allowEmpty {
		args = append(args, "--allow-empty")
	}
	if _, err := r.run(ctx, args...); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// CommitSubjectsSince returns the subjects of commits after baseBranch up
// to HEAD, oldest first.
func (r *CLIRepository) CommitSubjectsSince(ctx context.Context, baseBranch string) ([]string, error) {
	lines, err := r.CommitLinesSince(ctx, baseBranch)
	if err != nil {
		return nil, err
	}
	subjects := make([]string, 0, len(lines))
	for _, line := range lines {
		subjects = append(subjects, onelineSubject(line))
	}
	return subjects, nil
}

// CommitLinesSince returns "shortid subject" lines for commits after
// baseBranch up to HEAD, oldest first.
func (r *CLIRepository) CommitLinesSince(ctx context.Context, baseBranch string) ([]string, error) {
	lines, err := r.run(ctx, "log", "--oneline", "--reverse", fmt.Sprintf("%s..HEAD", baseBranch))
	if err != nil {
		return nil, fmt.Errorf("failed to list commits since %s: %w", baseBranch, err)
	}
	return lines, nil
}

// onelineSubject strips the leading short hash from a git log --oneline
// line. A line with no space is returned as is.
func onelineSubject(line string) string {
	if idx := strings.IndexByte(line, ' '); idx >= 0 {
		return line[idx+1:]
	}
	return line
}

// ChangedFilesSince returns the files that differ between baseBranch and
// HEAD with their change status.
func (r *CLIRepository) ChangedFilesSince(ctx context.Context, baseBranch string) ([]domain.FileChange, error) {
	lines, err := r.run(ctx, "diff", "--name-status", fmt.Sprintf("%s..HEAD", baseBranch))
	if err != nil {
		return nil, fmt.Errorf("failed to diff against %s: %w", baseBranch, err)
	}

	var changes []domain.FileChange
	for _, line := range lines {
		change, ok := parseNameStatus(line)
		if !ok {
			logging.Logger.Debug("Skipping unparsable diff line", "line", line)
			continue
		}
		changes = append(changes, change)
	}
	return changes, nil
}

// parseNameStatus parses one line of git diff --name-status output.
// Renames (R<score>) are reported by git as a status plus two paths; the
// new path is used and the change is treated as a modification.
func parseNameStatus(line string) (domain.FileChange, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) < 2 {
		return domain.FileChange{}, false
	}
	status := fields[0]
	path := fields[len(fields)-1]
	if status == "" || path == "" {
		return domain.FileChange{}, false
	}

	switch status[0] {
	case 'A':
		return domain.FileChange{Status: domain.ChangeAdded, Path: path}, true
	case 'D':
		return domain.FileChange{Status: domain.ChangeDeleted, Path: path}, true
	default:
		return domain.FileChange{Status: domain.ChangeModified, Path: path}, true
	}
}

// InteractiveRebase runs git rebase -i onto baseBranch with extraEnv
// appended to the environment, inheriting the terminal so the user's
// editor works.
func (r *CLIRepository) InteractiveRebase(ctx context.Context, baseBranch string, extraEnv []string) error {
	logging.Logger.Info("Starting interactive rebase", "base", baseBranch)

	cmd := exec.CommandContext(ctx, "git", "rebase", "-i", baseBranch)
	cmd.Dir = r.dir
	cmd.Env = append(os.Environ(), extraEnv...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("rebase did not complete: %w", err)
	}
	return nil
}

// EditorCommand resolves the user's editor via git var GIT_EDITOR.
func (r *CLIRepository) EditorCommand(ctx context.Context) (string, error) {
	lines, err := r.run(ctx, "var", "GIT_EDITOR")
	if err != nil || len(lines) == 0 {
		return "", fmt.Errorf("failed to resolve editor via git var GIT_EDITOR: %w", err)
	}
	return strings.TrimSpace(lines[0]), nil
}
