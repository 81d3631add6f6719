package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"p4son/internal/config"
	"p4son/internal/domain"
	"p4son/internal/logging"
	"p4son/internal/ports"
)

// sequenceEditorCmd is what git invokes instead of the normal sequence
// editor while the review rebase runs.
const sequenceEditorCmd = "git p4son sequence-editor"

// ReviewService drives the review workflow: an interactive rebase whose
// todo is pre-populated with exec lines that publish each commit to a
// Perforce changelist.
type ReviewService struct {
	git          ports.GitRepository
	aliases      ports.AliasResolver
	editor       ports.EditorOpener
	workspaceDir string
	out          ports.Reporter
}

// NewReviewService creates a new ReviewService
func NewReviewService(
	git ports.GitRepository,
	aliases ports.AliasResolver,
	editor ports.EditorOpener,
	workspaceDir string,
	out ports.Reporter,
) *ReviewService {
	return &ReviewService{
		git:          git,
		aliases:      aliases,
		editor:       editor,
		workspaceDir: workspaceDir,
		out:          out,
	}
}

// ReviewParams are the inputs to Run.
type ReviewParams struct {
	Alias      string
	Message    string
	BaseBranch string
	Force      bool
	DryRun     bool
}

// Run generates the rebase todo and starts the interactive rebase with the
// sequence editor pointed back at this tool.
func (s *ReviewService) Run(ctx context.Context, params ReviewParams) error {
	if !params.DryRun && !params.Force {
		if _, err := s.aliases.Resolve(ctx, params.Alias); err == nil {
			return fmt.Errorf("alias %q already exists (use -f/--force to overwrite): %w",
				params.Alias, domain.ErrAliasExists)
		}
	}

	s.out.Heading("Finding commits")
	commitLines, err := s.git.CommitLinesSince(ctx, params.BaseBranch)
	if err != nil {
		return err
	}
	if len(commitLines) == 0 {
		return fmt.Errorf("no commits found since %s", params.BaseBranch)
	}
	s.out.Info(fmt.Sprintf("%d commits since %s", len(commitLines), params.BaseBranch))

	s.out.Heading("Generating rebase todo")
	content := GenerateTodo(commitLines, params.Alias, params.Message, params.Force)

	if params.DryRun {
		s.out.Info("Generated rebase todo:")
		s.out.Info(content)
		return nil
	}

	todoPath := config.TodoPath(s.workspaceDir)
	if err := os.MkdirAll(filepath.Dir(todoPath), 0755); err != nil {
		return fmt.Errorf("failed to create reviews directory: %w", err)
	}
	if err := os.WriteFile(todoPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write rebase todo: %w", err)
	}
	defer func() {
		if err := os.Remove(todoPath); err != nil && !os.IsNotExist(err) {
			logging.Logger.Warn("Failed to remove todo file", "path", todoPath, "error", err)
		}
	}()

	s.out.Heading("Running interactive rebase")
	env := []string{"GIT_SEQUENCE_EDITOR=" + sequenceEditorCmd}
	if err := s.git.InteractiveRebase(ctx, params.BaseBranch, env); err != nil {
		s.out.Error("Rebase did not complete successfully.")
		s.out.Error("You can fix any issues and run: git rebase --continue")
		return err
	}

	s.out.Info("Done")
	return nil
}

// SpliceTodo rewrites git's rebase todo file at rebaseTodoPath with the
// generated content, keeping git's trailing comment lines, then opens the
// user's real editor on it. Called by git as the sequence editor.
func (s *ReviewService) SpliceTodo(ctx context.Context, rebaseTodoPath string) error {
	todoPath := config.TodoPath(s.workspaceDir)

	// The generated todo and the editor command are independent lookups.
	var content []byte
	var editorCmd string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := os.ReadFile(todoPath)
		if err != nil {
			return fmt.Errorf("no review todo file found at %s: %w", todoPath, err)
		}
		content = data
		return nil
	})
	g.Go(func() error {
		cmd, err := s.git.EditorCommand(gctx)
		if err != nil {
			return err
		}
		editorCmd = cmd
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	original, err := os.ReadFile(rebaseTodoPath)
	if err != nil {
		return fmt.Errorf("failed to read rebase todo %s: %w", rebaseTodoPath, err)
	}

	spliced := SpliceComments(string(content), string(original))
	if err := os.WriteFile(rebaseTodoPath, []byte(spliced), 0644); err != nil {
		return fmt.Errorf("failed to rewrite rebase todo: %w", err)
	}

	return s.editor.OpenAndWait(ctx, editorCmd, rebaseTodoPath)
}

// GenerateTodo renders the rebase todo: every commit is picked and
// followed by an exec line that publishes it. The first commit creates the
// changelist with a review, the rest update and re-shelve it. Every exec
// except the last sleeps so Perforce sees the shelves in order.
func GenerateTodo(commitLines []string, alias, message string, force bool) string {
	var b strings.Builder
	last := len(commitLines) - 1
	for i, commitLine := range commitLines {
		b.WriteString("pick ")
		b.WriteString(commitLine)
		b.WriteString("\n")

		var cmd string
		if i == 0 {
			cmd = fmt.Sprintf("new %s --review -m %s", quoteArg(alias), quoteArg(message))
			if force {
				cmd += " --force"
			}
		} else {
			cmd = fmt.Sprintf("update %s --shelve", quoteArg(alias))
		}
		if i < last {
			cmd += " --sleep 5"
		}
		fmt.Fprintf(&b, "exec git p4son %s\n", cmd)
	}
	return b.String()
}

// SpliceComments combines the generated todo with the comment lines from
// git's original todo, so the user still sees git's rebase instructions.
func SpliceComments(generated, original string) string {
	var comments []string
	for _, line := range strings.Split(original, "\n") {
		if strings.HasPrefix(line, "#") {
			comments = append(comments, line)
		}
	}
	if len(comments) == 0 {
		return generated
	}
	return generated + "\n" + strings.Join(comments, "\n") + "\n"
}

// quoteArg single-quotes an argument for the shell line git exec runs.
func quoteArg(arg string) string {
	if arg == "" {
		return "''"
	}
	safe := true
	for _, r := range arg {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || strings.ContainsRune("@%+=:,./-_", r)) {
			safe = false
			break
		}
	}
	if safe {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'"'"'`) + "'"
}
