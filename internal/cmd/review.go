package cmd

import (
	"context"

	"p4son/internal/logging"
	"p4son/internal/services"
)

// ReviewCmd publishes the commits since the base branch for review, one
// shelved changelist revision per commit, via an interactive rebase
type ReviewCmd struct {
	Alias      string `arg:"" help:"Alias to save for the review changelist"`
	Message    string `help:"Changelist description message" short:"m" required:""`
	BaseBranch string `help:"Base branch to compare against" default:"main"`
	Force      bool   `help:"Overwrite an existing alias" short:"f"`
	DryRun     bool   `help:"Print the generated rebase todo without rebasing" short:"n"`
}

// Run executes the review command
func (r *ReviewCmd) Run(container *Container, cli *CLI) error {
	logging.Logger.Info("Executing review command", "alias", r.Alias, "dryRun", r.DryRun)

	return container.ReviewService.Run(context.Background(), services.ReviewParams{
		Alias:      r.Alias,
		Message:    r.Message,
		BaseBranch: cli.BaseBranch(r.BaseBranch),
		Force:      r.Force,
		DryRun:     r.DryRun,
	})
}

// SequenceEditorCmd is invoked by git as GIT_SEQUENCE_EDITOR during the
// review rebase. It replaces git's generated todo with ours and opens the
// user's real editor.
type SequenceEditorCmd struct {
	Filename string `arg:"" help:"Rebase todo file passed by git"`
}

// Run executes the sequence-editor command
func (s *SequenceEditorCmd) Run(container *Container) error {
	logging.Logger.Info("Executing sequence-editor command", "filename", s.Filename)

	return container.ReviewService.SpliceTodo(context.Background(), s.Filename)
}
