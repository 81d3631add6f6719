package cmd

import (
	"context"
	"time"

	"p4son/internal/logging"
	"p4son/internal/services"
)

// NewCmd creates a pending changelist from the commits since the base
// branch
type NewCmd struct {
	Alias      string `arg:"" optional:"" help:"Alias to save for the new changelist"`
	Message    string `help:"Changelist description message" short:"m" required:""`
	BaseBranch string `help:"Base branch to compare against" default:"main"`
	Review     bool   `help:"Add the #review keyword and shelve"`
	Shelve     bool   `help:"Shelve the changelist"`
	NoEdit     bool   `help:"Do not open changed files in the changelist"`
	Force      bool   `help:"Overwrite an existing alias" short:"f"`
	DryRun     bool   `help:"Show what would happen without doing it" short:"n"`
	Sleep      int    `help:"Sleep this many seconds after completing" hidden:""`
}

// Run executes the new command
func (n *NewCmd) Run(container *Container, cli *CLI) error {
	logging.Logger.Info("Executing new command",
		"alias", n.Alias, "review", n.Review, "shelve", n.Shelve, "dryRun", n.DryRun)

	err := container.ChangelistService.Create(context.Background(), services.CreateParams{
		Alias:      n.Alias,
		Message:    n.Message,
		BaseBranch: cli.BaseBranch(n.BaseBranch),
		Review:     n.Review,
		Shelve:     n.Shelve,
		NoEdit:     n.NoEdit,
		Force:      n.Force,
		DryRun:     n.DryRun,
	})
	if err != nil {
		return err
	}

	sleepAfter(n.Sleep)
	return nil
}

// sleepAfter pauses between the exec lines of a review rebase so Perforce
// sees the shelves in commit order.
func sleepAfter(seconds int) {
	if seconds > 0 {
		logging.Logger.Debug("Sleeping", "seconds", seconds)
		time.Sleep(time.Duration(seconds) * time.Second)
	}
}
