package cmd

import (
	"context"

	"p4son/internal/logging"
	"p4son/internal/services"
)

// UpdateCmd rewrites an existing changelist from the current commit list
type UpdateCmd struct {
	Changelist string `arg:"" help:"Changelist number or alias"`
	BaseBranch string `help:"Base branch to compare against" default:"main"`
	Shelve     bool   `help:"Re-shelve the changelist"`
	NoEdit     bool   `help:"Do not open changed files in the changelist"`
	DryRun     bool   `help:"Show what would happen without doing it" short:"n"`
	Sleep      int    `help:"Sleep this many seconds after completing" hidden:""`
}

// Run executes the update command
func (u *UpdateCmd) Run(container *Container, cli *CLI) error {
	logging.Logger.Info("Executing update command",
		"changelist", u.Changelist, "shelve", u.Shelve, "dryRun", u.DryRun)

	err := container.ChangelistService.Update(context.Background(), services.UpdateParams{
		Target:     u.Changelist,
		BaseBranch: cli.BaseBranch(u.BaseBranch),
		Shelve:     u.Shelve,
		NoEdit:     u.NoEdit,
		DryRun:     u.DryRun,
	})
	if err != nil {
		return err
	}

	sleepAfter(u.Sleep)
	return nil
}
