package cmd

import (
	"context"
)

// ListChangesCmd prints the enumerated commits since the base branch
type ListChangesCmd struct {
	BaseBranch string `help:"Base branch to compare against" default:"main"`
}

// Run executes the list-changes command
func (l *ListChangesCmd) Run(container *Container, cli *CLI) error {
	lines, err := container.ChangesService.EnumeratedChanges(
		context.Background(), cli.BaseBranch(l.BaseBranch))
	if err != nil {
		return err
	}

	if len(lines) == 0 {
		container.Out.Info("No changes found")
		return nil
	}
	for _, line := range lines {
		container.Out.Info(line)
	}
	return nil
}
