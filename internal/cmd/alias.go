package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"

	"p4son/internal/domain"
	"p4son/internal/logging"
)

// AliasCmd groups the alias subcommands
type AliasCmd struct {
	List   AliasListCmd   `cmd:"" help:"List all aliases"`
	Set    AliasSetCmd    `cmd:"" help:"Set an alias for a changelist number"`
	Delete AliasDeleteCmd `cmd:"" help:"Delete an alias"`
	Clean  AliasCleanCmd  `cmd:"" help:"Interactively delete aliases"`
}

// AliasListCmd lists all aliases
type AliasListCmd struct{}

// Run executes the alias list command
func (a *AliasListCmd) Run(container *Container) error {
	aliases, err := container.Aliases.List(context.Background())
	if err != nil {
		return err
	}
	if len(aliases) == 0 {
		container.Out.Info("No aliases defined")
		return nil
	}
	for _, alias := range aliases {
		container.Out.Info(fmt.Sprintf("%s -> %d", alias.Name, alias.Changelist))
	}
	return nil
}

// AliasSetCmd sets an alias
type AliasSetCmd struct {
	Alias      string `arg:"" help:"Alias name"`
	Changelist string `arg:"" help:"Changelist number"`
	Force      bool   `help:"Overwrite an existing alias" short:"f"`
}

// Run executes the alias set command
func (a *AliasSetCmd) Run(container *Container) error {
	n, err := strconv.ParseInt(a.Changelist, 10, 64)
	if err != nil || n < 0 {
		return fmt.Errorf("invalid changelist number: %s", a.Changelist)
	}

	logging.Logger.Info("Setting alias", "alias", a.Alias, "changelist", n, "force", a.Force)
	if err := container.Aliases.Save(context.Background(),
		a.Alias, domain.ChangelistPosition(n), a.Force); err != nil {
		if errors.Is(err, domain.ErrAliasExists) {
			return fmt.Errorf("alias %q already exists (use -f/--force to overwrite)", a.Alias)
		}
		return err
	}

	container.Out.Detail("alias", fmt.Sprintf("%s -> %d", a.Alias, n))
	return nil
}

// AliasDeleteCmd deletes an alias
type AliasDeleteCmd struct {
	Alias string `arg:"" help:"Alias name"`
}

// Run executes the alias delete command
func (a *AliasDeleteCmd) Run(container *Container) error {
	if err := container.Aliases.Delete(context.Background(), a.Alias); err != nil {
		return err
	}
	container.Out.Info(fmt.Sprintf("Deleted alias %q", a.Alias))
	return nil
}

// AliasCleanCmd interactively deletes aliases
type AliasCleanCmd struct{}

// Run executes the alias clean command, asking per alias with
// yes/no/all/quit semantics
func (a *AliasCleanCmd) Run(container *Container) error {
	ctx := context.Background()
	aliases, err := container.Aliases.List(ctx)
	if err != nil {
		return err
	}
	if len(aliases) == 0 {
		container.Out.Info("No aliases to clean")
		return nil
	}

	deleteAll := false
	deleted := 0

	for _, alias := range aliases {
		if !deleteAll {
			choice, err := a.confirm(alias.Name, alias.Changelist)
			if err != nil {
				return err
			}
			switch choice {
			case "no":
				continue
			case "quit":
				container.Out.Info(fmt.Sprintf("Deleted %d alias(es)", deleted))
				return nil
			case "all":
				deleteAll = true
			}
		}

		if err := container.Aliases.Delete(ctx, alias.Name); err != nil {
			return err
		}
		container.Out.Info(fmt.Sprintf("Deleted %q", alias.Name))
		deleted++
	}

	container.Out.Info(fmt.Sprintf("Deleted %d alias(es)", deleted))
	return nil
}

func (a *AliasCleanCmd) confirm(name string, changelist domain.ChangelistPosition) (string, error) {
	choice := "no"
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Delete %s -> %d?", name, changelist)).
				Options(
					huh.NewOption("yes", "yes"),
					huh.NewOption("no", "no"),
					huh.NewOption("all", "all"),
					huh.NewOption("quit", "quit"),
				).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return choice, nil
}
