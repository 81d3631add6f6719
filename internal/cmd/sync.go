package cmd

import (
	"context"

	"p4son/internal/logging"
	"p4son/internal/services"
)

// SyncCmd syncs the workspace to a changelist
type SyncCmd struct {
	Changelist string `arg:"" help:"Changelist number, alias, \"latest\" or \"last-synced\""`
	Force      bool   `help:"Permit backward sync and clobbering writable files" short:"f"`
}

// Run executes the sync command
func (s *SyncCmd) Run(container *Container) error {
	logging.Logger.Info("Executing sync command", "changelist", s.Changelist, "force", s.Force)

	return container.SyncService.Sync(context.Background(), services.SyncParams{
		Target: s.Changelist,
		Force:  s.Force,
	})
}
