package cmd

import (
	adaptereditor "p4son/internal/adapters/editor"
	adaptergit "p4son/internal/adapters/git"
	adapterp4 "p4son/internal/adapters/p4"
	adapterstorage "p4son/internal/adapters/storage"
	"p4son/internal/config"
	"p4son/internal/console"
	"p4son/internal/ports"
	"p4son/internal/services"
)

// Container holds all dependencies for the application
type Container struct {
	// Services
	ChangelistService *services.ChangelistService
	ChangesService    *services.ChangesService
	ReviewService     *services.ReviewService
	SyncService       *services.SyncService

	// Shared adapters
	Aliases ports.AliasStore
	Out     ports.Reporter

	workspaceDir string
}

// NewContainer creates a new Container with all dependencies wired
func NewContainer(workspaceDir string, verbose bool) (*Container, error) {
	out := console.New(console.WithVerbose(verbose))

	aliasStore, err := adapterstorage.NewAliasRepository(config.AliasDBPath(workspaceDir))
	if err != nil {
		return nil, err
	}

	gitRepo := adaptergit.NewCLIRepository(workspaceDir, out)
	positions := adaptergit.NewMarkerStore(gitRepo)
	p4Client := adapterp4.NewClient(workspaceDir, out)
	editorOpener := adaptereditor.NewOpener()

	changesService := services.NewChangesService(gitRepo)
	syncService := services.NewSyncService(gitRepo, p4Client, positions, aliasStore, out)
	changelistService := services.NewChangelistService(gitRepo, p4Client, changesService, aliasStore, out)
	reviewService := services.NewReviewService(gitRepo, aliasStore, editorOpener, workspaceDir, out)

	return &Container{
		ChangelistService: changelistService,
		ChangesService:    changesService,
		ReviewService:     reviewService,
		SyncService:       syncService,
		Aliases:           aliasStore,
		Out:               out,
		workspaceDir:      workspaceDir,
	}, nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	if c.Aliases != nil {
		return c.Aliases.Close()
	}
	return nil
}
