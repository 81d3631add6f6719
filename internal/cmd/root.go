// Package cmd defines the command-line surface: one kong CLI struct, a
// command struct per subcommand, and a dependency container wired after
// parsing.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"p4son/internal/config"
	"p4son/internal/logging"
)

// CLI represents the command-line interface structure
type CLI struct {
	Version     kong.VersionFlag `help:"Show version information"`
	Debug       bool             `help:"Enable debug logging to file" short:"d"`
	DebugFile   string           `help:"Custom path for debug log file (disables automatic cleanup)"`
	MaxLogFiles int              `help:"Maximum number of log files to keep (0 = unlimited)" default:"1000"`
	Verbose     bool             `help:"Show per-file sync progress and raw command output" short:"v"`
	Workspace   string           `help:"Workspace directory" default:"." type:"existingdir" short:"C"`

	Sync           SyncCmd           `cmd:"" help:"Sync the workspace to a Perforce changelist and record a marker commit"`
	Alias          AliasCmd          `cmd:"" help:"Manage changelist aliases (list, set, delete, clean)"`
	New            NewCmd            `cmd:"" help:"Create a pending changelist from commits since the base branch"`
	Update         UpdateCmd         `cmd:"" help:"Update an existing changelist from the current commit list"`
	ListChanges    ListChangesCmd    `cmd:"list-changes" help:"List commits since the base branch, enumerated"`
	Review         ReviewCmd         `cmd:"" help:"Publish commits for review via an interactive rebase"`
	SequenceEditor SequenceEditorCmd `cmd:"sequence-editor" hidden:""`

	// Internal fields (not flags)
	Container *Container       `kong:"-"`
	settings  *config.Settings `kong:"-"`
}

// SetSettings sets the settings on the CLI struct
func (c *CLI) SetSettings(settings *config.Settings) {
	c.settings = settings
}

// AfterApply initializes logging after CLI parsing and applies settings
func (c *CLI) AfterApply(kctx *kong.Context) error {
	// Apply settings with proper precedence: CLI flags > env vars > settings.json > defaults
	// Only apply if flag is at default value and env var is not set

	if c.settings != nil {
		if c.MaxLogFiles == 1000 {
			if _, hasEnv := os.LookupEnv("GIT_P4SON_MAX_LOG_FILES"); !hasEnv {
				if c.settings.MaxLogFiles != nil {
					c.MaxLogFiles = *c.settings.MaxLogFiles
				}
			}
		}

		if !c.Debug {
			if _, hasEnv := os.LookupEnv("GIT_P4SON_DEBUG"); !hasEnv {
				if c.settings.Debug != nil && *c.settings.Debug {
					c.Debug = true
				}
			}
		}

		if !c.Verbose && c.settings.Verbose != nil && *c.settings.Verbose {
			c.Verbose = true
		}
	}

	// Initialize logging first and get the log file path
	logFilePath, err := logging.Initialize(c.Debug, c.DebugFile, c.MaxLogFiles)
	if err != nil {
		return err
	}

	// Set environment variables AFTER initialization so the git p4son
	// child processes spawned by the review rebase inherit debug settings
	// and append to the SAME log file
	if c.Debug || c.DebugFile != "" {
		os.Setenv("GIT_P4SON_DEBUG", "1")
		if logFilePath != "" {
			os.Setenv("GIT_P4SON_DEBUG_FILE", logFilePath)
		}
	}
	if c.MaxLogFiles != 1000 {
		os.Setenv("GIT_P4SON_MAX_LOG_FILES", fmt.Sprintf("%d", c.MaxLogFiles))
	}

	workspaceDir, err := filepath.Abs(c.Workspace)
	if err != nil {
		return fmt.Errorf("failed to resolve workspace directory: %w", err)
	}

	// Create container AFTER logging is initialized so the GORM logger
	// bridge never sees a nil logger
	container, err := NewContainer(workspaceDir, c.Verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	c.Container = container
	kctx.Bind(container)

	return nil
}

// BaseBranch resolves the base branch with the same precedence as the
// other settings: an explicit flag wins, then settings.json, then the
// default.
func (c *CLI) BaseBranch(flag string) string {
	if flag != config.DefaultBaseBranch {
		return flag
	}
	if c.settings != nil && c.settings.BaseBranch != "" {
		return c.settings.BaseBranch
	}
	return flag
}

// Close closes all resources held by the CLI
func (c *CLI) Close() error {
	if c.Container != nil {
		return c.Container.Close()
	}
	return nil
}
