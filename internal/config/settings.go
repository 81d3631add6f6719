package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// MetaDirName is the workspace-local directory holding git-p4son state
// (alias database, generated review todo).
const MetaDirName = ".git-p4son"

// DefaultBaseBranch is the branch commits are compared against when no
// --base-branch is given.
const DefaultBaseBranch = "main"

// Settings represents the structure of ~/.git-p4son/settings.json.
// Pointer fields distinguish "unset" from an explicit false/zero so CLI
// flags and environment variables keep precedence.
type Settings struct {
	BaseBranch  string `json:"base_branch,omitempty"`
	Debug       *bool  `json:"debug,omitempty"`
	MaxLogFiles *int   `json:"max_log_files,omitempty"`
	Verbose     *bool  `json:"verbose,omitempty"`
}

// GetSettingsPath returns the path to settings.json, honoring
// $GIT_P4SON_HOME.
func GetSettingsPath() string {
	return filepath.Join(GetHomeDir(), "settings.json")
}

// GetHomeDir returns the git-p4son home directory ($GIT_P4SON_HOME or
// ~/.git-p4son).
func GetHomeDir() string {
	if home := os.Getenv("GIT_P4SON_HOME"); home != "" {
		return ExpandPath(home)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return MetaDirName
	}
	return filepath.Join(homeDir, MetaDirName)
}

// LoadSettings loads settings from settings.json. A missing file is not an
// error; defaults apply.
func LoadSettings() (*Settings, error) {
	data, err := os.ReadFile(GetSettingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("invalid settings.json: %w", err)
	}

	return &settings, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, path[1:])
}

// MetaDir returns the workspace-local state directory.
func MetaDir(workspaceDir string) string {
	return filepath.Join(workspaceDir, MetaDirName)
}

// AliasDBPath returns the path of the workspace-local alias database.
func AliasDBPath(workspaceDir string) string {
	return filepath.Join(MetaDir(workspaceDir), "aliases.db")
}

// ReviewsDir returns the directory for generated review artifacts.
func ReviewsDir(workspaceDir string) string {
	return filepath.Join(MetaDir(workspaceDir), "reviews")
}

// TodoPath returns the path of the generated rebase todo file.
func TodoPath(workspaceDir string) string {
	return filepath.Join(ReviewsDir(workspaceDir), "todo")
}
