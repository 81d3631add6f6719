package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings_MissingFileIsNotAnError(t *testing.T) {
	t.Setenv("GIT_P4SON_HOME", t.TempDir())

	settings, err := LoadSettings()

	require.NoError(t, err)
	assert.Equal(t, &Settings{}, settings)
}

func TestLoadSettings_ReadsValues(t *testing.T) {
	home := t.TempDir()
	t.Setenv("GIT_P4SON_HOME", home)

	content := `{"base_branch": "develop", "debug": true, "max_log_files": 50}`
	require.NoError(t, os.WriteFile(filepath.Join(home, "settings.json"), []byte(content), 0644))

	settings, err := LoadSettings()

	require.NoError(t, err)
	assert.Equal(t, "develop", settings.BaseBranch)
	require.NotNil(t, settings.Debug)
	assert.True(t, *settings.Debug)
	require.NotNil(t, settings.MaxLogFiles)
	assert.Equal(t, 50, *settings.MaxLogFiles)
	assert.Nil(t, settings.Verbose)
}

func TestLoadSettings_InvalidJSON(t *testing.T) {
	home := t.TempDir()
	t.Setenv("GIT_P4SON_HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, "settings.json"), []byte("{"), 0644))

	_, err := LoadSettings()

	assert.Error(t, err)
}

func TestWorkspacePaths(t *testing.T) {
	assert.Equal(t, filepath.Join("/ws", ".git-p4son"), MetaDir("/ws"))
	assert.Equal(t, filepath.Join("/ws", ".git-p4son", "aliases.db"), AliasDBPath("/ws"))
	assert.Equal(t, filepath.Join("/ws", ".git-p4son", "reviews", "todo"), TodoPath("/ws"))
}
