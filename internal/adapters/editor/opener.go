// Package editor launches the user's editor on a file and blocks until it
// exits, as git itself does for rebase todos and commit messages.
package editor

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/anmitsu/go-shlex"

	"p4son/internal/logging"
	"p4son/internal/ports"
)

// Opener implements ports.EditorOpener
type Opener struct{}

var _ ports.EditorOpener = (*Opener)(nil)

// NewOpener creates a new editor opener
func NewOpener() *Opener {
	return &Opener{}
}

// OpenAndWait runs editorCmd on path with the terminal attached and waits
// for the editor to exit. editorCmd may carry its own arguments
// (for example "code --wait"), so it is split shell-style first.
func (o *Opener) OpenAndWait(ctx context.Context, editorCmd string, path string) error {
	words, err := shlex.Split(editorCmd, true)
	if err != nil {
		return fmt.Errorf("failed to parse editor command %q: %w", editorCmd, err)
	}
	if len(words) == 0 {
		return fmt.Errorf("empty editor command")
	}

	logging.Logger.Info("Opening editor", "editor", words[0], "path", path)

	cmd := exec.CommandContext(ctx, words[0], append(words[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor %q failed: %w", words[0], err)
	}
	return nil
}
