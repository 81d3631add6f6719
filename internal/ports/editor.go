package ports

import "context"

// EditorOpener opens a file in the user's editor and waits for it to
// close. editorCmd is a full command line (for example "code --wait") as
// resolved from git configuration.
type EditorOpener interface {
	OpenAndWait(ctx context.Context, editorCmd string, path string) error
}
