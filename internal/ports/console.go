package ports

import "time"

// Reporter is the user-facing output surface. All informational output goes
// through it so command echo, verbosity filtering and styling stay in one
// place. It is a superset of domain.ProgressReporter.
type Reporter interface {
	// Heading prints a section heading, preceded by a blank line after the
	// first heading.
	Heading(text string)

	// Info prints an informational status line.
	Info(text string)

	// Detail prints a key-value result line.
	Detail(key string, value any)

	// Verbose prints text only when verbose mode is enabled.
	Verbose(text string)

	// Error prints an error message to stderr.
	Error(text string)

	// Elapsed prints the duration of a completed command.
	Elapsed(d time.Duration)

	// Command echoes an external command line without a trailing newline
	// and starts the spinner when attached to a terminal.
	Command(cmd string)

	// EndCommand stops the spinner and terminates the command line.
	EndCommand()
}
