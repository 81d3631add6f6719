// Package console centralises all user-facing terminal output: headings,
// key-value details, command echo with spinner, and verbosity filtering.
// Diagnostic logging goes through internal/logging instead; nothing here is
// ever parsed by machines.
package console

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const headingPrefix = "#"

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	commandStyle = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Console writes formatted output to stdout/stderr. Not safe for concurrent
// writes except for the spinner, which owns the cursor between Command and
// EndCommand.
type Console struct {
	out     io.Writer
	errOut  io.Writer
	verbose bool
	isTTY   bool
	styled  bool

	headingCount int

	mu          sync.Mutex
	spinnerStop chan struct{}
	spinnerDone chan struct{}
	commandLine string
}

// Option configures a Console.
type Option func(*Console)

// WithVerbose enables verbose-only output.
func WithVerbose(verbose bool) Option {
	return func(c *Console) { c.verbose = verbose }
}

// WithWriters overrides the output streams, used by tests.
func WithWriters(out, errOut io.Writer) Option {
	return func(c *Console) {
		c.out = out
		c.errOut = errOut
		c.isTTY = false
		c.styled = false
	}
}

// New creates a Console writing to stdout and stderr. Styling and the
// spinner are enabled only when stdout is a terminal.
func New(opts ...Option) *Console {
	c := &Console{
		out:    os.Stdout,
		errOut: os.Stderr,
		isTTY:  term.IsTerminal(int(os.Stdout.Fd())),
	}
	c.styled = c.isTTY
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Heading prints a section heading. Headings after the first are preceded
// by a blank line.
func (c *Console) Heading(text string) {
	if c.headingCount > 0 {
		fmt.Fprintln(c.out)
	}
	c.headingCount++
	line := fmt.Sprintf("%s %s", headingPrefix, text)
	if c.styled {
		line = headingStyle.Render(line)
	}
	fmt.Fprintln(c.out, line)
}

// Info prints an informational status line.
func (c *Console) Info(text string) {
	fmt.Fprintln(c.out, text)
}

// Detail prints a key-value result line.
func (c *Console) Detail(key string, value any) {
	fmt.Fprintf(c.out, "%s: %v\n", key, value)
}

// Verbose prints text only in verbose mode.
func (c *Console) Verbose(text string) {
	if c.verbose {
		fmt.Fprintln(c.out, text)
	}
}

// Error prints an error message to stderr.
func (c *Console) Error(text string) {
	if c.styled {
		text = errorStyle.Render(text)
	}
	fmt.Fprintln(c.errOut, text)
}

// Elapsed prints the duration of a completed command, truncated to
// milliseconds.
func (c *Console) Elapsed(d time.Duration) {
	fmt.Fprintf(c.out, "elapsed: %s\n", d.Truncate(time.Millisecond))
}

// Command echoes an external command line without a trailing newline and
// starts the spinner on a terminal. EndCommand must follow once the
// command finished, before any output that depends on its results.
func (c *Console) Command(cmd string) {
	line := "> " + cmd
	if c.styled {
		line = commandStyle.Render(line)
	}
	fmt.Fprint(c.out, line)
	c.commandLine = line
	if c.isTTY {
		c.startSpinner()
	}
}

// EndCommand stops the spinner and terminates the echoed command line.
func (c *Console) EndCommand() {
	c.stopSpinner()
	fmt.Fprintln(c.out)
}

const (
	spinnerChars    = `|/-\`
	spinnerInterval = 100 * time.Millisecond
)

// startSpinner animates a single character at the end of the current
// command line on a background goroutine. It holds no state relevant to
// correctness; stopSpinner reprints the clean line so later output never
// interleaves with animation frames.
func (c *Console) startSpinner() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.spinnerStop != nil {
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	c.spinnerStop = stop
	c.spinnerDone = done
	line := c.commandLine

	go func() {
		defer close(done)
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()
		idx := 0
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				frame := spinnerChars[idx%len(spinnerChars)]
				fmt.Fprintf(c.out, "\r%s %c", line, frame)
				idx++
			}
		}
	}()
}

func (c *Console) stopSpinner() {
	c.mu.Lock()
	stop, done := c.spinnerStop, c.spinnerDone
	c.spinnerStop, c.spinnerDone = nil, nil
	c.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
	// Reprint the clean command line over any leftover spinner frame.
	fmt.Fprintf(c.out, "\r%s", c.commandLine)
}
