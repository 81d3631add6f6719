// Package p4 wraps the p4 command-line client. All depot access goes
// through the external binary; this package parses its text output and
// interprets exit codes, nothing more.
package p4

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"p4son/internal/domain"
	"p4son/internal/logging"
	"p4son/internal/ports"
)

// Client implements ports.PerforceClient by shelling out to p4 in the
// workspace directory.
type Client struct {
	dir string
	out ports.Reporter
}

// Verify interface compliance at compile time
var _ ports.PerforceClient = (*Client)(nil)

// NewClient creates a p4 client rooted at workspaceDir. Commands are echoed
// through out before execution.
func NewClient(workspaceDir string, out ports.Reporter) *Client {
	return &Client{dir: workspaceDir, out: out}
}

// run executes a p4 command, captures its output and returns stdout lines.
// The command line is echoed with a spinner while it runs.
func (c *Client) run(ctx context.Context, args ...string) ([]string, error) {
	return c.runInput(ctx, "", args...)
}

// runInput is run with text fed to the command's stdin (p4 change -i forms).
func (c *Client) runInput(ctx context.Context, stdin string, args ...string) ([]string, error) {
	cmdLine := "p4 " + strings.Join(args, " ")
	logging.Logger.Debug("Running p4 command", "args", args, "dir", c.dir)

	cmd := exec.CommandContext(ctx, "p4", args...)
	cmd.Dir = c.dir
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
		c.verboseStdin(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.out.Command(cmdLine)
	err := cmd.Run()
	c.out.EndCommand()

	if err != nil {
		logging.Logger.Error("p4 command failed", "args", args, "error", err, "stderr", stderr.String())
		return nil, &domain.CommandError{
			Command: cmdLine,
			Stderr:  splitLines(stderr.Bytes()),
			Err:     err,
		}
	}
	return splitLines(stdout.Bytes()), nil
}

// stream executes a p4 command and invokes onLine for each stdout line as
// the subprocess emits it. The command echo is terminated before streaming
// starts so progress lines don't interleave with the spinner.
func (c *Client) stream(ctx context.Context, onLine func(string), args ...string) error {
	cmdLine := "p4 " + strings.Join(args, " ")
	logging.Logger.Debug("Streaming p4 command", "args", args, "dir", c.dir)

	cmd := exec.CommandContext(ctx, "p4", args...)
	cmd.Dir = c.dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	c.out.Command(cmdLine)
	c.out.EndCommand()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", cmdLine, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		onLine(scanner.Text())
	}
	scanErr := scanner.Err()

	if err := cmd.Wait(); err != nil {
		logging.Logger.Error("p4 command failed", "args", args, "error", err, "stderr", stderr.String())
		return &domain.CommandError{
			Command: cmdLine,
			Stderr:  splitLines(stderr.Bytes()),
			Err:     err,
		}
	}
	if scanErr != nil {
		return fmt.Errorf("failed reading %s output: %w", cmdLine, scanErr)
	}
	return nil
}

func (c *Client) verboseStdin(text string) {
	c.out.Verbose("stdin:")
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		c.out.Verbose("  " + line)
	}
}

// splitLines splits command output into lines, dropping a trailing empty
// line but preserving interior empty lines.
func splitLines(output []byte) []string {
	text := strings.TrimRight(string(output), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// HasOpenFiles reports whether any files are opened in the workspace.
func (c *Client) HasOpenFiles(ctx context.Context) (bool, error) {
	lines, err := c.run(ctx, "opened")
	if err != nil {
		return false, fmt.Errorf("failed to list opened files: %w", err)
	}
	return len(lines) > 0, nil
}

// CountPendingFiles returns how many files a sync to pos would change,
// using a dry run. The up-to-date sentinel is not a pending file.
func (c *Client) CountPendingFiles(ctx context.Context, pos domain.ChangelistPosition) (int, error) {
	lines, err := c.run(ctx, "sync", "-n", fmt.Sprintf("//...@%d", pos))
	if err != nil {
		return 0, fmt.Errorf("failed to count files to sync: %w", err)
	}
	count := 0
	for _, line := range lines {
		if line == "" || domain.IsUpToDateNotice(line) {
			continue
		}
		count++
	}
	return count, nil
}

// Pull syncs the whole view to pos, streaming stdout lines to onLine.
func (c *Client) Pull(ctx context.Context, pos domain.ChangelistPosition, onLine func(string)) error {
	return c.stream(ctx, onLine, "sync", fmt.Sprintf("//...@%d", pos))
}

// PullFile force-syncs a single path at pos.
func (c *Client) PullFile(ctx context.Context, path string, pos domain.ChangelistPosition, onLine func(string)) error {
	return c.stream(ctx, onLine, "sync", "-f", fmt.Sprintf("%s@%d", path, pos))
}

const clientNamePrefix = "Client name:"

// ClientName returns the p4 client name from p4 info.
func (c *Client) ClientName(ctx context.Context) (string, error) {
	lines, err := c.run(ctx, "info")
	if err != nil {
		return "", fmt.Errorf("failed to query p4 info: %w", err)
	}
	for _, line := range lines {
		if strings.HasPrefix(line, clientNamePrefix) {
			return strings.TrimSpace(line[len(clientNamePrefix):]), nil
		}
	}
	return "", fmt.Errorf("no client name found in p4 info output")
}

// changeLine matches the head of p4 changes output, e.g.
// "Change 54321 on 2024/01/02 by user@client 'message'".
var changeLine = regexp.MustCompile(`Change (\d+)`)

// LatestSubmittedChange returns the most recent submitted changelist
// touching the client's view.
func (c *Client) LatestSubmittedChange(ctx context.Context, clientName string) (domain.ChangelistPosition, error) {
	view := fmt.Sprintf("//%s/...#head", clientName)
	lines, err := c.run(ctx, "changes", "-m1", "-s", "submitted", view)
	if err != nil {
		return 0, fmt.Errorf("failed to list submitted changes: %w", err)
	}
	if len(lines) == 0 {
		return 0, fmt.Errorf("no changelists found affecting workspace")
	}
	pos, ok := ParseChangeLine(lines[0])
	if !ok {
		return 0, fmt.Errorf("failed to parse changelist from: %s", lines[0])
	}
	return pos, nil
}

// ParseChangeLine extracts the changelist number from one line of p4
// changes output. The "Change <digits>" shape is a brittle external
// boundary; keep this in sync with the compatibility test.
func ParseChangeLine(line string) (domain.ChangelistPosition, bool) {
	m := changeLine.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	var n int64
	if _, err := fmt.Sscanf(m[1], "%d", &n); err != nil {
		return 0, false
	}
	return domain.ChangelistPosition(n), true
}
