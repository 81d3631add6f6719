package p4

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"p4son/internal/domain"
)

var changeCreated = regexp.MustCompile(`Change (\d+) created`)

// CreateChangelist creates a new pending changelist with the given
// description and returns its number.
func (c *Client) CreateChangelist(ctx context.Context, description string) (domain.ChangelistPosition, error) {
	form, err := c.changeForm(ctx, 0)
	if err != nil {
		return 0, err
	}

	lines, err := c.runInput(ctx, formWithDescription(form, description), "change", "-i")
	if err != nil {
		return 0, fmt.Errorf("failed to create changelist: %w", err)
	}

	for _, line := range lines {
		if m := changeCreated.FindStringSubmatch(line); m != nil {
			var n int64
			fmt.Sscanf(m[1], "%d", &n)
			return domain.ChangelistPosition(n), nil
		}
	}
	return 0, fmt.Errorf("p4 change did not report a created changelist: %s", strings.Join(lines, "\n"))
}

// UpdateDescription replaces the description of an existing changelist.
func (c *Client) UpdateDescription(ctx context.Context, pos domain.ChangelistPosition, description string) error {
	form, err := c.changeForm(ctx, pos)
	if err != nil {
		return err
	}
	if _, err := c.runInput(ctx, formWithDescription(form, description), "change", "-i"); err != nil {
		return fmt.Errorf("failed to update changelist %d: %w", int64(pos), err)
	}
	return nil
}

// Describe returns the current description of a changelist.
func (c *Client) Describe(ctx context.Context, pos domain.ChangelistPosition) (string, error) {
	form, err := c.changeForm(ctx, pos)
	if err != nil {
		return "", err
	}
	return formDescription(form), nil
}

// changeForm fetches a changelist spec form. pos 0 fetches the template
// for a new changelist.
func (c *Client) changeForm(ctx context.Context, pos domain.ChangelistPosition) (string, error) {
	args := []string{"change", "-o"}
	if pos != 0 {
		args = append(args, fmt.Sprintf("%d", int64(pos)))
	}
	lines, err := c.run(ctx, args...)
	if err != nil {
		return "", fmt.Errorf("failed to fetch changelist form: %w", err)
	}
	return strings.Join(lines, "\n"), nil
}

// OpenFiles opens files in the changelist: p4 edit for modified, p4 add
// for new, p4 delete for removed.
func (c *Client) OpenFiles(ctx context.Context, pos domain.ChangelistPosition, changes []domain.FileChange) error {
	byVerb := map[string][]string{}
	for _, change := range changes {
		switch change.Status {
		case domain.ChangeAdded:
			byVerb["add"] = append(byVerb["add"], change.Path)
		case domain.ChangeDeleted:
			byVerb["delete"] = append(byVerb["delete"], change.Path)
		default:
			byVerb["edit"] = append(byVerb["edit"], change.Path)
		}
	}

	cl := fmt.Sprintf("%d", int64(pos))
	for _, verb := range []string{"edit", "add", "delete"} {
		paths := byVerb[verb]
		if len(paths) == 0 {
			continue
		}
		args := append([]string{verb, "-c", cl}, paths...)
		if _, err := c.run(ctx, args...); err != nil {
			return fmt.Errorf("failed to open files for %s: %w", verb, err)
		}
	}
	return nil
}

// Shelve shelves the changelist, replacing any existing shelf.
func (c *Client) Shelve(ctx context.Context, pos domain.ChangelistPosition) error {
	if _, err := c.run(ctx, "shelve", "-f", "-c", fmt.Sprintf("%d", int64(pos))); err != nil {
		return fmt.Errorf("failed to shelve changelist %d: %w", int64(pos), err)
	}
	return nil
}
