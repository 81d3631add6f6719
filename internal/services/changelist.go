package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"p4son/internal/domain"
	"p4son/internal/logging"
	"p4son/internal/ports"
)

// reviewKeyword triggers a Swarm review when present in a changelist
// description.
const reviewKeyword = "#review"

// ChangelistService creates and updates pending Perforce changelists from
// the git commits accumulated since a base branch.
type ChangelistService struct {
	git     ports.GitRepository
	p4      ports.ChangelistEditor
	changes *ChangesService
	aliases ports.AliasStore
	out     ports.Reporter
}

// NewChangelistService creates a new ChangelistService
func NewChangelistService(
	git ports.GitRepository,
	p4 ports.ChangelistEditor,
	changes *ChangesService,
	aliases ports.AliasStore,
	out ports.Reporter,
) *ChangelistService {
	return &ChangelistService{
		git:     git,
		p4:      p4,
		changes: changes,
		aliases: aliases,
		out:     out,
	}
}

// CreateParams are the inputs to Create.
type CreateParams struct {
	Alias      string
	Message    string
	BaseBranch string
	Review     bool
	Shelve     bool
	NoEdit     bool
	Force      bool
	DryRun     bool
}

// Create makes a new pending changelist described by the commits since the
// base branch, optionally saving an alias, opening the changed files,
// adding the review keyword, and shelving.
func (s *ChangelistService) Create(ctx context.Context, params CreateParams) error {
	// Fail on a taken alias before touching Perforce.
	if params.Alias != "" && !params.DryRun && !params.Force {
		if _, err := s.aliases.Resolve(ctx, params.Alias); err == nil {
			return fmt.Errorf("alias %q already exists (use -f/--force to overwrite): %w",
				params.Alias, domain.ErrAliasExists)
		}
	}

	s.out.Heading("Creating changelist")
	description, err := s.composeDescription(ctx, params.Message, params.BaseBranch)
	if err != nil {
		return err
	}

	if params.DryRun {
		s.out.Info("Would create changelist with description:")
		s.out.Info(description)
	}

	var cl domain.ChangelistPosition
	if !params.DryRun {
		cl, err = s.p4.CreateChangelist(ctx, description)
		if err != nil {
			return err
		}
		s.out.Detail("created", cl.String())
		logging.Logger.Info("Created changelist", "changelist", int64(cl))

		if params.Alias != "" {
			if err := s.aliases.Save(ctx, params.Alias, cl, params.Force); err != nil {
				return err
			}
			s.out.Detail("alias", fmt.Sprintf("%s -> %d", params.Alias, cl))
		}
	}

	if !params.NoEdit {
		s.out.Heading("Opening files for edit")
		if err := s.openChangedFiles(ctx, cl, params.BaseBranch, params.DryRun); err != nil {
			return err
		}
	}

	if params.Review {
		s.out.Heading("Adding review keyword")
		if err := s.addReviewKeyword(ctx, cl, params.DryRun); err != nil {
			return err
		}
	}

	if params.Shelve || params.Review {
		s.out.Heading("Shelving")
		if err := s.shelve(ctx, cl, params.DryRun); err != nil {
			return err
		}
	}

	s.out.Info("Done")
	return nil
}

// UpdateParams are the inputs to Update.
type UpdateParams struct {
	// Target is a changelist number or alias name.
	Target     string
	BaseBranch string
	Shelve     bool
	NoEdit     bool
	DryRun     bool
}

// Update rewrites an existing changelist's description from the current
// commit list, optionally re-opening files and re-shelving.
func (s *ChangelistService) Update(ctx context.Context, params UpdateParams) error {
	s.out.Heading("Resolving alias")
	cl, err := s.resolveTarget(ctx, params.Target)
	if err != nil {
		return err
	}
	s.out.Detail(params.Target, cl.String())

	s.out.Heading("Updating changelist description")
	existing, err := s.p4.Describe(ctx, cl)
	if err != nil {
		return err
	}
	description, err := s.composeDescription(ctx, descriptionMessage(existing), params.BaseBranch)
	if err != nil {
		return err
	}
	if strings.Contains(existing, reviewKeyword) {
		description = description + "\n\n" + reviewKeyword
	}

	if params.DryRun {
		s.out.Info("Would update description to:")
		s.out.Info(description)
	} else {
		if err := s.p4.UpdateDescription(ctx, cl, description); err != nil {
			return err
		}
		s.out.Info(fmt.Sprintf("Updated changelist %d", cl))
	}

	if !params.NoEdit {
		s.out.Heading("Opening files for edit")
		if err := s.openChangedFiles(ctx, cl, params.BaseBranch, params.DryRun); err != nil {
			return err
		}
	}

	if params.Shelve {
		s.out.Heading("Shelving")
		if err := s.shelve(ctx, cl, params.DryRun); err != nil {
			return err
		}
	}

	s.out.Info("Done")
	return nil
}

// resolveTarget turns a decimal token or alias name into a changelist
// number.
func (s *ChangelistService) resolveTarget(ctx context.Context, token string) (domain.ChangelistPosition, error) {
	if isDecimal(token) {
		n, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid changelist number %q: %w", token, err)
		}
		return domain.ChangelistPosition(n), nil
	}
	return s.aliases.Resolve(ctx, token)
}

// composeDescription joins the message and the enumerated commit list into
// a changelist description.
func (s *ChangelistService) composeDescription(ctx context.Context, message, baseBranch string) (string, error) {
	body, err := s.changes.Description(ctx, baseBranch)
	if err != nil {
		return "", err
	}
	message = strings.TrimSpace(message)
	switch {
	case message == "":
		return body, nil
	case body == "":
		return message, nil
	default:
		return message + "\n\n" + body, nil
	}
}

// descriptionMessage extracts the leading free-form message from an
// existing description, dropping the enumerated commit list and the review
// keyword which are both regenerated.
func descriptionMessage(description string) string {
	var kept []string
	for _, line := range strings.Split(description, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == reviewKeyword || isEnumeratedLine(trimmed) {
			break
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// isEnumeratedLine reports whether a line looks like "N. subject".
func isEnumeratedLine(line string) bool {
	dot := strings.Index(line, ". ")
	if dot <= 0 {
		return false
	}
	return isDecimal(line[:dot])
}

// openChangedFiles opens the files changed since baseBranch in the
// changelist: add, delete or edit per git's diff status.
func (s *ChangelistService) openChangedFiles(ctx context.Context, cl domain.ChangelistPosition, baseBranch string, dryRun bool) error {
	changes, err := s.git.ChangedFilesSince(ctx, baseBranch)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		s.out.Info("no changed files")
		return nil
	}
	if dryRun {
		for _, change := range changes {
			s.out.Info(fmt.Sprintf("Would open %s (%s)", change.Path, change.Status))
		}
		return nil
	}
	return s.p4.OpenFiles(ctx, cl, changes)
}

// addReviewKeyword appends the review keyword to the changelist
// description unless it is already present.
func (s *ChangelistService) addReviewKeyword(ctx context.Context, cl domain.ChangelistPosition, dryRun bool) error {
	if dryRun {
		s.out.Info(fmt.Sprintf("Would add %s keyword", reviewKeyword))
		return nil
	}
	description, err := s.p4.Describe(ctx, cl)
	if err != nil {
		return err
	}
	if strings.Contains(description, reviewKeyword) {
		s.out.Info("review keyword already present")
		return nil
	}
	updated := strings.TrimRight(description, "\n") + "\n\n" + reviewKeyword
	return s.p4.UpdateDescription(ctx, cl, updated)
}

// shelve replaces the changelist's shelf with its current open files.
func (s *ChangelistService) shelve(ctx context.Context, cl domain.ChangelistPosition, dryRun bool) error {
	if dryRun {
		s.out.Info("Would shelve changelist")
		return nil
	}
	return s.p4.Shelve(ctx, cl)
}
