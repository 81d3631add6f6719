package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"p4son/internal/domain"
)

// fakeGitRepo implements ports.GitRepository with scripted history.
type fakeGitRepo struct {
	subjects []string
	lines    []string
	changed  []domain.FileChange
}

func (g *fakeGitRepo) IsClean(ctx context.Context) (bool, error) { return true, nil }
func (g *fakeGitRepo) AddAll(ctx context.Context) error          { return nil }
func (g *fakeGitRepo) Commit(ctx context.Context, message string, allowEmpty bool) error {
	return nil
}

func (g *fakeGitRepo) CommitSubjectsSince(ctx context.Context, baseBranch string) ([]string, error) {
	return g.subjects, nil
}

func (g *fakeGitRepo) CommitLinesSince(ctx context.Context, baseBranch string) ([]string, error) {
	return g.lines, nil
}

func (g *fakeGitRepo) ChangedFilesSince(ctx context.Context, baseBranch string) ([]domain.FileChange, error) {
	return g.changed, nil
}

func (g *fakeGitRepo) InteractiveRebase(ctx context.Context, baseBranch string, extraEnv []string) error {
	return errors.New("not supported")
}

func (g *fakeGitRepo) EditorCommand(ctx context.Context) (string, error) {
	return "", errors.New("not supported")
}

// fakeChangelistEditor implements ports.ChangelistEditor.
type fakeChangelistEditor struct {
	nextNumber   domain.ChangelistPosition
	descriptions map[domain.ChangelistPosition]string

	created []string
	opened  []domain.FileChange
	shelved []domain.ChangelistPosition
}

func newFakeChangelistEditor() *fakeChangelistEditor {
	return &fakeChangelistEditor{
		nextNumber:   1234,
		descriptions: map[domain.ChangelistPosition]string{},
	}
}

func (e *fakeChangelistEditor) CreateChangelist(ctx context.Context, description string) (domain.ChangelistPosition, error) {
	e.created = append(e.created, description)
	cl := e.nextNumber
	e.descriptions[cl] = description
	return cl, nil
}

func (e *fakeChangelistEditor) UpdateDescription(ctx context.Context, pos domain.ChangelistPosition, description string) error {
	if _, ok := e.descriptions[pos]; !ok {
		return fmt.Errorf("changelist %d does not exist", pos)
	}
	e.descriptions[pos] = description
	return nil
}

func (e *fakeChangelistEditor) Describe(ctx context.Context, pos domain.ChangelistPosition) (string, error) {
	description, ok := e.descriptions[pos]
	if !ok {
		return "", fmt.Errorf("changelist %d does not exist", pos)
	}
	return description, nil
}

func (e *fakeChangelistEditor) OpenFiles(ctx context.Context, pos domain.ChangelistPosition, changes []domain.FileChange) error {
	e.opened = append(e.opened, changes...)
	return nil
}

func (e *fakeChangelistEditor) Shelve(ctx context.Context, pos domain.ChangelistPosition) error {
	e.shelved = append(e.shelved, pos)
	return nil
}

// fakeAliasStore implements ports.AliasStore over a map.
type fakeAliasStore struct {
	entries map[string]domain.ChangelistPosition
}

func newFakeAliasStore() *fakeAliasStore {
	return &fakeAliasStore{entries: map[string]domain.ChangelistPosition{}}
}

func (s *fakeAliasStore) Resolve(ctx context.Context, name string) (domain.ChangelistPosition, error) {
	pos, ok := s.entries[name]
	if !ok {
		return 0, fmt.Errorf("alias %q: %w", name, domain.ErrAliasNotFound)
	}
	return pos, nil
}

func (s *fakeAliasStore) Save(ctx context.Context, name string, pos domain.ChangelistPosition, force bool) error {
	if _, ok := s.entries[name]; ok && !force {
		return fmt.Errorf("alias %q: %w", name, domain.ErrAliasExists)
	}
	s.entries[name] = pos
	return nil
}

func (s *fakeAliasStore) List(ctx context.Context) ([]domain.Alias, error) {
	var aliases []domain.Alias
	for name, pos := range s.entries {
		aliases = append(aliases, domain.Alias{Name: name, Changelist: pos})
	}
	return aliases, nil
}

func (s *fakeAliasStore) Delete(ctx context.Context, name string) error {
	if _, ok := s.entries[name]; !ok {
		return fmt.Errorf("alias %q: %w", name, domain.ErrAliasNotFound)
	}
	delete(s.entries, name)
	return nil
}

func (s *fakeAliasStore) Close() error { return nil }

type changelistFixture struct {
	git     *fakeGitRepo
	p4      *fakeChangelistEditor
	aliases *fakeAliasStore
	out     *fakeReporter
	service *ChangelistService
}

func newChangelistFixture() *changelistFixture {
	f := &changelistFixture{
		git:     &fakeGitRepo{},
		p4:      newFakeChangelistEditor(),
		aliases: newFakeAliasStore(),
		out:     &fakeReporter{},
	}
	f.service = NewChangelistService(f.git, f.p4, NewChangesService(f.git), f.aliases, f.out)
	return f
}

func TestCreateChangelist(t *testing.T) {
	f := newChangelistFixture()
	f.git.subjects = []string{"Fix login timeout", "Add retry logic"}
	f.git.changed = []domain.FileChange{
		{Status: domain.ChangeModified, Path: "src/login.go"},
		{Status: domain.ChangeAdded, Path: "src/retry.go"},
	}

	err := f.service.Create(context.Background(), CreateParams{
		Alias:      "auth-fixes",
		Message:    "Auth hardening",
		BaseBranch: "main",
	})
	require.NoError(t, err)

	require.Len(t, f.p4.created, 1)
	assert.Equal(t, "Auth hardening\n\n1. Fix login timeout\n2. Add retry logic", f.p4.created[0])
	assert.Equal(t, domain.ChangelistPosition(1234), f.aliases.entries["auth-fixes"])
	assert.Len(t, f.p4.opened, 2)
	assert.Empty(t, f.p4.shelved)
	assert.Contains(t, f.out.details, "created: CL 1234")
}

func TestCreateRejectsTakenAlias(t *testing.T) {
	f := newChangelistFixture()
	f.aliases.entries["taken"] = 99

	err := f.service.Create(context.Background(), CreateParams{
		Alias:      "taken",
		Message:    "msg",
		BaseBranch: "main",
	})
	assert.ErrorIs(t, err, domain.ErrAliasExists)
	assert.Empty(t, f.p4.created)
}

func TestCreateWithReviewShelves(t *testing.T) {
	f := newChangelistFixture()
	f.git.subjects = []string{"One commit"}

	err := f.service.Create(context.Background(), CreateParams{
		Message:    "msg",
		BaseBranch: "main",
		Review:     true,
		NoEdit:     true,
	})
	require.NoError(t, err)

	description := f.p4.descriptions[1234]
	assert.Contains(t, description, "#review")
	assert.Equal(t, []domain.ChangelistPosition{1234}, f.p4.shelved)
}

func TestCreateDryRunTouchesNothing(t *testing.T) {
	f := newChangelistFixture()
	f.git.subjects = []string{"One commit"}
	f.git.changed = []domain.FileChange{{Status: domain.ChangeModified, Path: "a.go"}}

	err := f.service.Create(context.Background(), CreateParams{
		Alias:      "dry",
		Message:    "msg",
		BaseBranch: "main",
		Shelve:     true,
		DryRun:     true,
	})
	require.NoError(t, err)

	assert.Empty(t, f.p4.created)
	assert.Empty(t, f.p4.opened)
	assert.Empty(t, f.p4.shelved)
	assert.Empty(t, f.aliases.entries)
}

func TestUpdateRewritesDescription(t *testing.T) {
	f := newChangelistFixture()
	f.aliases.entries["auth-fixes"] = 1234
	f.p4.descriptions[1234] = "Auth hardening\n\n1. Fix login timeout"
	f.git.subjects = []string{"Fix login timeout", "Add retry logic"}

	err := f.service.Update(context.Background(), UpdateParams{
		Target:     "auth-fixes",
		BaseBranch: "main",
		NoEdit:     true,
	})
	require.NoError(t, err)

	assert.Equal(t,
		"Auth hardening\n\n1. Fix login timeout\n2. Add retry logic",
		f.p4.descriptions[1234])
	assert.Contains(t, f.out.infos, "Updated changelist 1234")
}

func TestUpdatePreservesReviewKeyword(t *testing.T) {
	f := newChangelistFixture()
	f.p4.descriptions[1234] = "msg\n\n1. Old subject\n\n#review"
	f.git.subjects = []string{"New subject"}

	err := f.service.Update(context.Background(), UpdateParams{
		Target:     "1234",
		BaseBranch: "main",
		NoEdit:     true,
	})
	require.NoError(t, err)

	assert.Equal(t, "msg\n\n1. New subject\n\n#review", f.p4.descriptions[1234])
}

func TestUpdateWithShelve(t *testing.T) {
	f := newChangelistFixture()
	f.p4.descriptions[1234] = "msg"
	f.git.subjects = []string{"A subject"}

	err := f.service.Update(context.Background(), UpdateParams{
		Target:     "1234",
		BaseBranch: "main",
		NoEdit:     true,
		Shelve:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.ChangelistPosition{1234}, f.p4.shelved)
}

func TestDescriptionMessage(t *testing.T) {
	tests := []struct {
		name        string
		description string
		expected    string
	}{
		{
			name:        "message then enumeration",
			description: "Auth hardening\n\n1. Fix login timeout\n2. Add retry",
			expected:    "Auth hardening",
		},
		{
			name:        "multi-line message",
			description: "Line one\nLine two\n\n1. Subject",
			expected:    "Line one\nLine two",
		},
		{
			name:        "enumeration only",
			description: "1. Subject",
			expected:    "",
		},
		{
			name:        "message with review keyword",
			description: "msg\n\n#review",
			expected:    "msg",
		},
		{
			name:        "plain message",
			description: "just a message",
			expected:    "just a message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, descriptionMessage(tt.description))
		})
	}
}

func TestEnumeratedChanges(t *testing.T) {
	git := &fakeGitRepo{subjects: []string{"first", "second", "third"}}
	service := NewChangesService(git)

	lines, err := service.EnumeratedChanges(context.Background(), "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"1. first", "2. second", "3. third"}, lines)
}

func TestDescriptionEmptyWhenNoCommits(t *testing.T) {
	service := NewChangesService(&fakeGitRepo{})

	description, err := service.Description(context.Background(), "main")
	require.NoError(t, err)
	assert.Equal(t, "", description)
}
