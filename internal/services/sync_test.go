package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"p4son/internal/domain"
)

// fakeReporter captures console output for assertions.
type fakeReporter struct {
	headings []string
	infos    []string
	details  []string
	errs     []string
}

func (r *fakeReporter) Heading(text string) { r.headings = append(r.headings, text) }
func (r *fakeReporter) Info(text string)    { r.infos = append(r.infos, text) }
func (r *fakeReporter) Detail(key string, value any) {
	r.details = append(r.details, fmt.Sprintf("%s: %v", key, value))
}
func (r *fakeReporter) Verbose(text string)     {}
func (r *fakeReporter) Error(text string)       { r.errs = append(r.errs, text) }
func (r *fakeReporter) Elapsed(d time.Duration) {}
func (r *fakeReporter) Command(cmd string)      {}
func (r *fakeReporter) EndCommand()             {}

// fakeGitStatus implements ports.GitStatus.
type fakeGitStatus struct {
	clean bool
}

func (g *fakeGitStatus) IsClean(ctx context.Context) (bool, error) {
	return g.clean, nil
}

// fakePerforce implements ports.PerforceClient with scripted responses.
type fakePerforce struct {
	openFiles  bool
	counts     map[domain.ChangelistPosition]int
	pullLines  map[domain.ChangelistPosition][]string
	pullErrs   map[domain.ChangelistPosition]error
	clientName string
	latest     domain.ChangelistPosition

	pulls     []domain.ChangelistPosition
	filePulls []string
}

func (p *fakePerforce) HasOpenFiles(ctx context.Context) (bool, error) {
	return p.openFiles, nil
}

func (p *fakePerforce) CountPendingFiles(ctx context.Context, pos domain.ChangelistPosition) (int, error) {
	return p.counts[pos], nil
}

func (p *fakePerforce) Pull(ctx context.Context, pos domain.ChangelistPosition, onLine func(string)) error {
	p.pulls = append(p.pulls, pos)
	for _, line := range p.pullLines[pos] {
		onLine(line)
	}
	return p.pullErrs[pos]
}

func (p *fakePerforce) PullFile(ctx context.Context, path string, pos domain.ChangelistPosition, onLine func(string)) error {
	p.filePulls = append(p.filePulls, path)
	onLine(fmt.Sprintf("//depot/x - updating %s", path))
	return nil
}

func (p *fakePerforce) ClientName(ctx context.Context) (string, error) {
	if p.clientName == "" {
		return "", errors.New("no client name")
	}
	return p.clientName, nil
}

func (p *fakePerforce) LatestSubmittedChange(ctx context.Context, clientName string) (domain.ChangelistPosition, error) {
	if p.latest == 0 {
		return 0, errors.New("no changelists found")
	}
	return p.latest, nil
}

func (p *fakePerforce) CreateChangelist(ctx context.Context, description string) (domain.ChangelistPosition, error) {
	return 0, errors.New("not supported")
}

func (p *fakePerforce) UpdateDescription(ctx context.Context, pos domain.ChangelistPosition, description string) error {
	return errors.New("not supported")
}

func (p *fakePerforce) Describe(ctx context.Context, pos domain.ChangelistPosition) (string, error) {
	return "", errors.New("not supported")
}

func (p *fakePerforce) OpenFiles(ctx context.Context, pos domain.ChangelistPosition, changes []domain.FileChange) error {
	return errors.New("not supported")
}

func (p *fakePerforce) Shelve(ctx context.Context, pos domain.ChangelistPosition) error {
	return errors.New("not supported")
}

// fakePositions implements ports.PositionStore in memory.
type fakePositions struct {
	pos      domain.ChangelistPosition
	has      bool
	recorded []domain.ChangelistPosition
}

func (s *fakePositions) CurrentPosition(ctx context.Context) (domain.ChangelistPosition, bool, error) {
	return s.pos, s.has, nil
}

func (s *fakePositions) RecordPosition(ctx context.Context, pos domain.ChangelistPosition) error {
	s.recorded = append(s.recorded, pos)
	s.pos = pos
	s.has = true
	return nil
}

// fakeAliases implements ports.AliasResolver over a map.
type fakeAliases map[string]domain.ChangelistPosition

func (a fakeAliases) Resolve(ctx context.Context, name string) (domain.ChangelistPosition, error) {
	pos, ok := a[name]
	if !ok {
		return 0, fmt.Errorf("alias %q: %w", name, domain.ErrAliasNotFound)
	}
	return pos, nil
}

type syncFixture struct {
	git       *fakeGitStatus
	p4        *fakePerforce
	positions *fakePositions
	aliases   fakeAliases
	out       *fakeReporter
	service   *SyncService
}

func newSyncFixture() *syncFixture {
	f := &syncFixture{
		git: &fakeGitStatus{clean: true},
		p4: &fakePerforce{
			counts:    map[domain.ChangelistPosition]int{},
			pullLines: map[domain.ChangelistPosition][]string{},
			pullErrs:  map[domain.ChangelistPosition]error{},
		},
		positions: &fakePositions{},
		aliases:   fakeAliases{},
		out:       &fakeReporter{},
	}
	f.service = NewSyncService(f.git, f.p4, f.positions, f.aliases, f.out)
	return f
}

func TestSyncFirstTimeUpToDate(t *testing.T) {
	// No prior marker; dry count zero. No pull runs but the marker is
	// still created so the position becomes discoverable.
	f := newSyncFixture()

	err := f.service.Sync(context.Background(), SyncParams{Target: "100"})
	require.NoError(t, err)

	assert.Empty(t, f.p4.pulls)
	assert.Equal(t, []domain.ChangelistPosition{100}, f.positions.recorded)
	assert.Contains(t, f.out.infos, "all files up to date")
}

func TestSyncLatestDoublePull(t *testing.T) {
	// Current marker at 80, "latest" resolves to 95: re-anchor at 80
	// first, then advance, one marker at 95.
	f := newSyncFixture()
	f.positions.pos, f.positions.has = 80, true
	f.p4.clientName = "dev-ws"
	f.p4.latest = 95
	f.p4.counts[80] = 3
	f.p4.counts[95] = 5
	f.p4.pullLines[80] = []string{
		"//depot/a.txt#2 - updating /ws/a.txt",
		"//depot/b.txt#1 - added as /ws/b.txt",
		"//depot/c.txt#9 - deleted as /ws/c.txt",
	}
	f.p4.pullLines[95] = []string{
		"//depot/d.txt#4 - updating /ws/d.txt",
	}

	err := f.service.Sync(context.Background(), SyncParams{Target: "latest"})
	require.NoError(t, err)

	assert.Equal(t, []domain.ChangelistPosition{80, 95}, f.p4.pulls)
	assert.Equal(t, []domain.ChangelistPosition{95}, f.positions.recorded)
	assert.Contains(t, f.out.details, "latest: CL 95")
	assert.Contains(t, f.out.infos, "synced 2 files (add: 1, upd: 1, del: 1)")
	assert.Contains(t, f.out.infos, "synced 1 files (upd: 1)")
}

func TestSyncIdempotentTarget(t *testing.T) {
	f := newSyncFixture()
	f.positions.pos, f.positions.has = 100, true

	err := f.service.Sync(context.Background(), SyncParams{Target: "100"})
	require.NoError(t, err)

	assert.Empty(t, f.p4.pulls)
	assert.Empty(t, f.positions.recorded)
	assert.Contains(t, f.out.infos, "Already at CL 100, nothing to do.")
}

func TestSyncBackwardGuard(t *testing.T) {
	f := newSyncFixture()
	f.positions.pos, f.positions.has = 100, true

	err := f.service.Sync(context.Background(), SyncParams{Target: "90"})
	assert.ErrorIs(t, err, domain.ErrBackwardSync)
	assert.Empty(t, f.p4.pulls)
	assert.Empty(t, f.positions.recorded)
}

func TestSyncBackwardWithForce(t *testing.T) {
	f := newSyncFixture()
	f.positions.pos, f.positions.has = 100, true
	f.p4.counts[100] = 1
	f.p4.counts[90] = 1
	f.p4.pullLines[100] = []string{"//depot/a#2 - updating /ws/a"}
	f.p4.pullLines[90] = []string{"//depot/a#1 - updating /ws/a"}

	err := f.service.Sync(context.Background(), SyncParams{Target: "90", Force: true})
	require.NoError(t, err)

	assert.Equal(t, []domain.ChangelistPosition{100, 90}, f.p4.pulls)
	assert.Equal(t, []domain.ChangelistPosition{90}, f.positions.recorded)
	assert.Contains(t, f.out.infos,
		"Warning: syncing to older CL 90 (currently at CL 100) with --force")
}

func TestSyncClobberWithoutForce(t *testing.T) {
	f := newSyncFixture()
	f.p4.counts[50] = 2
	f.p4.pullErrs[50] = &domain.CommandError{
		Command: "p4 sync //...@50",
		Stderr: []string{
			"Can't clobber writable file a.txt",
			"Can't clobber writable file b/c.txt",
		},
		Err: errors.New("exit status 1"),
	}

	err := f.service.Sync(context.Background(), SyncParams{Target: "50"})
	assert.ErrorIs(t, err, domain.ErrWritableConflicts)

	assert.Empty(t, f.p4.filePulls)
	assert.Empty(t, f.positions.recorded)
	assert.Contains(t, f.out.infos, "Found 2 writable files")
	assert.Contains(t, f.out.infos, "Leaving files as is, use --force to force sync")
	assert.Contains(t, f.out.infos, "a.txt")
	assert.Contains(t, f.out.infos, "b/c.txt")
}

func TestSyncClobberWithForce(t *testing.T) {
	f := newSyncFixture()
	f.p4.counts[50] = 2
	f.p4.pullErrs[50] = &domain.CommandError{
		Command: "p4 sync //...@50",
		Stderr: []string{
			"Can't clobber writable file a.txt",
			"Can't clobber writable file b/c.txt",
		},
		Err: errors.New("exit status 1"),
	}

	err := f.service.Sync(context.Background(), SyncParams{Target: "50", Force: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt", "b/c.txt"}, f.p4.filePulls)
	assert.Equal(t, []domain.ChangelistPosition{50}, f.positions.recorded)
}

func TestSyncNonClobberFailureIsFatal(t *testing.T) {
	f := newSyncFixture()
	f.p4.counts[50] = 1
	f.p4.pullErrs[50] = &domain.CommandError{
		Command: "p4 sync //...@50",
		Stderr:  []string{"Connect to server failed"},
		Err:     errors.New("exit status 1"),
	}

	err := f.service.Sync(context.Background(), SyncParams{Target: "50"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrWritableConflicts)
	assert.Empty(t, f.p4.filePulls)
	assert.Empty(t, f.positions.recorded)
}

func TestSyncDirtyGitWorkspace(t *testing.T) {
	f := newSyncFixture()
	f.git.clean = false

	err := f.service.Sync(context.Background(), SyncParams{Target: "100"})
	assert.ErrorIs(t, err, domain.ErrDirtyWorkspace)
	assert.Empty(t, f.p4.pulls)
}

func TestSyncDirtyPerforceWorkspace(t *testing.T) {
	f := newSyncFixture()
	f.p4.openFiles = true

	err := f.service.Sync(context.Background(), SyncParams{Target: "100"})
	assert.ErrorIs(t, err, domain.ErrDirtyWorkspace)
	assert.Empty(t, f.p4.pulls)
}

func TestSyncLastSyncedRequiresMarker(t *testing.T) {
	f := newSyncFixture()

	err := f.service.Sync(context.Background(), SyncParams{Target: "last-synced"})
	assert.ErrorIs(t, err, domain.ErrNoPreviousSync)
	assert.Empty(t, f.p4.pulls)
}

func TestSyncLastSyncedReanchors(t *testing.T) {
	f := newSyncFixture()
	f.positions.pos, f.positions.has = 80, true
	f.p4.counts[80] = 1
	f.p4.pullLines[80] = []string{"//depot/a#2 - updating /ws/a"}

	err := f.service.Sync(context.Background(), SyncParams{Target: "last-synced"})
	require.NoError(t, err)

	assert.Equal(t, []domain.ChangelistPosition{80}, f.p4.pulls)
	assert.Equal(t, []domain.ChangelistPosition{80}, f.positions.recorded)
}

func TestSyncAliasTarget(t *testing.T) {
	f := newSyncFixture()
	f.aliases["release-2.4"] = 70
	f.p4.counts[70] = 1
	f.p4.pullLines[70] = []string{"//depot/a#1 - added as /ws/a"}

	err := f.service.Sync(context.Background(), SyncParams{Target: "release-2.4"})
	require.NoError(t, err)

	assert.Equal(t, []domain.ChangelistPosition{70}, f.p4.pulls)
	assert.Equal(t, []domain.ChangelistPosition{70}, f.positions.recorded)
}

func TestSyncUnknownAliasIsFatal(t *testing.T) {
	f := newSyncFixture()

	err := f.service.Sync(context.Background(), SyncParams{Target: "no-such-alias"})
	assert.ErrorIs(t, err, domain.ErrAliasNotFound)
	assert.Empty(t, f.p4.pulls)
	assert.Empty(t, f.positions.recorded)
}
