package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// EventKind classifies one line of p4 sync output.
type EventKind string

const (
	EventAdded   EventKind = "add"
	EventDeleted EventKind = "del"
	EventUpdated EventKind = "upd"
	EventClobber EventKind = "clb"
)

// FileSyncEvent is a single classified line of p4 sync output. Events are
// ephemeral: produced by Classify, consumed immediately by the aggregator.
type FileSyncEvent struct {
	Kind EventKind
	Path string
}

// clobberPrefix is the stderr/stdout prefix p4 emits when it refuses to
// overwrite a writable file.
const clobberPrefix = "Can't clobber writable file "

// syncPatterns in precedence order; first match wins. The order is taken
// from observed p4 behavior and must not be rearranged.
var syncPatterns = []struct {
	kind    EventKind
	pattern string
}{
	{EventAdded, " - added as "},
	{EventDeleted, " - deleted as "},
	{EventUpdated, " - updating "},
	{EventClobber, clobberPrefix},
}

// upToDateNotice matches p4's "nothing to do" line, e.g.
// "//...@54321 - file(s) up-to-date.".
var upToDateNotice = regexp.MustCompile(`//\.\.\.@\d+ - file\(s\) up-to-date\.`)

// Classify parses one line of p4 sync output into a typed event. Returns
// false for lines that match none of the known shapes; unknown lines are
// never an error, so unanticipated p4 phrasing degrades to noise instead
// of breaking the pull.
func Classify(line string) (FileSyncEvent, bool) {
	for _, p := range syncPatterns {
		idx := strings.Index(line, p.pattern)
		if idx < 0 {
			continue
		}
		path := line[idx+len(p.pattern):]
		if p.kind == EventClobber {
			path = strings.TrimRight(path, " \t\r\n")
		}
		if path == "" {
			continue
		}
		return FileSyncEvent{Kind: p.kind, Path: path}, true
	}
	return FileSyncEvent{}, false
}

// IsUpToDateNotice reports whether the line is p4's up-to-date sentinel,
// which must not be counted as unparsable noise.
func IsUpToDateNotice(line string) bool {
	return upToDateNotice.MatchString(line)
}

// ExtractConflicts scans captured stderr for clobber lines and returns the
// refused paths in the order encountered. Duplicates are preserved; callers
// dedupe if they need to. An empty result means the failure had some other
// cause and must be treated as fatal.
func ExtractConflicts(stderrLines []string) []string {
	var paths []string
	for _, line := range stderrLines {
		if !strings.HasPrefix(line, clobberPrefix) {
			continue
		}
		paths = append(paths, strings.TrimRight(line[len(clobberPrefix):], " \t\r\n"))
	}
	return paths
}

// ProgressReporter receives per-line progress during a pull. Implemented by
// the console; tests use a recording stub.
type ProgressReporter interface {
	Info(text string)
	Verbose(text string)
}

// SyncAggregator consumes the live output of one pull attempt line by line,
// classifying each and keeping per-kind counts. One aggregator per attempt;
// never reused.
type SyncAggregator struct {
	counts    map[EventKind]int
	processed int
	expected  int // <0 when unknown (forced single-file resync)
	out       ProgressReporter
}

// NewSyncAggregator creates an aggregator for one pull attempt. Pass a
// negative expected count when no dry-run total is available; progress
// lines then omit the processed/expected fraction.
func NewSyncAggregator(expected int, out ProgressReporter) *SyncAggregator {
	return &SyncAggregator{
		counts:   make(map[EventKind]int),
		expected: expected,
		out:      out,
	}
}

// OnLine is invoked once per output line while the p4 subprocess is still
// running, so progress is visible during long pulls.
func (a *SyncAggregator) OnLine(line string) {
	if IsUpToDateNotice(line) {
		a.out.Info("all files up to date")
		return
	}

	event, ok := Classify(line)
	if !ok {
		a.out.Verbose(fmt.Sprintf("Unparsable line: %s", line))
		return
	}

	a.counts[event.Kind]++
	a.processed++

	if a.expected >= 0 {
		a.out.Verbose(fmt.Sprintf("%s: %s  (%d/%d)", event.Kind, event.Path, a.processed, a.expected))
	} else {
		a.out.Verbose(fmt.Sprintf("%s: %s", event.Kind, event.Path))
	}
}

// Count returns the number of events of the given kind seen so far.
func (a *SyncAggregator) Count(kind EventKind) int {
	return a.counts[kind]
}

// Processed returns the number of classified lines seen so far.
func (a *SyncAggregator) Processed() int {
	return a.processed
}

// Summary renders the one-line result of the attempt, e.g.
// "synced 3 files (add: 1, upd: 2)". Zero-valued categories are omitted;
// with no categories at all the parenthetical disappears entirely. The
// synced total is added + updated minus clobbered.
func (a *SyncAggregator) Summary() string {
	synced := a.counts[EventAdded] + a.counts[EventUpdated] - a.counts[EventClobber]

	var parts []string
	for _, kind := range []EventKind{EventAdded, EventUpdated, EventDeleted, EventClobber} {
		if n := a.counts[kind]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", kind, n))
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("synced %d files", synced)
	}
	return fmt.Sprintf("synced %d files (%s)", synced, strings.Join(parts, ", "))
}
