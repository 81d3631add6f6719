package domain

import (
	"fmt"
	"regexp"
	"strconv"
)

// CurrentMarkerTag is the identifier written in new marker commits.
const CurrentMarkerTag = "git-p4son"

// MarkerGrepPattern is the --grep expression used to find marker commits
// in git history. It matches the shared tail of every marker subject so
// legacy markers are found too.
const MarkerGrepPattern = `: p4 sync //\.\.\.@`

// markerSubject matches a sync marker commit subject. Older versions of the
// tool wrote "pergit" or a bare changelist number as the identifier; all of
// them must still be recognized, but writing always uses CurrentMarkerTag.
var markerSubject = regexp.MustCompile(`^(\d+|pergit|git-p4son): p4 sync //\.\.\.@(\d+)$`)

// FormatMarker renders the commit subject that records a successful sync
// at the given position.
func FormatMarker(pos ChangelistPosition) string {
	return fmt.Sprintf("%s: p4 sync //...@%d", CurrentMarkerTag, int64(pos))
}

// ParseMarker extracts the changelist position from a marker commit
// subject. Returns false if the subject is not a marker.
func ParseMarker(subject string) (ChangelistPosition, bool) {
	m := markerSubject.FindStringSubmatch(subject)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return 0, false
	}
	return ChangelistPosition(n), true
}
