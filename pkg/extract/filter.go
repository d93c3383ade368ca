// pkg/extract/filter.go

package extract

import (
	"strings"

	"github.com/CodeMonkeyCybersecurity/harvest/pkg/git"
)

// Filter decides which diffs of an eligible commit produce records.
// Commit eligibility itself (exactly one parent) is enforced by git.CommitCursor.
type Filter struct {
	// Extension is the tracked file suffix, matched case-sensitively.
	Extension string
	Mode      Mode
}

// Tracked reports whether path ends with the tracked extension.
func (f Filter) Tracked(path string) bool {
	return strings.HasSuffix(path, f.Extension)
}

func (f Filter) trackedModification(d git.FileDiff) bool {
	return d.Change == git.Modified && f.Tracked(d.APath) && f.Tracked(d.BPath)
}

// Qualify returns the diffs that may become records, in diff order.
//
// In single-place mode the full diff must be exactly one tracked
// modification. In multi-place mode every tracked modification qualifies.
// Added, deleted and renamed entries never qualify.
func (f Filter) Qualify(diffs []git.FileDiff) []git.FileDiff {
	if f.Mode == SinglePlace {
		if len(diffs) == 1 && f.trackedModification(diffs[0]) {
			return diffs
		}
		return nil
	}

	var qualified []git.FileDiff
	for _, d := range diffs {
		if f.trackedModification(d) {
			qualified = append(qualified, d)
		}
	}
	return qualified
}
