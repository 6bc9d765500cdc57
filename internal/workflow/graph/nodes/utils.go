package nodes

import (
	"github.com/contentstudio/server/internal/workflow/model"
	logx "github.com/contentstudio/server/pkg/logger"
)

const DefaultMaxRevisions = 2

// normalizeMaxRevisions returns a sane default when the provided value is invalid.
func normalizeMaxRevisions(n int) int {
	if n <= 0 {
		return DefaultMaxRevisions
	}
	return n
}

// RevisionLimitReached reports whether no further revision pass is allowed.
func RevisionLimitReached(count, max int) bool {
	return count >= normalizeMaxRevisions(max)
}

// ShouldRevise is the approve/revise route shared by the looping workflows:
// a revise verdict loops back while the limit allows it, anything else
// (including an unreadable report) proceeds.
func ShouldRevise(threadID string, verdict model.Verdict, count, max int) bool {
	if RevisionLimitReached(count, max) {
		if verdict.NeedsRevision() {
			logx.Warn().
				Str("thread_id", threadID).
				Int("revision_count", count).
				Msg("Revision limit reached - proceeding with current draft")
		}
		return false
	}
	return verdict.NeedsRevision()
}
