package policy

import (
	"strings"

	"github.com/ridgeway/memkeep/internal/types"
)

// conflictOverlapThreshold is the hard-coded V1 lexical conflict ratio.
// It stays a tunable constant rather than a user setting, to preserve
// determinism across releases — so it lives here, not in the settings
// layer.
const conflictOverlapThreshold = 0.60

// wordSet lowercases and whitespace-splits content into a token set for
// lexical overlap comparison.
func wordSet(content string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(content))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// overlapRatio computes |A ∩ B| / min(|A|, |B|). Empty-word sets never
// collide.
func overlapRatio(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	smaller, larger := a, b
	if len(b) < len(a) {
		smaller, larger = b, a
	}
	var intersect int
	for w := range smaller {
		if _, ok := larger[w]; ok {
			intersect++
		}
	}
	return float64(intersect) / float64(len(smaller))
}

// findConflict returns the first active memory (in scan order) whose
// content collides with the proposed content at or above the overlap
// threshold. Scan order is ascending memory id — callers must
// pass active in that order, which storage.GetActiveMemoriesBySubject
// guarantees.
func findConflict(content string, active []types.ActiveMemory) (types.ActiveMemory, bool) {
	incoming := wordSet(content)
	if len(incoming) == 0 {
		return types.ActiveMemory{}, false
	}
	for _, mem := range active {
		existing := wordSet(mem.Content)
		if overlapRatio(incoming, existing) >= conflictOverlapThreshold {
			return mem, true
		}
	}
	return types.ActiveMemory{}, false
}
