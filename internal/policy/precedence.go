package policy

import "github.com/ridgeway/memkeep/internal/types"

// incomingLosesPrecedence is the concrete rejection predicate:
//
//	incoming.source_weight < existing.source_weight
//	  OR (incoming.source_weight == existing.source_weight
//	      AND incoming.confidence < existing.confidence)
//
// Equal source weight with equal confidence does NOT lose — the incoming
// proposal wins the tie and supersedes.
func incomingLosesPrecedence(incomingSource types.Source, incomingConfidence float64, existing types.ActiveMemory) bool {
	incomingWeight := incomingSource.Weight()
	existingWeight := existing.Source.Weight()

	if incomingWeight < existingWeight {
		return true
	}
	if incomingWeight == existingWeight && incomingConfidence < existing.ConfidenceScore {
		return true
	}
	return false
}
