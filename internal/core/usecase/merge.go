package usecase

import (
	"fmt"

	"github.com/kirillkom/knowledge-hub/internal/core/domain"
)

// mergeCandidates combines keyword and vector results into one ranked
// set of at most k candidates. Keyword hits come first and win ties: the
// first occurrence of each (doc, chunk) key is kept, later duplicates are
// dropped. Scores are never fused across methods; provenance order alone
// resolves conflicts.
func mergeCandidates(keyword, vector []domain.RetrievalCandidate, k int) []domain.RetrievalCandidate {
	if k <= 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(keyword)+len(vector))
	merged := make([]domain.RetrievalCandidate, 0, k)

	for _, list := range [2][]domain.RetrievalCandidate{keyword, vector} {
		for _, candidate := range list {
			key := fmt.Sprintf("%s:%d", candidate.DocName, candidate.ChunkIndex)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, candidate)
			if len(merged) >= k {
				return merged
			}
		}
	}
	return merged
}
