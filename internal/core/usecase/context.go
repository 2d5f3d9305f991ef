package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/knowledge-hub/internal/core/domain"
)

// buildContext assembles the prompt context from candidates in input
// order, under a character budget. The budget counts runes, matching
// how the chunker measures content. Empty candidates are skipped. The
// first accepted chunk is always included even if it alone exceeds the
// budget, so a viable candidate set never yields an empty context.
func buildContext(candidates []domain.RetrievalCandidate, maxChars int) (string, []string) {
	parts := make([]string, 0, len(candidates))
	sources := make([]string, 0, len(candidates))
	total := 0

	for _, candidate := range candidates {
		if candidate.Content == "" {
			continue
		}
		size := utf8.RuneCountInString(candidate.Content)
		if total+size > maxChars && len(parts) > 0 {
			break
		}
		parts = append(parts, fmt.Sprintf(
			"[doc=%s, chunk=%d] %s",
			candidate.DocName, candidate.ChunkIndex, candidate.Content,
		))
		sources = append(sources, chunkSourceLabel(candidate.DocName, candidate.ChunkIndex))
		total += size
	}

	return strings.Join(parts, "\n\n"), sources
}

func chunkSourceLabel(docName string, chunkIndex int) string {
	return fmt.Sprintf("%s#chunk-%d", docName, chunkIndex)
}
