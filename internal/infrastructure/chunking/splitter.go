package chunking

import "strings"

const (
	defaultChunkSize = 3000

	// maxInputRunes bounds worst-case memory and embedding cost for
	// pathological inputs; anything beyond it is silently truncated.
	maxInputRunes = 5_000_000
)

// Splitter cuts text into contiguous non-overlapping rune windows.
// Windows are trimmed of surrounding whitespace and empty ones are
// dropped; indices are assigned sequentially over the survivors.
type Splitter struct {
	ChunkSize int
	MaxInput  int
}

func NewSplitter(chunkSize int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &Splitter{ChunkSize: chunkSize, MaxInput: maxInputRunes}
}

func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if s.MaxInput > 0 && len(runes) > s.MaxInput {
		runes = runes[:s.MaxInput]
	}
	if len(runes) == 0 {
		return nil
	}

	out := make([]string, 0, len(runes)/s.ChunkSize+1)
	for start := 0; start < len(runes); start += s.ChunkSize {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}
