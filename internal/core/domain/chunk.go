package domain

// DocumentChunk is the unit of embedding and retrieval: one bounded slice
// of a document's text, identified by (user, document, index). Chunks are
// written once in index order and never mutated.
type DocumentChunk struct {
	UserID    int64     `json:"user_id"`
	DocName   string    `json:"doc_name"`
	Index     int       `json:"chunk_index"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"-"`
}

// RetrievalCandidate is a transient chunk reference scored by exactly one
// retrieval method: keyword rank or vector distance, never both.
type RetrievalCandidate struct {
	DocName    string  `json:"doc_name"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

// Answer is the result of one query: generated text plus citation labels
// of the form "<doc>#chunk-<index>" (or "<doc>#summary").
type Answer struct {
	Text    string   `json:"answer"`
	Sources []string `json:"sources"`
}
