package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/knowledge-hub/internal/core/domain"
	"github.com/kirillkom/knowledge-hub/internal/core/ports"
)

const (
	defaultTopK            = 5
	defaultMaxContextChars = 12000

	noContentAnswer = "I could not find any content for this document."
	noResultsAnswer = "I could not find any relevant content for your question in your documents."

	answerSystemPrompt = "You are an assistant that answers using only the given context. " +
		"If the answer is not in the context, say you don't know."
	summarySystemPrompt = "You are an AI assistant that summarizes documents for the user. " +
		"You are given text that all comes from a single document."
)

// AnswerQueryUseCase orchestrates one query: classification, hybrid
// keyword+vector retrieval or the whole-document summarization path, and
// a single LLM call. It holds no per-request state.
type AnswerQueryUseCase struct {
	classifier *QueryClassifier
	embedder   ports.Embedder
	store      ports.ChunkStore
	llm        ports.CompletionModel
	topK       int
	maxChars   int
	log        *slog.Logger
}

func NewAnswerQueryUseCase(
	classifier *QueryClassifier,
	embedder ports.Embedder,
	store ports.ChunkStore,
	llm ports.CompletionModel,
	topK int,
	maxContextChars int,
	log *slog.Logger,
) *AnswerQueryUseCase {
	if topK <= 0 {
		topK = defaultTopK
	}
	if maxContextChars <= 0 {
		maxContextChars = defaultMaxContextChars
	}
	if log == nil {
		log = slog.Default()
	}
	return &AnswerQueryUseCase{
		classifier: classifier,
		embedder:   embedder,
		store:      store,
		llm:        llm,
		topK:       topK,
		maxChars:   maxContextChars,
		log:        log,
	}
}

// Answer resolves one question. docName scopes retrieval to a single
// document when non-empty; a generic question about a selected document
// switches to the summarization path. LLM failures propagate unretried.
func (uc *AnswerQueryUseCase) Answer(ctx context.Context, userID int64, docName, query string) (*domain.Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrEmptyQuery, "answer query", fmt.Errorf("blank question"))
	}

	if docName != "" && uc.classifier.Classify(query) == QueryGeneric {
		return uc.summarizeDocument(ctx, userID, docName, query)
	}

	// Query embedding failure is not fatal: vector search is skipped
	// and retrieval degrades to keyword-only.
	queryVec, err := uc.embedder.Embed(ctx, query)
	if err != nil {
		uc.log.Warn("query embedding failed, vector search skipped", "error", err)
		queryVec = nil
	}

	keywordRows, err := uc.store.KeywordSearch(ctx, userID, query, uc.topK, docName)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	var vectorRows []domain.RetrievalCandidate
	if len(queryVec) > 0 {
		vectorRows, err = uc.store.VectorSearch(ctx, userID, queryVec, uc.topK, docName)
		if err != nil {
			return nil, fmt.Errorf("vector search: %w", err)
		}
	}

	uc.log.Info("hybrid retrieval",
		"user_id", userID,
		"keyword_rows", len(keywordRows),
		"vector_rows", len(vectorRows),
	)

	if len(keywordRows) == 0 && len(vectorRows) == 0 {
		return &domain.Answer{Text: noResultsAnswer, Sources: []string{}}, nil
	}

	merged := mergeCandidates(keywordRows, vectorRows, uc.topK)
	contextText, sources := buildContext(merged, uc.maxChars)

	userPrompt := fmt.Sprintf(
		"Context:\n%s\n\nQuestion: %s\nAnswer using only the context above.",
		contextText, query,
	)
	answer, err := uc.llm.Complete(ctx, answerSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &domain.Answer{Text: answer, Sources: sources}, nil
}

func (uc *AnswerQueryUseCase) summarizeDocument(ctx context.Context, userID int64, docName, query string) (*domain.Answer, error) {
	chunks, err := uc.store.ChunksForDocument(ctx, userID, docName)
	if err != nil {
		return nil, fmt.Errorf("fetch document chunks: %w", err)
	}

	parts := make([]string, 0, len(chunks))
	total := 0
	for _, chunk := range chunks {
		if chunk.Content == "" {
			continue
		}
		size := utf8.RuneCountInString(chunk.Content)
		if total+size > uc.maxChars && len(parts) > 0 {
			break
		}
		parts = append(parts, chunk.Content)
		total += size
	}

	if len(parts) == 0 {
		uc.log.Warn("no chunks for summarization", "user_id", userID, "doc_name", docName)
		return &domain.Answer{Text: noContentAnswer, Sources: []string{}}, nil
	}

	userPrompt := fmt.Sprintf(
		"The user has selected a single document named '%s'. "+
			"Here is the content (possibly truncated):\n\n%s\n\n"+
			"The user asked: '%s'. If the question is generic, "+
			"give a clear, concise summary of what this document is about in 3-5 bullet points. "+
			"If the question is more specific, still answer it using only this document.",
		docName, strings.Join(parts, "\n\n"), query,
	)
	answer, err := uc.llm.Complete(ctx, summarySystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("generate summary: %w", err)
	}

	return &domain.Answer{
		Text:    answer,
		Sources: []string{docName + "#summary"},
	}, nil
}
