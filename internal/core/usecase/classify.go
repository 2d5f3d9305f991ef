package usecase

import (
	"regexp"
	"strings"
)

type QueryType string

const (
	QueryGeneric  QueryType = "generic"
	QuerySpecific QueryType = "specific"
)

// Thresholds for the short-and-vague heuristic: queries of at most
// shortQueryTokens tokens whose stopword share reaches genericStopRatio
// are treated as whole-document questions.
const (
	shortQueryTokens = 5
	genericStopRatio = 0.6
)

var defaultGenericPatterns = []string{
	`\bwhat is this (doc|document|file) about\b`,
	`\bsummar(y|ise|ize) (this|the) (doc|document|file)?\b`,
	`\bsummar(y|ise|ize)\b`,
	`\bgive me (an )?overview\b`,
	`\bhigh[- ]level (view|summary)\b`,
	`\bkey points\b`,
	`\bmain (idea|points)\b`,
	`\btl;dr\b`,
	`\bexplain (this|the) (doc|document|file)?\b`,
}

var defaultStopwords = []string{
	"what", "is", "this", "the", "a", "an", "of", "about", "for", "in",
	"on", "to", "me", "give", "you", "please", "can", "could", "would",
	"explain", "tell", "show", "summarize", "summarise", "summary",
	"overview", "document", "doc", "file",
}

var wordPattern = regexp.MustCompile(`\w+`)

// QueryClassifier decides whether a question asks about a document as a
// whole (generic) or about a specific fact (specific). Pattern and
// stopword tables are fixed at construction; Classify is pure.
type QueryClassifier struct {
	patterns  []*regexp.Regexp
	stopwords map[string]struct{}
}

func NewQueryClassifier() *QueryClassifier {
	return NewQueryClassifierWithTables(defaultGenericPatterns, defaultStopwords)
}

func NewQueryClassifierWithTables(patterns, stopwords []string) *QueryClassifier {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	stops := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		stops[w] = struct{}{}
	}
	return &QueryClassifier{patterns: compiled, stopwords: stops}
}

func (c *QueryClassifier) Classify(query string) QueryType {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return QueryGeneric
	}

	for _, pattern := range c.patterns {
		if pattern.MatchString(q) {
			return QueryGeneric
		}
	}

	tokens := wordPattern.FindAllString(q, -1)
	if len(tokens) == 0 {
		return QueryGeneric
	}

	stopCount := 0
	for _, token := range tokens {
		if _, ok := c.stopwords[token]; ok {
			stopCount++
		}
	}
	if len(tokens) <= shortQueryTokens &&
		float64(stopCount)/float64(len(tokens)) >= genericStopRatio {
		return QueryGeneric
	}

	return QuerySpecific
}
