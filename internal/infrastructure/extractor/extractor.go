// Package extractor turns uploaded documents into plain text. Dispatch
// is by file extension: pdf, docx and xlsx get format-aware extraction,
// everything else is treated as UTF-8 text.
package extractor

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/kirillkom/knowledge-hub/internal/core/domain"
)

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, source io.Reader, docName string) (string, error) {
	data, err := io.ReadAll(source)
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "read source", err)
	}

	switch strings.ToLower(filepath.Ext(docName)) {
	case ".pdf":
		return extractPDF(data)
	case ".docx":
		return extractDOCX(data)
	case ".xlsx":
		return extractXLSX(data)
	default:
		return extractPlainText(data), nil
	}
}

// extractPlainText decodes bytes as UTF-8, dropping invalid sequences
// rather than failing on them.
func extractPlainText(data []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(data), ""))
}
