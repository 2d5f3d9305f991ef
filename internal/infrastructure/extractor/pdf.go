package extractor

import (
	"bytes"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/knowledge-hub/internal/core/domain"
)

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "open pdf", err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "extract pdf text", err)
	}

	var out strings.Builder
	if _, err := io.Copy(&out, textReader); err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "read pdf text", err)
	}
	return strings.TrimSpace(out.String()), nil
}
