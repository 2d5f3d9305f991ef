package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/kirillkom/knowledge-hub/internal/core/domain"
)

// extractDOCX pulls paragraph text out of word/document.xml. A docx file
// is a zip container; <w:t> elements carry the text runs and </w:p>
// closes a paragraph.
func extractDOCX(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "open docx", err)
	}

	var document *zip.File
	for _, file := range archive.File {
		if file.Name == "word/document.xml" {
			document = file
			break
		}
	}
	if document == nil {
		return "", domain.WrapError(domain.ErrExtraction, "open docx", errors.New("word/document.xml missing"))
	}

	content, err := document.Open()
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "open docx document part", err)
	}
	defer content.Close()

	text, err := docxParagraphText(content)
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "parse docx xml", err)
	}
	return strings.TrimSpace(text), nil
}

func docxParagraphText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var out strings.Builder
	inText := false

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch el := token.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				out.Write(el)
			}
		}
	}
	return out.String(), nil
}
