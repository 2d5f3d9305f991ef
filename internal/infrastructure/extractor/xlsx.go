package extractor

import (
	"bytes"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/knowledge-hub/internal/core/domain"
)

// extractXLSX flattens every sheet row-by-row, cells joined by tabs.
func extractXLSX(data []byte) (string, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "open xlsx", err)
	}
	defer workbook.Close()

	var out strings.Builder
	for _, sheet := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(sheet)
		if err != nil {
			return "", domain.WrapError(domain.ErrExtraction, "read xlsx sheet", err)
		}
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			out.WriteString(line)
			out.WriteString("\n")
		}
	}
	return strings.TrimSpace(out.String()), nil
}
