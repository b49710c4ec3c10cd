package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel renders each non-empty row as cells joined by " | ". Workbooks with more
// than one sheet get a "## <sheet>" heading per sheet so chunks keep their provenance.
func extractExcel(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	var buf strings.Builder
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		if len(sheets) > 1 {
			fmt.Fprintf(&buf, "## %s\n", sheet)
		}
		for _, row := range rows {
			line := joinCells(row)
			if line == "" {
				continue
			}
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
		if len(sheets) > 1 {
			buf.WriteByte('\n')
		}
	}
	return strings.TrimSpace(buf.String()), nil
}

// joinCells drops trailing blank cells and returns "" for a row with no content.
func joinCells(row []string) string {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}
	if end == 0 {
		return ""
	}
	cells := make([]string, end)
	for i := 0; i < end; i++ {
		cells[i] = strings.TrimSpace(row[i])
	}
	return strings.Join(cells, " | ")
}
