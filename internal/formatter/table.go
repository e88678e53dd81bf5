// Package formatter renders records as aligned terminal tables.
package formatter

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"outlookflat/internal/models"
	"outlookflat/pkg/utils"
)

// DefaultCellWidth caps the display width of one preview cell.
const DefaultCellWidth = 40

const (
	minColumnWidth = 3
	ellipsis       = "…"
)

// previewColumns are the fields shown in a preview, in order.
var previewColumns = []string{
	models.FieldRecordType,
	models.FieldDate,
	models.FieldCommunicationFlow,
	models.FieldSubject,
	models.FieldHasAttachment,
	models.FieldIsFlagged,
}

// Preview renders the first n records as a pipe table. Cells wider than
// cellWidth display columns are truncated; cellWidth <= 0 means
// DefaultCellWidth.
func Preview(records []models.Record, n, cellWidth int) string {
	if cellWidth <= 0 {
		cellWidth = DefaultCellWidth
	}

	if n > len(records) || n < 0 {
		n = len(records)
	}

	table := make([][]string, 0, n+1)
	table = append(table, previewColumns)

	for i := range records[:n] {
		values := previewValues(&records[i])

		cells := make([]string, len(values))
		for j, v := range values {
			cells[j] = fitCell(v, cellWidth)
		}

		table = append(table, cells)
	}

	return strings.Join(FormatTable(table), "\n") + "\n"
}

func previewValues(r *models.Record) []string {
	return []string{
		string(r.RecordType),
		r.Date,
		r.CommunicationFlow,
		r.Subject,
		yesNo(r.HasAttachment),
		yesNo(r.IsFlagged),
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}

	return "no"
}

// fitCell flattens whitespace and truncates by display width, so wide
// (East Asian) runes count double.
func fitCell(s string, width int) string {
	s = utils.NewStringHelper().NormalizeWhitespace(s)
	s = strings.ReplaceAll(s, "|", "/")

	return runewidth.Truncate(s, width, ellipsis)
}

// FormatTable aligns rows into pipe-delimited lines. The first row is the
// header and is followed by a dash separator sized to each column.
func FormatTable(table [][]string) []string {
	if len(table) == 0 {
		return nil
	}

	colCount := 0
	for _, row := range table {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	// Calculate max widths (using display width)
	colWidths := make([]int, colCount)

	for _, row := range table {
		for i, cell := range row {
			if width := runewidth.StringWidth(cell); width > colWidths[i] {
				colWidths[i] = width
			}
		}
	}

	for i := range colWidths {
		if colWidths[i] < minColumnWidth {
			colWidths[i] = minColumnWidth
		}
	}

	separator := make([]string, colCount)
	for i, w := range colWidths {
		separator[i] = strings.Repeat("-", w)
	}

	result := make([]string, 0, len(table)+1)
	result = append(result, formatRow(table[0], colWidths))
	result = append(result, formatRow(separator, colWidths))

	for _, row := range table[1:] {
		result = append(result, formatRow(row, colWidths))
	}

	return result
}

func formatRow(row []string, colWidths []int) string {
	var sb strings.Builder

	sb.WriteString("|")

	for j, width := range colWidths {
		content := ""
		if j < len(row) {
			content = row[j]
		}

		sb.WriteString(" ")
		// Pad with spaces based on display width
		sb.WriteString(runewidth.FillRight(content, width))
		sb.WriteString(" |")
	}

	return sb.String()
}
