package sheetloader

import (
	"fmt"
	"strings"

	apperrors "github.com/ginjaninja78/ward-census-aggregator/internal/errors"
	"github.com/ginjaninja78/ward-census-aggregator/internal/types"
)

// DefaultMaxHeaderOffset is the last row index tried as the header row.
const DefaultMaxHeaderOffset = 9

// defaultMarkerKeywords are the column names that identify a header row.
var defaultMarkerKeywords = []string{
	types.ColumnWard,
	types.ColumnUnit,
	types.ColumnCurrWardUnit,
	types.ColumnDischUnit,
	types.ColumnAdmNo,
	types.ColumnURN,
}

// DefaultMarkerKeywords returns a copy of the built-in header keywords.
func DefaultMarkerKeywords() []string {
	return append([]string(nil), defaultMarkerKeywords...)
}

// DetectHeader finds the header row in a raw cell grid.
//
// Offsets 0 through maxOffset are tried in order. For each offset the row's
// cells are trimmed and joined, and the first offset whose joined names
// contain any keyword as a substring is accepted.
//
// RETURNS:
//   - The accepted offset and the trimmed header names found there.
//   - A PARSE_ERROR AppError if no offset matches.
func DetectHeader(grid [][]string, maxOffset int, keywords []string) (int, []string, error) {
	for offset := 0; offset <= maxOffset && offset < len(grid); offset++ {
		names := trimAll(grid[offset])
		if matchesKeyword(strings.Join(names, " "), keywords) {
			return offset, names, nil
		}
	}

	return -1, nil, apperrors.ParseError(
		fmt.Sprintf("no header row found in rows 0-%d (expected one of: %s)",
			maxOffset, strings.Join(keywords, ", ")),
		nil,
	)
}

func matchesKeyword(joined string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(joined, kw) {
			return true
		}
	}
	return false
}

// BuildSheet builds a Sheet from the grid, using the row at offset as the
// header and every later row as data.
func BuildSheet(grid [][]string, offset int) *types.Sheet {
	header := grid[offset]
	body := grid[offset+1:]

	width := len(header)
	for _, row := range body {
		if len(row) > width {
			width = len(row)
		}
	}

	padded := make([]string, width)
	copy(padded, header)

	sheet := &types.Sheet{
		Columns:      cleanHeaders(padded),
		Rows:         make([][]string, 0, len(body)),
		HeaderOffset: offset,
	}

	for _, row := range body {
		if isRowEmpty(row) {
			continue
		}
		cells := make([]string, width)
		for i := 0; i < width && i < len(row); i++ {
			cells[i] = strings.TrimSpace(row[i])
		}
		sheet.Rows = append(sheet.Rows, cells)
	}

	return sheet
}

// cleanHeaders trims header names, names blank cells after their position
// and suffixes repeated names with ".1", ".2", ... A generated name that is
// itself taken gets suffixed again, so "A, A, A.1" becomes "A, A.1, A.1.1".
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	seen := make(map[string]int, len(headers))

	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}

		for n := seen[header]; n > 0; n = seen[header] {
			seen[header] = n + 1
			header = fmt.Sprintf("%s.%d", header, n)
		}
		seen[header]++

		cleaned[i] = header
	}

	return cleaned
}

func trimAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
