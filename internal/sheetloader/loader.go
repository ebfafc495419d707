// =============================================================================
// Ward Census Aggregator - Spreadsheet Loader
// =============================================================================
//
// This module turns uploaded spreadsheet bytes into a Sheet. Hospital exports
// arrive with a variable number of title/banner rows above the real header,
// so the loader reads the first worksheet into a raw cell grid, searches the
// first rows for the header, and builds the table from the rows below it.
//
// CONTAINER FORMATS:
//   - XLSX (zip container, bytes start with "PK")  -> excelize
//   - XLS  (legacy BIFF inside an OLE2 container)  -> extrame/xls
//
// LOADING STEPS:
//   1. Detect the container format from the first two bytes
//   2. Read the first worksheet into a [][]string grid
//   3. Find the header row (see DetectHeader in header.go)
//   4. Clean header names, trim cells, drop fully empty rows
//
// =============================================================================

package sheetloader

import (
	"bytes"
	"fmt"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	apperrors "github.com/ginjaninja78/ward-census-aggregator/internal/errors"
	"github.com/ginjaninja78/ward-census-aggregator/internal/types"
)

// =============================================================================
// FORMAT DETECTION
// =============================================================================

// Format identifies the spreadsheet container.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

// zipMagic is the local file header prefix of every zip archive, and so of
// every XLSX workbook.
var zipMagic = []byte{0x50, 0x4B}

// DetectFormat inspects the byte prefix. Anything that is not a zip archive
// is handed to the legacy XLS reader.
func DetectFormat(data []byte) Format {
	if bytes.HasPrefix(data, zipMagic) {
		return FormatXLSX
	}
	return FormatXLS
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options controls the header search.
type Options struct {
	// MaxHeaderOffset is the last zero-based row tried as the header.
	// Default: 9 (rows 0 through 9 are tried)
	MaxHeaderOffset int

	// MarkerKeywords are matched as substrings of the concatenated header.
	MarkerKeywords []string
}

// DefaultOptions returns the standard header search settings.
func DefaultOptions() Options {
	return Options{
		MaxHeaderOffset: DefaultMaxHeaderOffset,
		MarkerKeywords:  DefaultMarkerKeywords(),
	}
}

// =============================================================================
// LOADER
// =============================================================================

// Load parses spreadsheet bytes into a Sheet.
//
// RETURNS:
//   - The Sheet, with HeaderOffset set to the row the header was found on.
//   - A PARSE_ERROR AppError if the container cannot be read, no header is
//     found within the search bound, or no data rows remain after cleanup.
func Load(data []byte, opts Options) (*types.Sheet, error) {
	if opts.MaxHeaderOffset < 0 {
		opts.MaxHeaderOffset = DefaultMaxHeaderOffset
	}
	if len(opts.MarkerKeywords) == 0 {
		opts.MarkerKeywords = DefaultMarkerKeywords()
	}

	grid, format, err := ReadGrid(data)
	if err != nil {
		return nil, err
	}

	offset, _, err := DetectHeader(grid, opts.MaxHeaderOffset, opts.MarkerKeywords)
	if err != nil {
		return nil, err
	}

	sheet := BuildSheet(grid, offset)
	sheet.Format = string(format)

	if len(sheet.Rows) == 0 {
		return nil, apperrors.ParseError("uploaded spreadsheet is empty", nil)
	}

	return sheet, nil
}

// ReadGrid reads the first worksheet of the workbook into a raw cell grid.
func ReadGrid(data []byte) ([][]string, Format, error) {
	if len(data) == 0 {
		return nil, "", apperrors.ParseError("uploaded spreadsheet is empty", nil)
	}

	format := DetectFormat(data)

	var (
		grid [][]string
		err  error
	)
	switch format {
	case FormatXLSX:
		grid, err = readXLSX(data)
	default:
		grid, err = readXLS(data)
	}
	if err != nil {
		return nil, format, apperrors.ParseError(fmt.Sprintf("error reading %s", format), err)
	}

	return grid, format, nil
}

// readXLSX reads the first sheet of an XLSX workbook.
func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return rows, nil
}

// readXLS reads the first sheet of a legacy BIFF workbook.
func readXLS(data []byte) (grid [][]string, err error) {
	// The xls reader panics on some malformed BIFF records.
	defer func() {
		if r := recover(); r != nil {
			grid = nil
			err = fmt.Errorf("malformed workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		grid = append(grid, xlsCells(row))
	}

	return grid, nil
}

// xlsMaxColumns is the BIFF8 column limit.
const xlsMaxColumns = 256

// xlsRow returns row i of the sheet, or nil when the sheet has no such row.
// WorkSheet.Row dereferences the missing row instead of returning nil.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

// xlsCells reads the cells of one row. The ROW record's last column is one
// past the last used cell. Rows written without a ROW record report zero, so
// those are scanned up to the column limit and trailing blanks are dropped.
func xlsCells(row *xls.Row) []string {
	width := row.LastCol()
	scanned := width == 0
	if scanned {
		width = xlsMaxColumns
	}

	cells := make([]string, 0, width)
	for j := 0; j < width; j++ {
		cells = append(cells, row.Col(j))
	}

	if scanned {
		for len(cells) > 0 && cells[len(cells)-1] == "" {
			cells = cells[:len(cells)-1]
		}
	}
	return cells
}
