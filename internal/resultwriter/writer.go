// =============================================================================
// Ward Census Aggregator - Result Writer Module
// =============================================================================
//
// This module renders an aggregation result for files written by the
// aggregate command. Three formats are supported:
//
//   json  The same document the HTTP API returns:
//         {"report_type": "Inpatients", "data": [{"Ward": "A", ...}]}
//
//   csv   One header row (Ward, Unit, extra group columns, Count) followed by
//         one row per group. Null group values are empty cells.
//
//   xml   One element per group, numbered from 1:
//
//         <aggregate report_type="Inpatients">
//           <group n="1">
//             <Ward>A</Ward>
//             <Unit>1</Unit>
//             <Count>2</Count>
//           </group>
//         </aggregate>
//
//         Null group values are written as <Ward nil="true"/>.
//
// =============================================================================

package resultwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ginjaninja78/ward-census-aggregator/internal/types"
)

// =============================================================================
// FORMATS
// =============================================================================

// Format is an output rendition of a Result.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXML  Format = "xml"
)

// ParseFormat validates a format name. Matching is case-insensitive.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatJSON, FormatCSV, FormatXML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (expected json, csv or xml)", name)
	}
}

// Extension returns the file extension for the format, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options controls rendering.
type Options struct {
	// Indent is the indentation used by the json and xml formats.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration writes <?xml ...?> before the xml document.
	// Default: true
	IncludeXMLDeclaration bool

	// IndexAttribute is the xml attribute holding the group number.
	// Default: "n"
	IndexAttribute string
}

// DefaultOptions returns the default rendering options.
func DefaultOptions() Options {
	return Options{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		IndexAttribute:        "n",
	}
}

// =============================================================================
// WRITING
// =============================================================================

// Write renders result to w in the given format with default options.
func Write(w io.Writer, result *types.Result, format Format) error {
	return WriteWithOptions(w, result, format, DefaultOptions())
}

// WriteWithOptions renders result to w in the given format.
func WriteWithOptions(w io.Writer, result *types.Result, format Format, options Options) error {
	if result == nil {
		return fmt.Errorf("nothing to write: result is nil")
	}

	switch format {
	case FormatJSON:
		return writeJSON(w, result, options)
	case FormatCSV:
		return writeCSV(w, result)
	case FormatXML:
		return writeXML(w, result, options)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func writeJSON(w io.Writer, result *types.Result, options Options) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", options.Indent)
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, result *types.Result) error {
	columns := columnsOf(result.Data)

	cw := csv.NewWriter(w)
	if err := cw.Write(append(append([]string(nil), columns...), "Count")); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range result.Data {
		record := make([]string, 0, len(columns)+1)
		for _, col := range columns {
			record = append(record, deref(valueOf(row, col)))
		}
		record = append(record, strconv.Itoa(row.Count))

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// =============================================================================
// XML
// =============================================================================

func writeXML(w io.Writer, result *types.Result, options Options) error {
	var buffer bytes.Buffer

	if options.IncludeXMLDeclaration {
		buffer.WriteString(xml.Header)
	}

	buffer.WriteString(`<aggregate report_type="`)
	escapeInto(&buffer, string(result.ReportType))
	buffer.WriteString("\">\n")

	columns := columnsOf(result.Data)
	for i, row := range result.Data {
		writeIndent(&buffer, options.Indent, 1)
		fmt.Fprintf(&buffer, "<group %s=\"%d\">\n", options.IndexAttribute, i+1)

		for _, col := range columns {
			writeField(&buffer, options.Indent, elementName(col), valueOf(row, col))
		}
		count := strconv.Itoa(row.Count)
		writeField(&buffer, options.Indent, "Count", &count)

		writeIndent(&buffer, options.Indent, 1)
		buffer.WriteString("</group>\n")
	}

	buffer.WriteString("</aggregate>\n")

	if _, err := w.Write(buffer.Bytes()); err != nil {
		return fmt.Errorf("failed to write XML: %w", err)
	}
	return nil
}

func writeField(buffer *bytes.Buffer, indent, name string, value *string) {
	writeIndent(buffer, indent, 2)
	buffer.WriteString("<")
	buffer.WriteString(name)

	if value == nil {
		buffer.WriteString(` nil="true"/>` + "\n")
		return
	}

	buffer.WriteString(">")
	escapeInto(buffer, *value)
	buffer.WriteString("</")
	buffer.WriteString(name)
	buffer.WriteString(">\n")
}

func writeIndent(buffer *bytes.Buffer, indent string, level int) {
	for i := 0; i < level; i++ {
		buffer.WriteString(indent)
	}
}

func escapeInto(buffer *bytes.Buffer, s string) {
	// EscapeText only fails when the writer does; bytes.Buffer never does.
	_ = xml.EscapeText(buffer, []byte(s))
}

// elementName turns a column name into a usable XML element name. Characters
// outside [A-Za-z0-9_.-] become underscores, and names that cannot start an
// element get a leading underscore.
func elementName(column string) string {
	var b strings.Builder
	for _, r := range column {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	name := b.String()
	if name == "" {
		return "_"
	}
	if c := name[0]; (c >= '0' && c <= '9') || c == '-' || c == '.' || strings.HasPrefix(strings.ToLower(name), "xml") {
		name = "_" + name
	}
	return name
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// columnsOf lists Ward, Unit and then the extra group columns in the order
// the first row carries them. Every row of one result has the same extras.
func columnsOf(rows []types.AggregateRow) []string {
	columns := []string{types.ColumnWard, types.ColumnUnit}
	if len(rows) > 0 {
		for _, extra := range rows[0].Extra {
			columns = append(columns, extra.Column)
		}
	}
	return columns
}

func valueOf(row types.AggregateRow, column string) *string {
	switch column {
	case types.ColumnWard:
		return row.Ward
	case types.ColumnUnit:
		return row.Unit
	}
	for _, extra := range row.Extra {
		if extra.Column == column {
			return extra.Value
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
