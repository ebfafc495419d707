// =============================================================================
// Ward Census Aggregator - Shared Types
// =============================================================================
//
// This package contains the types shared by the loader, the report
// classifier/normalizer, the aggregator and the output layers.
//
// =============================================================================

package types

import (
	"bytes"
	"encoding/json"
)

// =============================================================================
// REPORT TYPES
// =============================================================================

// ReportType labels the layout a spreadsheet was recognised as.
type ReportType string

const (
	ReportInpatients ReportType = "Inpatients"
	ReportDeceased   ReportType = "Deceased"
	ReportTransfers  ReportType = "Transfers"
	ReportUnknown    ReportType = "Unknown"
)

// Well-known column names used by the built-in report layouts.
const (
	ColumnWard         = "Ward"
	ColumnUnit         = "Unit"
	ColumnURN          = "URN"
	ColumnAdmNo        = "AdmNo"
	ColumnDischUnit    = "Disch Unit"
	ColumnCurrWardUnit = "CurrWardUnit"
)

// ColumnCount is the output key holding a group's distinct identity count.
const ColumnCount = "Count"

// =============================================================================
// SHEET
// =============================================================================

// Sheet is an in-memory table read from an uploaded spreadsheet.
// Cells are trimmed strings; the empty string stands for an absent value.
type Sheet struct {
	// Columns holds the trimmed, de-duplicated header names in sheet order.
	Columns []string

	// Rows holds the data rows that follow the header row. Every row has
	// exactly len(Columns) cells.
	Rows [][]string

	// HeaderOffset is the zero-based grid row the header was found on.
	HeaderOffset int

	// Format is the container format the sheet was read from ("xlsx"/"xls").
	Format string
}

// ColumnIndex returns the position of the named column, or -1.
func (s *Sheet) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the sheet has a column with the exact name.
func (s *Sheet) HasColumn(name string) bool {
	return s.ColumnIndex(name) >= 0
}

// Clone returns a deep copy so callers can derive columns without touching
// the loaded sheet.
func (s *Sheet) Clone() *Sheet {
	out := &Sheet{
		Columns:      append([]string(nil), s.Columns...),
		Rows:         make([][]string, len(s.Rows)),
		HeaderOffset: s.HeaderOffset,
		Format:       s.Format,
	}
	for i, row := range s.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

// EnsureColumn returns the index of the named column, appending an empty
// column when it does not exist yet.
func (s *Sheet) EnsureColumn(name string) int {
	if idx := s.ColumnIndex(name); idx >= 0 {
		return idx
	}
	s.Columns = append(s.Columns, name)
	for i := range s.Rows {
		s.Rows[i] = append(s.Rows[i], "")
	}
	return len(s.Columns) - 1
}

// =============================================================================
// REPORT SCHEMA TABLE
// =============================================================================

// ReportSchema declares the column contract of one known report layout.
// The schema table is loaded from YAML so a new layout is a data change.
type ReportSchema struct {
	// Name is the report type label returned to callers.
	Name ReportType `yaml:"name"`

	// Marker is the column whose presence selects this layout.
	Marker string `yaml:"marker"`

	// RequiredColumns must all be present in the sheet.
	RequiredColumns []string `yaml:"required_columns"`

	// DropEmpty lists columns whose empty rows are removed before deriving.
	DropEmpty []string `yaml:"drop_empty"`

	// Derive lists the column derivations, applied in order.
	Derive []DeriveAction `yaml:"derive"`

	// GroupBy is the ordered list of grouping columns.
	GroupBy []string `yaml:"group_by"`

	// Identity is the column whose distinct values are counted.
	Identity string `yaml:"identity"`
}

// DeriveAction is a single column derivation.
//
// Supported types:
//   - "copy"      : Target = Source
//   - "split"     : Targets[0], Targets[1] = Source split on the first Separator
//   - "set_null"  : Target = null for every row
//   - "trim"      : Target = trimmed Target
//   - "uppercase" : Target = upper-cased Target
//   - "lowercase" : Target = lower-cased Target
type DeriveAction struct {
	Type      string   `yaml:"type"`
	Source    string   `yaml:"source,omitempty"`
	Target    string   `yaml:"target,omitempty"`
	Targets   []string `yaml:"targets,omitempty"`
	Separator string   `yaml:"separator,omitempty"`
}

// GroupSpec is the grouping derived for one request.
type GroupSpec struct {
	Columns  []string
	Identity string
}

// =============================================================================
// AGGREGATE OUTPUT
// =============================================================================

// GroupValue is one extra grouping column carried on an AggregateRow.
type GroupValue struct {
	Column string
	Value  *string
}

// AggregateRow is one grouped count. Ward and Unit are always emitted,
// as null when the grouping does not include them.
type AggregateRow struct {
	Ward  *string
	Unit  *string
	Extra []GroupValue
	Count int
}

// MarshalJSON emits Ward, Unit, any extra group columns in group order, then
// Count.
func (r AggregateRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	write := func(key string, value interface{}) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	if err := write(ColumnWard, r.Ward); err != nil {
		return nil, err
	}
	if err := write(ColumnUnit, r.Unit); err != nil {
		return nil, err
	}
	for _, gv := range r.Extra {
		if err := write(gv.Column, gv.Value); err != nil {
			return nil, err
		}
	}
	if err := write(ColumnCount, r.Count); err != nil {
		return nil, err
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Result is the outcome of aggregating one spreadsheet.
type Result struct {
	ReportType ReportType     `json:"report_type"`
	Data       []AggregateRow `json:"data"`
}

// StringPtr returns nil for the empty string and a pointer otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
