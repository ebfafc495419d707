package report

import (
	"fmt"
	"strings"

	apperrors "github.com/ginjaninja78/ward-census-aggregator/internal/errors"
	"github.com/ginjaninja78/ward-census-aggregator/internal/types"
	"github.com/ginjaninja78/ward-census-aggregator/internal/validation"
)

// Classify returns the report type of the first schema, in table order,
// whose marker column is present. Sheets matching none are Unknown.
func Classify(columns []string, schemas []types.ReportSchema) types.ReportType {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}

	for _, s := range schemas {
		if present[s.Marker] {
			return s.Name
		}
	}
	return types.ReportUnknown
}

// Registry holds the schema table used to classify and normalize sheets.
type Registry struct {
	schemas []types.ReportSchema
}

// NewRegistry returns a Registry over the given table. The table order is
// the classification priority.
func NewRegistry(schemas []types.ReportSchema) *Registry {
	return &Registry{schemas: schemas}
}

// Schemas returns the table in priority order.
func (r *Registry) Schemas() []types.ReportSchema {
	return r.schemas
}

// Classify classifies the sheet's columns against the registry's table.
func (r *Registry) Classify(columns []string) types.ReportType {
	return Classify(columns, r.schemas)
}

// Schema returns the table entry for a report type.
func (r *Registry) Schema(rt types.ReportType) (types.ReportSchema, bool) {
	for _, s := range r.schemas {
		if s.Name == rt {
			return s, true
		}
	}
	return types.ReportSchema{}, false
}

// Normalize prepares a sheet for aggregation according to its report type.
// The input sheet is not modified.
//
// Known types follow their schema entry. Unknown sheets are grouped by the
// caller's columns and counted on the first sheet column.
func (r *Registry) Normalize(sheet *types.Sheet, rt types.ReportType, groupBy []string) (*types.Sheet, types.GroupSpec, error) {
	if rt == types.ReportUnknown {
		return normalizeUnknown(sheet, groupBy)
	}

	schema, ok := r.Schema(rt)
	if !ok {
		return nil, types.GroupSpec{}, apperrors.New(apperrors.CodeInternalError,
			fmt.Sprintf("no schema declared for report type %q", rt))
	}
	return normalizeKnown(sheet, schema)
}

func normalizeKnown(sheet *types.Sheet, schema types.ReportSchema) (*types.Sheet, types.GroupSpec, error) {
	if err := validation.RequireColumns(sheet, schema.RequiredColumns, string(schema.Name)+" report"); err != nil {
		return nil, types.GroupSpec{}, err
	}

	out := sheet.Clone()
	for _, col := range schema.DropEmpty {
		dropEmpty(out, col)
	}

	for _, action := range schema.Derive {
		if err := applyDerive(out, action); err != nil {
			return nil, types.GroupSpec{}, err
		}
	}

	spec := types.GroupSpec{
		Columns:  append([]string(nil), schema.GroupBy...),
		Identity: schema.Identity,
	}
	if err := finalizeIdentity(out, spec.Identity); err != nil {
		return nil, types.GroupSpec{}, err
	}

	return out, spec, nil
}

func normalizeUnknown(sheet *types.Sheet, groupBy []string) (*types.Sheet, types.GroupSpec, error) {
	groupBy = uniqueColumns(groupBy)
	if err := validation.RequireGroupColumns(sheet, groupBy); err != nil {
		return nil, types.GroupSpec{}, err
	}

	spec := types.GroupSpec{
		Columns:  groupBy,
		Identity: sheet.Columns[0],
	}

	out := sheet.Clone()
	if err := finalizeIdentity(out, spec.Identity); err != nil {
		return nil, types.GroupSpec{}, err
	}

	return out, spec, nil
}

// uniqueColumns returns the names with repeats removed, first occurrence
// kept.
func uniqueColumns(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// finalizeIdentity trims the identity column and drops rows without one.
func finalizeIdentity(sheet *types.Sheet, identity string) error {
	idx := sheet.ColumnIndex(identity)
	if idx < 0 {
		return validation.RequireColumns(sheet, []string{identity}, "identity")
	}
	for _, row := range sheet.Rows {
		row[idx] = strings.TrimSpace(row[idx])
	}
	dropEmpty(sheet, identity)
	return nil
}

// dropEmpty removes rows whose value in the column is empty. A column the
// sheet does not have removes nothing.
func dropEmpty(sheet *types.Sheet, column string) {
	idx := sheet.ColumnIndex(column)
	if idx < 0 {
		return
	}
	kept := sheet.Rows[:0]
	for _, row := range sheet.Rows {
		if strings.TrimSpace(row[idx]) != "" {
			kept = append(kept, row)
		}
	}
	sheet.Rows = kept
}
