// =============================================================================
// Ward Census Aggregator - Grouped Distinct Counts
// =============================================================================
//
// Rows of a normalized sheet are grouped by the exact tuple of their grouping
// column values and each group is counted by the number of distinct,
// non-empty identity values it contains. A patient listed twice on the same
// ward/unit is counted once.
//
// GROUP KEYS:
//   An empty cell is a null key part. Null is its own group key and is never
//   merged with a non-null value.
//
// ORDERING:
//   Groups are emitted in the order their key first appears in the sheet,
//   or ascending by key tuple (null first) when Options.SortGroups is set.
//   Either way the output is deterministic for identical input.
//
// =============================================================================

package aggregator

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/ginjaninja78/ward-census-aggregator/internal/errors"
	"github.com/ginjaninja78/ward-census-aggregator/internal/types"
)

// Options controls output ordering.
type Options struct {
	// SortGroups orders groups ascending by key tuple instead of by first
	// appearance.
	SortGroups bool
}

// group accumulates one key's distinct identities.
type group struct {
	key        []string
	identities map[string]struct{}
}

// Aggregate groups the sheet by spec.Columns and counts distinct values of
// spec.Identity per group.
//
// RETURNS:
//   - One AggregateRow per distinct group key. Never nil.
//   - An AGGREGATION_ERROR AppError if a grouping or identity column is
//     missing from the sheet.
func Aggregate(sheet *types.Sheet, spec types.GroupSpec, opts Options) ([]types.AggregateRow, error) {
	if len(spec.Columns) == 0 {
		return nil, apperrors.AggregationError("aggregation failed", fmt.Errorf("no grouping columns"))
	}

	groupIdx := make([]int, len(spec.Columns))
	for i, col := range spec.Columns {
		idx := sheet.ColumnIndex(col)
		if idx < 0 {
			return nil, apperrors.AggregationError("aggregation failed",
				fmt.Errorf("grouping column %q not found", col))
		}
		groupIdx[i] = idx
	}

	identityIdx := sheet.ColumnIndex(spec.Identity)
	if identityIdx < 0 {
		return nil, apperrors.AggregationError("aggregation failed",
			fmt.Errorf("identity column %q not found", spec.Identity))
	}

	groups := make(map[string]*group)
	order := []*group{}

	for _, row := range sheet.Rows {
		key := make([]string, len(groupIdx))
		for i, idx := range groupIdx {
			key[i] = row[idx]
		}

		encoded := encodeKey(key)
		g, exists := groups[encoded]
		if !exists {
			g = &group{key: key, identities: make(map[string]struct{})}
			groups[encoded] = g
			order = append(order, g)
		}

		if id := strings.TrimSpace(row[identityIdx]); id != "" {
			g.identities[id] = struct{}{}
		}
	}

	if opts.SortGroups {
		sort.SliceStable(order, func(i, j int) bool {
			return lessKey(order[i].key, order[j].key)
		})
	}

	rows := make([]types.AggregateRow, 0, len(order))
	for _, g := range order {
		rows = append(rows, buildRow(spec.Columns, g))
	}

	return rows, nil
}

// buildRow maps a group onto the output shape: Ward and Unit always,
// other grouping columns as extras in group order.
func buildRow(columns []string, g *group) types.AggregateRow {
	row := types.AggregateRow{Count: len(g.identities)}

	for i, col := range columns {
		value := types.StringPtr(g.key[i])
		switch col {
		case types.ColumnWard:
			row.Ward = value
		case types.ColumnUnit:
			row.Unit = value
		default:
			row.Extra = append(row.Extra, types.GroupValue{Column: col, Value: value})
		}
	}

	return row
}

// encodeKey builds a map key that keeps null ("") and every non-null value
// distinct, whatever characters the values contain.
func encodeKey(parts []string) string {
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			b.WriteString("N;")
			continue
		}
		fmt.Fprintf(&b, "V%d:%s;", len(p), p)
	}
	return b.String()
}

// lessKey orders key tuples element by element with null before any value.
func lessKey(a, b []string) bool {
	for i := range a {
		if a[i] == b[i] {
			continue
		}
		if a[i] == "" {
			return true
		}
		if b[i] == "" {
			return false
		}
		return a[i] < b[i]
	}
	return false
}
