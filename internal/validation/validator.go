// =============================================================================
// Ward Census Aggregator - Column Contract Validation
// =============================================================================
//
// Every report layout declares the columns it needs, and callers may name
// grouping columns of their own. This module checks a loaded sheet against
// those column lists before any normalization runs. One error names every
// absent column.
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	apperrors "github.com/ginjaninja78/ward-census-aggregator/internal/errors"
	"github.com/ginjaninja78/ward-census-aggregator/internal/types"
)

// =============================================================================
// COLUMN ERROR
// =============================================================================

// ColumnError lists the columns a sheet was expected to have but did not.
type ColumnError struct {
	// Context names what needed the columns, e.g. a report type.
	Context string

	// Missing holds the absent column names in the order they were requested.
	Missing []string
}

// Error implements the error interface.
func (e *ColumnError) Error() string {
	quoted := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		quoted[i] = fmt.Sprintf("%q", m)
	}
	msg := fmt.Sprintf("missing columns: [%s]", strings.Join(quoted, ", "))
	if e.Context != "" {
		msg += " (required by " + e.Context + ")"
	}
	return msg
}

// =============================================================================
// VALIDATORS
// =============================================================================

// MissingColumns returns the names not present in the sheet, in order.
func MissingColumns(sheet *types.Sheet, names []string) []string {
	var missing []string
	for _, name := range names {
		if !sheet.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// RequireColumns returns a VALIDATION_ERROR AppError wrapping a ColumnError
// when any of names is absent from the sheet.
func RequireColumns(sheet *types.Sheet, names []string, context string) error {
	missing := MissingColumns(sheet, names)
	if len(missing) == 0 {
		return nil
	}

	colErr := &ColumnError{Context: context, Missing: missing}
	return apperrors.WithCode(apperrors.CodeValidationError, colErr, "invalid spreadsheet")
}

// RequireGroupColumns validates caller-supplied grouping columns: at least
// one must be given, none may be named Count and all must exist.
func RequireGroupColumns(sheet *types.Sheet, groupBy []string) error {
	if len(groupBy) == 0 {
		return apperrors.ValidationError(
			"unrecognised report layout: grouping columns must be supplied")
	}
	for _, col := range groupBy {
		if col == types.ColumnCount {
			return apperrors.ValidationError(fmt.Sprintf(
				"grouping column %q is reserved for the group count", col))
		}
	}
	return RequireColumns(sheet, groupBy, "requested grouping")
}
