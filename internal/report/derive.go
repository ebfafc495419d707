package report

import (
	"fmt"
	"strings"

	apperrors "github.com/ginjaninja78/ward-census-aggregator/internal/errors"
	"github.com/ginjaninja78/ward-census-aggregator/internal/types"
)

// Derive action types.
const (
	ActionCopy      = "copy"
	ActionSplit     = "split"
	ActionSetNull   = "set_null"
	ActionTrim      = "trim"
	ActionUppercase = "uppercase"
	ActionLowercase = "lowercase"
)

// applyDerive applies one derivation to every row of the sheet in place.
// Target columns are created when missing and overwritten when present.
func applyDerive(sheet *types.Sheet, action types.DeriveAction) error {
	switch action.Type {
	case ActionCopy:
		src, err := sourceIndex(sheet, action)
		if err != nil {
			return err
		}
		dst := sheet.EnsureColumn(action.Target)
		for _, row := range sheet.Rows {
			row[dst] = row[src]
		}

	case ActionSplit:
		src, err := sourceIndex(sheet, action)
		if err != nil {
			return err
		}
		sep := action.Separator
		if sep == "" {
			sep = " "
		}
		first := sheet.EnsureColumn(action.Targets[0])
		second := sheet.EnsureColumn(action.Targets[1])
		for _, row := range sheet.Rows {
			row[first], row[second] = SplitFirst(row[src], sep)
		}

	case ActionSetNull:
		dst := sheet.EnsureColumn(action.Target)
		for _, row := range sheet.Rows {
			row[dst] = ""
		}

	case ActionTrim, ActionUppercase, ActionLowercase:
		dst := sheet.ColumnIndex(action.Target)
		if dst < 0 {
			return missingColumn(action.Type, action.Target)
		}
		fn := strings.TrimSpace
		if action.Type == ActionUppercase {
			fn = strings.ToUpper
		} else if action.Type == ActionLowercase {
			fn = strings.ToLower
		}
		for _, row := range sheet.Rows {
			row[dst] = fn(row[dst])
		}

	default:
		return fmt.Errorf("unknown derive action %q", action.Type)
	}

	return nil
}

// SplitFirst splits value on the first occurrence of sep and trims both
// halves. Without a separator the second half is empty.
func SplitFirst(value, sep string) (string, string) {
	head, tail, found := strings.Cut(value, sep)
	if !found {
		return strings.TrimSpace(value), ""
	}
	return strings.TrimSpace(head), strings.TrimSpace(tail)
}

func sourceIndex(sheet *types.Sheet, action types.DeriveAction) (int, error) {
	idx := sheet.ColumnIndex(action.Source)
	if idx < 0 {
		return -1, missingColumn(action.Type, action.Source)
	}
	return idx, nil
}

func missingColumn(actionType, column string) error {
	return apperrors.ValidationError(
		fmt.Sprintf("cannot %s: column %q not found", actionType, column))
}
