// =============================================================================
// Ward Census Aggregator - Report Schema Table
// =============================================================================
//
// The known report layouts are declared as data: each entry names its marker
// column, required columns, row filters, column derivations, grouping columns
// and identity column. The built-in table is embedded from report_types.yaml
// and can be replaced with a file named in the main configuration.
//
// =============================================================================

package report

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/ward-census-aggregator/internal/types"
)

//go:embed report_types.yaml
var defaultTable []byte

// table is the on-disk shape of a report schema file.
type table struct {
	ReportTypes []types.ReportSchema `yaml:"report_types"`
}

// DefaultSchemas returns the built-in report layouts.
func DefaultSchemas() ([]types.ReportSchema, error) {
	return ParseSchemas(defaultTable)
}

// LoadSchemas reads a report schema table from a YAML file.
func LoadSchemas(path string) ([]types.ReportSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report types file: %w", err)
	}

	schemas, err := ParseSchemas(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return schemas, nil
}

// ParseSchemas decodes and validates a report schema table.
func ParseSchemas(data []byte) ([]types.ReportSchema, error) {
	var t table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse report types: %w", err)
	}

	if err := validateSchemas(t.ReportTypes); err != nil {
		return nil, fmt.Errorf("invalid report types: %w", err)
	}

	return t.ReportTypes, nil
}

// validateSchemas checks every entry is complete and every derivation is one
// the normalizer knows how to apply.
func validateSchemas(schemas []types.ReportSchema) error {
	if len(schemas) == 0 {
		return fmt.Errorf("no report types declared")
	}

	names := make(map[types.ReportType]bool, len(schemas))
	for i, s := range schemas {
		where := fmt.Sprintf("report_types[%d]", i)

		switch {
		case s.Name == "":
			return fmt.Errorf("%s: name is required", where)
		case s.Name == types.ReportUnknown:
			return fmt.Errorf("%s: %q is reserved", where, types.ReportUnknown)
		case names[s.Name]:
			return fmt.Errorf("%s: duplicate name %q", where, s.Name)
		case s.Marker == "":
			return fmt.Errorf("%s (%s): marker is required", where, s.Name)
		case s.Identity == "":
			return fmt.Errorf("%s (%s): identity is required", where, s.Name)
		case len(s.GroupBy) == 0:
			return fmt.Errorf("%s (%s): group_by is required", where, s.Name)
		}
		names[s.Name] = true

		for j, action := range s.Derive {
			if err := validateAction(action); err != nil {
				return fmt.Errorf("%s (%s): derive[%d]: %w", where, s.Name, j, err)
			}
		}
	}

	return nil
}

func validateAction(action types.DeriveAction) error {
	switch action.Type {
	case ActionCopy:
		if action.Source == "" || action.Target == "" {
			return fmt.Errorf("copy needs source and target")
		}
	case ActionSplit:
		if action.Source == "" || len(action.Targets) != 2 {
			return fmt.Errorf("split needs source and exactly two targets")
		}
	case ActionSetNull, ActionTrim, ActionUppercase, ActionLowercase:
		if action.Target == "" {
			return fmt.Errorf("%s needs target", action.Type)
		}
	default:
		return fmt.Errorf("unknown action type %q", action.Type)
	}
	return nil
}
