// =============================================================================
// Ward Census Aggregator - Main Entry Point
// =============================================================================
//
// USAGE:
//   aggregator serve       - Start the HTTP API
//   aggregator aggregate   - Aggregate local spreadsheets
//   aggregator version     - Display the application version
//
// ARCHITECTURE:
//   - cmd/        : CLI command definitions (Cobra)
//   - internal/   : Pipeline stages, HTTP API, configuration
//   - pkg/        : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/ward-census-aggregator/cmd"
)

func main() {
	cmd.Execute()
}
