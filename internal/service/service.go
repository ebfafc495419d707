// =============================================================================
// Ward Census Aggregator - Aggregation Pipeline
// =============================================================================
//
// This module runs the pipeline for one spreadsheet. It is shared by the HTTP
// API and the aggregate command.
//
// PIPELINE:
//   1. Load the spreadsheet and locate its header row
//   2. Classify the report type from the column names
//   3. Normalize the sheet for that report type
//   4. Group and count distinct identities
//
// Every failure is terminal for the request and carries an AppError code
// (PARSE_ERROR, VALIDATION_ERROR, AGGREGATION_ERROR) so callers can map it to
// a client or server error. The Aggregator holds no per-request state and is
// safe for concurrent use.
//
// =============================================================================

package service

import (
	"context"
	"time"

	"github.com/ginjaninja78/ward-census-aggregator/internal/aggregator"
	"github.com/ginjaninja78/ward-census-aggregator/internal/logging"
	"github.com/ginjaninja78/ward-census-aggregator/internal/report"
	"github.com/ginjaninja78/ward-census-aggregator/internal/sheetloader"
	"github.com/ginjaninja78/ward-census-aggregator/internal/types"
)

// =============================================================================
// REQUEST AND STATS
// =============================================================================

// Request is one spreadsheet to aggregate.
type Request struct {
	// Data holds the raw (already base64-decoded) spreadsheet bytes.
	Data []byte

	// GroupBy holds caller-supplied grouping columns. Only used when the
	// report type is Unknown.
	GroupBy []string

	// Source names the upload for logging (file name or request ID).
	Source string
}

// Stats describes one pipeline run.
type Stats struct {
	Format         string
	HeaderOffset   int
	RowsLoaded     int
	RowsNormalized int
	Groups         int
	Duration       time.Duration
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator runs the load, classify, normalize and aggregate stages.
type Aggregator struct {
	registry   *report.Registry
	loaderOpts sheetloader.Options
	aggOpts    aggregator.Options
	logger     logging.Logger
}

// New creates an Aggregator. A nil logger discards log output.
func New(registry *report.Registry, loaderOpts sheetloader.Options, aggOpts aggregator.Options, logger logging.Logger) *Aggregator {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Aggregator{
		registry:   registry,
		loaderOpts: loaderOpts,
		aggOpts:    aggOpts,
		logger:     logger,
	}
}

// Run aggregates one spreadsheet.
func (a *Aggregator) Run(ctx context.Context, req Request) (*types.Result, error) {
	result, _, err := a.RunWithStats(ctx, req)
	return result, err
}

// RunWithStats is Run that also reports what each stage did.
func (a *Aggregator) RunWithStats(ctx context.Context, req Request) (*types.Result, Stats, error) {
	start := time.Now()
	var stats Stats

	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	// =========================================================================
	// STEP 1: LOAD
	// =========================================================================

	sheet, err := sheetloader.Load(req.Data, a.loaderOpts)
	if err != nil {
		a.logger.Warnw("spreadsheet rejected", "source", req.Source, "error", err)
		return nil, stats, err
	}

	stats.Format = sheet.Format
	stats.HeaderOffset = sheet.HeaderOffset
	stats.RowsLoaded = len(sheet.Rows)
	a.logger.Debugw("spreadsheet loaded",
		"source", req.Source,
		"format", sheet.Format,
		"header_offset", sheet.HeaderOffset,
		"columns", sheet.Columns,
		"rows", len(sheet.Rows))

	// =========================================================================
	// STEP 2: CLASSIFY
	// =========================================================================

	reportType := a.registry.Classify(sheet.Columns)
	a.logger.Debugw("report classified", "source", req.Source, "report_type", reportType)

	// =========================================================================
	// STEP 3: NORMALIZE
	// =========================================================================

	normalized, spec, err := a.registry.Normalize(sheet, reportType, req.GroupBy)
	if err != nil {
		a.logger.Warnw("normalization failed", "source", req.Source, "report_type", reportType, "error", err)
		return nil, stats, err
	}

	stats.RowsNormalized = len(normalized.Rows)
	a.logger.Debugw("sheet normalized",
		"source", req.Source,
		"group_by", spec.Columns,
		"identity", spec.Identity,
		"rows", len(normalized.Rows))

	// =========================================================================
	// STEP 4: AGGREGATE
	// =========================================================================

	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	rows, err := aggregator.Aggregate(normalized, spec, a.aggOpts)
	if err != nil {
		a.logger.Errorw("aggregation failed", "source", req.Source, "report_type", reportType, "error", err)
		return nil, stats, err
	}

	stats.Groups = len(rows)
	stats.Duration = time.Since(start)

	a.logger.Infow("spreadsheet aggregated",
		"source", req.Source,
		"report_type", reportType,
		"header_offset", stats.HeaderOffset,
		"rows", stats.RowsNormalized,
		"groups", stats.Groups,
		"duration", stats.Duration)

	return &types.Result{ReportType: reportType, Data: rows}, stats, nil
}
