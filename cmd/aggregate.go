// =============================================================================
// Ward Census Aggregator - Aggregate Command
// =============================================================================
//
// This file defines the 'aggregate' command, which runs the aggregation
// pipeline over local spreadsheets without going through the HTTP API.
//
// COMMAND USAGE:
//   aggregator aggregate <file-or-dir>... [flags]
//
// FLAGS:
//   --output-dir : Directory for result files (overrides output_dir)
//   --format     : json, csv or xml
//   --group-by   : Grouping columns for Unknown report layouts (a,b)
//   --workers    : Files processed at once
//   --dry-run    : Aggregate and report without writing any files
//
// PROCESSING PIPELINE:
//   1. Expand the arguments into .xlsx / .xls files
//   2. For each file (concurrently):
//      a. Load, classify, normalize and aggregate
//      b. Render the result in the chosen format
//      c. Write it to the output directory
//   3. Print a summary and write the summary and error logs
//
// Errors in one file do not stop the others.
//
// =============================================================================

package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/spf13/cobra"

	apperrors "github.com/ginjaninja78/ward-census-aggregator/internal/errors"
	"github.com/ginjaninja78/ward-census-aggregator/internal/resultwriter"
	"github.com/ginjaninja78/ward-census-aggregator/internal/service"
	"github.com/ginjaninja78/ward-census-aggregator/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	outputDir    string
	outputFormat string
	groupBy      string
	workers      int
	dryRun       bool
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate <file-or-dir>...",
	Short: "Aggregate local spreadsheets and write the results",
	Long: `The aggregate command runs the same pipeline as the HTTP API over local
files. Directories are searched recursively for .xlsx and .xls workbooks.

Each file is processed independently. On success the result is written to the
output directory, named by file_name_format (default {original}_{uuid}). On
error the file is listed in an error log in the output directory and
processing continues with the other files.`,

	Args: cobra.MinimumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		return runAggregate(cmd.Context(), args)
	},
}

func init() {
	rootCmd.AddCommand(aggregateCmd)

	aggregateCmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for result files (overrides output_dir)")
	aggregateCmd.Flags().StringVar(&outputFormat, "format", "json", "Output format: json, csv or xml")
	aggregateCmd.Flags().StringVar(&groupBy, "group-by", "", "Comma-separated grouping columns for Unknown report layouts")
	aggregateCmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "Number of files processed at once")
	aggregateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Aggregate without writing output files")
}

// fileResult is the outcome of one input file.
type fileResult struct {
	InputFile  string
	OutputFile string
	ReportType string
	Stats      service.Stats
	Err        error
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runAggregate(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	startTime := time.Now()

	format, err := resultwriter.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	pipeline, err := newPipeline(appConfig, logger)
	if err != nil {
		return err
	}

	dir := appConfig.OutputDir
	if outputDir != "" {
		dir = outputDir
	}
	fm := utils.NewFileManager(dir, appConfig.FileNameFormat)
	if !dryRun {
		if err := fm.EnsureOutputDir(); err != nil {
			return err
		}
	}

	// =========================================================================
	// STEP 1: DISCOVER INPUT FILES
	// =========================================================================

	inputFiles, err := utils.DiscoverInputFiles(args)
	if err != nil {
		return err
	}
	if len(inputFiles) == 0 {
		fmt.Println("No spreadsheets found.")
		return nil
	}

	fmt.Printf("Found %d file(s) to aggregate\n", len(inputFiles))

	// =========================================================================
	// STEP 2: PROCESS FILES CONCURRENTLY
	// =========================================================================

	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	results := make(chan fileResult, len(inputFiles))
	slots := make(chan struct{}, workers)
	columns := service.ParseGroupBy(groupBy)

	for _, file := range inputFiles {
		wg.Add(1)

		go func(path string) {
			defer wg.Done()
			slots <- struct{}{}
			defer func() { <-slots }()

			results <- aggregateFile(ctx, pipeline, fm, path, columns, format)
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// =========================================================================
	// STEP 3: COLLECT RESULTS AND WRITE SUMMARY
	// =========================================================================

	summary := utils.ProcessingSummary{
		StartTime:  startTime,
		TotalFiles: len(inputFiles),
	}
	var errorEntries []utils.ErrorLogEntry

	for result := range results {
		name := filepath.Base(result.InputFile)

		if result.Err != nil {
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    result.InputFile,
				ErrorMessage: result.Err.Error(),
				ErrorType:    apperrors.GetCode(result.Err),
			})
			errorEntries = append(errorEntries, utils.ErrorLogEntry{
				Timestamp:    time.Now(),
				FileName:     result.InputFile,
				ErrorType:    apperrors.GetCode(result.Err),
				ErrorMessage: result.Err.Error(),
			})
			fmt.Printf("  ✗ %s: %v\n", name, result.Err)
			continue
		}

		summary.SuccessfulFiles++
		summary.TotalRows += result.Stats.RowsNormalized
		summary.TotalGroups += result.Stats.Groups
		summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
			InputFile:   result.InputFile,
			OutputFile:  result.OutputFile,
			ReportType:  result.ReportType,
			Rows:        result.Stats.RowsNormalized,
			Groups:      result.Stats.Groups,
			ProcessTime: result.Stats.Duration,
		})

		target := result.OutputFile
		if dryRun {
			target = "(dry run)"
		}
		fmt.Printf("  ✓ %s [%s, %d group(s)] -> %s\n", name, result.ReportType, result.Stats.Groups, target)
	}

	summary.EndTime = time.Now()

	fmt.Println("\n=== Aggregation Complete ===")
	fmt.Printf("Total files:     %d\n", summary.TotalFiles)
	fmt.Printf("Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Printf("Errors:          %d\n", summary.FailedFiles)
	fmt.Printf("Time elapsed:    %s\n", summary.EndTime.Sub(startTime))

	if !dryRun {
		if _, err := fm.WriteSummaryLog(summary); err != nil {
			return err
		}
		logPath, err := fm.WriteErrorLog(errorEntries)
		if err != nil {
			return err
		}
		if logPath != "" {
			fmt.Printf("\nErrors have been logged to %s\n", logPath)
		}
	}

	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d file(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}

// aggregateFile runs the pipeline on one file and writes its result.
func aggregateFile(ctx context.Context, pipeline *service.Aggregator, fm *utils.FileManager, path string, columns []string, format resultwriter.Format) fileResult {
	out := fileResult{InputFile: path}

	data, err := os.ReadFile(path)
	if err != nil {
		out.Err = fmt.Errorf("failed to read file: %w", err)
		return out
	}

	result, stats, err := pipeline.RunWithStats(ctx, service.Request{
		Data:    data,
		GroupBy: columns,
		Source:  path,
	})
	if err != nil {
		out.Err = err
		return out
	}
	out.ReportType = string(result.ReportType)
	out.Stats = stats

	var buf bytes.Buffer
	if err := resultwriter.Write(&buf, result, format); err != nil {
		out.Err = err
		return out
	}

	name := utils.GenerateOutputFileName(fm.FileNameFormat, map[string]string{
		"original": utils.OriginalName(path),
		"type":     out.ReportType,
	}, format.Extension())

	if dryRun {
		out.OutputFile = name
		return out
	}

	out.OutputFile, out.Err = fm.WriteOutput(name, buf.Bytes())
	return out
}
