package cmd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ginjaninja78/ward-census-aggregator/internal/config"
	"github.com/ginjaninja78/ward-census-aggregator/internal/testkit"
)

func setupAggregate(t *testing.T) (inDir, outDir string) {
	t.Helper()

	appConfig = config.Default()
	logger = zap.NewNop()
	inDir, outDir = t.TempDir(), t.TempDir()
	outputDir, outputFormat, groupBy, workers, dryRun = outDir, "json", "", 2, false

	t.Cleanup(func() {
		appConfig, logger = nil, nil
		outputDir, outputFormat, groupBy, workers, dryRun = "", "json", "", 1, false
	})
	return inDir, outDir
}

func TestRunAggregateWritesResultsAndLogs(t *testing.T) {
	inDir, outDir := setupAggregate(t)
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "census.xlsx"), testkit.BuildXLSX(t, testkit.InpatientRows()), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "broken.xlsx"), []byte("not a workbook"), 0644))

	err := runAggregate(context.Background(), []string{inDir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 file(s) failed")

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)

	var result, summary, errorLog string
	for _, e := range entries {
		switch name := e.Name(); {
		case strings.HasPrefix(name, "census_") && strings.HasSuffix(name, ".json"):
			result = name
		case strings.HasPrefix(name, "processing_summary_"):
			summary = name
		case strings.HasPrefix(name, "error_log_"):
			errorLog = name
		}
	}
	require.NotEmpty(t, result)
	assert.NotEmpty(t, summary)
	require.NotEmpty(t, errorLog)

	data, err := os.ReadFile(filepath.Join(outDir, result))
	require.NoError(t, err)
	var doc struct {
		ReportType string            `json:"report_type"`
		Data       []json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "Inpatients", doc.ReportType)
	assert.Len(t, doc.Data, 1)

	logData, err := os.ReadFile(filepath.Join(outDir, errorLog))
	require.NoError(t, err)
	assert.Contains(t, string(logData), "broken.xlsx")
	assert.Contains(t, string(logData), "PARSE_ERROR")
}

func TestRunAggregateDryRunWritesNothing(t *testing.T) {
	inDir, outDir := setupAggregate(t)
	dryRun = true
	outputFormat = "csv"
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "census.xlsx"), testkit.BuildXLSX(t, testkit.InpatientRows()), 0644))

	require.NoError(t, runAggregate(context.Background(), []string{inDir}))

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunAggregateRejectsUnknownFormat(t *testing.T) {
	inDir, _ := setupAggregate(t)
	outputFormat = "yaml"

	assert.Error(t, runAggregate(context.Background(), []string{inDir}))
}
