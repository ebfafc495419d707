package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/ward-census-aggregator/internal/types"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("API_TOKEN", "")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("REPORT_TYPES_FILE", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), true)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, int64(32<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 9, cfg.LoaderOptions().MaxHeaderOffset)
	assert.Contains(t, cfg.LoaderOptions().MarkerKeywords, "CurrWardUnit")
	assert.Error(t, cfg.RequireAPIToken())
}

func TestLoadMissingRequiredFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), false)
	assert.Error(t, err)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := writeFile(t, "config.yaml", `
listen_addr: ":9000"
api_token: from-file
log_level: debug
sort_groups: true
detection:
  max_header_offset: 0
  marker_keywords: [MRN]
`)
	t.Setenv("API_TOKEN", "from-env")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load(path, false)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "from-env", cfg.APIToken)
	assert.NoError(t, cfg.RequireAPIToken())
	assert.True(t, cfg.SortGroups)

	opts := cfg.LoaderOptions()
	assert.Equal(t, 0, opts.MaxHeaderOffset)
	assert.Equal(t, []string{"MRN"}, opts.MarkerKeywords)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	for name, doc := range map[string]string{
		"log level":  "log_level: chatty",
		"log format": "log_format: xml",
		"offset":     "detection:\n  max_header_offset: -1",
		"yaml":       "listen_addr: [",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.yaml", doc), false)
			assert.Error(t, err)
		})
	}
}

func TestReportSchemasFromFile(t *testing.T) {
	path := writeFile(t, "types.yaml", `
report_types:
  - name: Outpatients
    marker: ClinicCode
    group_by: [ClinicCode]
    identity: MRN
`)
	cfg := Default()
	cfg.ReportTypesFile = path

	schemas, err := cfg.ReportSchemas()
	require.NoError(t, err)
	require.Len(t, schemas, 1)
	assert.Equal(t, types.ReportType("Outpatients"), schemas[0].Name)

	cfg.ReportTypesFile = ""
	schemas, err = cfg.ReportSchemas()
	require.NoError(t, err)
	assert.Len(t, schemas, 3)
}
