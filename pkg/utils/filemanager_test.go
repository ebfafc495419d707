package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestDiscoverInputFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.xlsx"))
	touch(t, filepath.Join(dir, "nested", "a.XLS"))
	touch(t, filepath.Join(dir, "notes.txt"))
	explicit := filepath.Join(t.TempDir(), "upload.bin")
	touch(t, explicit)

	files, err := DiscoverInputFiles([]string{dir, explicit, filepath.Join(dir, "b.xlsx")})
	require.NoError(t, err)

	want := []string{
		filepath.Join(dir, "b.xlsx"),
		filepath.Join(dir, "nested", "a.XLS"),
		explicit,
	}
	assert.ElementsMatch(t, want, files)
	assert.Len(t, files, 3)
}

func TestDiscoverInputFilesMissingPath(t *testing.T) {
	_, err := DiscoverInputFiles([]string{filepath.Join(t.TempDir(), "nope.xlsx")})
	assert.Error(t, err)
}

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("{original}_{uuid}", map[string]string{"original": "census"}, ".json")
	assert.Regexp(t, regexp.MustCompile(`^census_[0-9a-f-]{36}\.json$`), name)

	name = GenerateOutputFileName("{type}_{date}.csv", map[string]string{"type": "Deceased"}, ".csv")
	assert.Equal(t, "Deceased_"+time.Now().Format("20060102")+".csv", name)
}

func TestOriginalName(t *testing.T) {
	assert.Equal(t, "ward census", OriginalName("/tmp/in/ward census.xlsx"))
	assert.Equal(t, "plain", OriginalName("plain"))
}

func TestWriteOutputAndLogs(t *testing.T) {
	fm := NewFileManager(filepath.Join(t.TempDir(), "out"), "")
	require.NoError(t, fm.EnsureOutputDir())
	assert.Equal(t, "{original}_{uuid}", fm.FileNameFormat)

	path, err := fm.WriteOutput("r.json", []byte("{}"))
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	logPath, err := fm.WriteErrorLog(nil)
	require.NoError(t, err)
	assert.Empty(t, logPath)

	logPath, err = fm.WriteErrorLog([]ErrorLogEntry{{
		Timestamp:    time.Now(),
		FileName:     "bad.xlsx",
		ErrorType:    "PARSE_ERROR",
		ErrorMessage: "no header row found",
	}})
	require.NoError(t, err)
	data, err = os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "bad.xlsx")
	assert.Contains(t, string(data), "PARSE_ERROR")

	now := time.Now()
	summaryPath, err := fm.WriteSummaryLog(ProcessingSummary{
		StartTime:       now,
		EndTime:         now.Add(time.Second),
		TotalFiles:      2,
		SuccessfulFiles: 1,
		FailedFiles:     1,
		ProcessedFiles:  []ProcessedFileInfo{{InputFile: "good.xlsx", OutputFile: "good.json", ReportType: "Inpatients"}},
		FailedFilesList: []FailedFileInfo{{InputFile: "bad.xlsx", ErrorType: "PARSE_ERROR", ErrorMessage: "boom"}},
	})
	require.NoError(t, err)
	data, err = os.ReadFile(summaryPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Report Type:  Inpatients")
	assert.Contains(t, string(data), "Error: boom")
}
