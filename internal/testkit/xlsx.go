// Package testkit builds in-memory workbooks for package tests.
package testkit

import (
	"encoding/base64"
	"testing"

	"github.com/xuri/excelize/v2"
)

// BuildXLSX writes rows to the first sheet of a new workbook, starting at A1,
// and returns the encoded XLSX bytes.
func BuildXLSX(t testing.TB, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name for row %d: %v", i+1, err)
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			t.Fatalf("set row %d: %v", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

// BuildXLSXBase64 is BuildXLSX followed by standard base64 encoding.
func BuildXLSXBase64(t testing.TB, rows [][]interface{}) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString(BuildXLSX(t, rows))
}

// InpatientRows is a small inpatient census with a two-row banner above the
// header.
func InpatientRows() [][]interface{} {
	return [][]interface{}{
		{"St Elsewhere Hospital"},
		{"Inpatient census 18/10/2026"},
		{"URN", "Ward", "Unit"},
		{1, "A", "1"},
		{2, "A", "1"},
		{1, "A", "1"},
	}
}
