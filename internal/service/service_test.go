package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/ward-census-aggregator/internal/aggregator"
	apperrors "github.com/ginjaninja78/ward-census-aggregator/internal/errors"
	"github.com/ginjaninja78/ward-census-aggregator/internal/report"
	"github.com/ginjaninja78/ward-census-aggregator/internal/sheetloader"
	"github.com/ginjaninja78/ward-census-aggregator/internal/testkit"
	"github.com/ginjaninja78/ward-census-aggregator/internal/types"
)

func newAggregator(t *testing.T) *Aggregator {
	t.Helper()
	schemas, err := report.DefaultSchemas()
	require.NoError(t, err)
	return New(report.NewRegistry(schemas), sheetloader.DefaultOptions(), aggregator.Options{}, nil)
}

func runJSON(t *testing.T, agg *Aggregator, rows [][]interface{}, groupBy []string) (types.ReportType, string) {
	t.Helper()
	result, err := agg.Run(context.Background(), Request{
		Data:    testkit.BuildXLSX(t, rows),
		GroupBy: groupBy,
		Source:  t.Name(),
	})
	require.NoError(t, err)

	data, err := json.Marshal(result.Data)
	require.NoError(t, err)
	return result.ReportType, string(data)
}

func TestScenarioInpatients(t *testing.T) {
	rt, data := runJSON(t, newAggregator(t), [][]interface{}{
		{"URN", "Ward", "Unit"},
		{1, "A", "1"},
		{2, "A", "1"},
		{1, "A", "1"},
	}, nil)

	assert.Equal(t, types.ReportInpatients, rt)
	assert.JSONEq(t, `[{"Ward":"A","Unit":"1","Count":2}]`, data)
}

func TestScenarioDeceased(t *testing.T) {
	rt, data := runJSON(t, newAggregator(t), [][]interface{}{
		{"AdmNo", "Disch Unit"},
		{10, "ICU"},
		{11, "ICU"},
		{12, "ER"},
	}, nil)

	assert.Equal(t, types.ReportDeceased, rt)
	assert.JSONEq(t, `[{"Ward":null,"Unit":"ICU","Count":2},{"Ward":null,"Unit":"ER","Count":1}]`, data)
}

func TestScenarioTransfers(t *testing.T) {
	rt, data := runJSON(t, newAggregator(t), [][]interface{}{
		{"AdmNo", "CurrWardUnit"},
		{5, "South 2B"},
	}, nil)

	assert.Equal(t, types.ReportTransfers, rt)
	assert.JSONEq(t, `[{"Ward":"South","Unit":"2B","Count":1}]`, data)
}

func TestScenarioTransfersWithoutUnit(t *testing.T) {
	_, data := runJSON(t, newAggregator(t), [][]interface{}{
		{"AdmNo", "CurrWardUnit"},
		{5, "North"},
		{6, "North 4A"},
	}, nil)

	assert.JSONEq(t, `[{"Ward":"North","Unit":null,"Count":1},{"Ward":"North","Unit":"4A","Count":1}]`, data)
}

func TestScenarioUnknownWithCallerGroups(t *testing.T) {
	// "Ward Summary" puts a marker keyword in the header row without
	// matching any report type's marker column.
	rt, data := runJSON(t, newAggregator(t), [][]interface{}{
		{"PatientID", "Dept", "Ward Summary"},
		{"p1", "Cardio", "x"},
		{"p2", "Cardio", "x"},
		{"p1", "Cardio", "x"},
		{"p3", "Renal", "x"},
	}, []string{"Dept"})

	assert.Equal(t, types.ReportUnknown, rt)
	assert.JSONEq(t,
		`[{"Ward":null,"Unit":null,"Dept":"Cardio","Count":2},{"Ward":null,"Unit":null,"Dept":"Renal","Count":1}]`,
		data)
}

func TestUnknownWithoutGroupsIsValidationError(t *testing.T) {
	_, err := newAggregator(t).Run(context.Background(), Request{
		Data: testkit.BuildXLSX(t, [][]interface{}{
			{"PatientID", "Ward Summary"},
			{"p1", "x"},
		}),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidationError, apperrors.GetCode(err))
}

func TestUnknownRepeatedGroupColumnEmitsOneKey(t *testing.T) {
	rt, data := runJSON(t, newAggregator(t), [][]interface{}{
		{"PatientID", "Dept", "Ward Summary"},
		{"p1", "Cardio", "x"},
		{"p2", "Cardio", "x"},
	}, []string{"Dept", "Dept"})

	assert.Equal(t, types.ReportUnknown, rt)
	// exact match: JSONEq would hide a repeated key
	assert.Equal(t, `[{"Ward":null,"Unit":null,"Dept":"Cardio","Count":2}]`, data)
}

func TestUnknownGroupedByCountIsValidationError(t *testing.T) {
	_, err := newAggregator(t).Run(context.Background(), Request{
		Data: testkit.BuildXLSX(t, [][]interface{}{
			{"PatientID", "Count", "Ward Summary"},
			{"p1", "x", "x"},
			{"p2", "x", "x"},
		}),
		GroupBy: []string{"Count"},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidationError, apperrors.GetCode(err))
	assert.Contains(t, err.Error(), `"Count"`)
}

func TestRunWithStatsReportsHeaderOffset(t *testing.T) {
	_, stats, err := newAggregator(t).RunWithStats(context.Background(), Request{
		Data: testkit.BuildXLSX(t, testkit.InpatientRows()),
	})
	require.NoError(t, err)

	assert.Equal(t, "xlsx", stats.Format)
	assert.Equal(t, 2, stats.HeaderOffset)
	assert.Equal(t, 3, stats.RowsLoaded)
	assert.Equal(t, 1, stats.Groups)
}

func TestRunHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newAggregator(t).Run(ctx, Request{Data: testkit.BuildXLSX(t, testkit.InpatientRows())})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecodeBase64(t *testing.T) {
	raw := []byte{0x50, 0x4B, 0x03, 0x04, 0xFF, 0xFE}
	std := base64.StdEncoding.EncodeToString(raw)

	for name, payload := range map[string]string{
		"standard":   std,
		"whitespace": "  " + std[:4] + "\n" + std[4:] + "\n",
		"unpadded":   base64.RawStdEncoding.EncodeToString(raw),
		"url safe":   base64.URLEncoding.EncodeToString(raw),
		"data uri":   "data:application/vnd.ms-excel;base64," + std,
	} {
		t.Run(name, func(t *testing.T) {
			got, err := DecodeBase64(payload)
			require.NoError(t, err)
			assert.Equal(t, raw, got)
		})
	}
}

func TestDecodeBase64Malformed(t *testing.T) {
	for _, payload := range []string{"", "   ", "not*base64!", "%%%%"} {
		_, err := DecodeBase64(payload)
		require.Error(t, err, payload)
		assert.Equal(t, apperrors.CodeDecodeError, apperrors.GetCode(err))
	}
}

func TestParseGroupBy(t *testing.T) {
	assert.Equal(t, []string{"Ward", "Unit"}, ParseGroupBy(" Ward , ,Unit,"))
	assert.Nil(t, ParseGroupBy(""))
	assert.Nil(t, ParseGroupBy(" , "))
}
