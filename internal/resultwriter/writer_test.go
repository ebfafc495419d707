package resultwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/ward-census-aggregator/internal/types"
)

func deceasedResult() *types.Result {
	return &types.Result{
		ReportType: types.ReportDeceased,
		Data: []types.AggregateRow{
			{Unit: types.StringPtr("ICU"), Count: 2},
			{Unit: types.StringPtr("R&D <east>"), Count: 1},
		},
	}
}

func unknownResult() *types.Result {
	return &types.Result{
		ReportType: types.ReportUnknown,
		Data: []types.AggregateRow{
			{Extra: []types.GroupValue{{Column: "Dept Name", Value: types.StringPtr("Cardio")}}, Count: 3},
			{Extra: []types.GroupValue{{Column: "Dept Name", Value: nil}}, Count: 1},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"json", " CSV ", "Xml"} {
		f, err := ParseFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, "."+strings.ToLower(strings.TrimSpace(name)), f.Extension())
	}

	_, err := ParseFormat("parquet")
	assert.Error(t, err)
}

func TestWriteJSONMatchesAPIShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, deceasedResult(), FormatJSON))

	assert.JSONEq(t, `{
		"report_type": "Deceased",
		"data": [
			{"Ward": null, "Unit": "ICU", "Count": 2},
			{"Ward": null, "Unit": "R&D <east>", "Count": 1}
		]
	}`, buf.String())
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, unknownResult(), FormatCSV))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Ward", "Unit", "Dept Name", "Count"},
		{"", "", "Cardio", "3"},
		{"", "", "", "1"},
	}, records)
}

func TestWriteCSVEmptyResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, &types.Result{ReportType: types.ReportInpatients}, FormatCSV))
	assert.Equal(t, "Ward,Unit,Count\n", buf.String())
}

func TestWriteXML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, deceasedResult(), FormatXML))

	want := `<?xml version="1.0" encoding="UTF-8"?>
<aggregate report_type="Deceased">
  <group n="1">
    <Ward nil="true"/>
    <Unit>ICU</Unit>
    <Count>2</Count>
  </group>
  <group n="2">
    <Ward nil="true"/>
    <Unit>R&amp;D &lt;east&gt;</Unit>
    <Count>1</Count>
  </group>
</aggregate>
`
	assert.Equal(t, want, buf.String())
}

func TestWriteXMLSanitizesColumnNames(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.IncludeXMLDeclaration = false
	require.NoError(t, WriteWithOptions(&buf, unknownResult(), FormatXML, opts))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, `<aggregate report_type="Unknown">`))
	assert.Contains(t, out, "<Dept_Name>Cardio</Dept_Name>")
	assert.Contains(t, out, `<Dept_Name nil="true"/>`)
}

func TestElementName(t *testing.T) {
	assert.Equal(t, "Ward", elementName("Ward"))
	assert.Equal(t, "Disch_Unit", elementName("Disch Unit"))
	assert.Equal(t, "_2024", elementName("2024"))
	assert.Equal(t, "_xmlns", elementName("xmlns"))
	assert.Equal(t, "_", elementName(""))
}

func TestWriteRejectsNilAndUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, nil, FormatJSON))
	assert.Error(t, Write(&buf, deceasedResult(), Format("yaml")))
}

func TestJSONOutputDecodes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, unknownResult(), FormatJSON))

	var doc struct {
		ReportType string                   `json:"report_type"`
		Data       []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "Unknown", doc.ReportType)
	require.Len(t, doc.Data, 2)
	assert.Equal(t, "Cardio", doc.Data[0]["Dept Name"])
	assert.Nil(t, doc.Data[1]["Dept Name"])
}
