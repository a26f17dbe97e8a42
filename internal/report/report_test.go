package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicprofile/domain/core"
	"civicprofile/domain/profiling"
)

func sampleProfile() profiling.DatasetProfile {
	lo := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	hi := time.Date(2021, 6, 15, 0, 0, 0, 0, time.UTC)
	return profiling.DatasetProfile{
		Dataset: "ordinance_violations",
		Title:   "Ordinance Violations",
		Rows:    4,
		Schema: []profiling.ColumnProfile{
			{Name: "VIOLATION ORDINANCE", InferredType: profiling.TypeText, NonMissing: 3, Distinct: 2, MissingRatio: profiling.Defined(0.25)},
			{Name: "VIOLATION DATE", InferredType: profiling.TypeDate, NonMissing: 2, Distinct: 2, MissingRatio: profiling.Defined(0.5)},
		},
		Missing: []profiling.MissingEntry{
			{Column: "VIOLATION ORDINANCE", Percent: profiling.Defined(25)},
			{Column: "VIOLATION DATE", Percent: profiling.Defined(50)},
		},
		Dates: []profiling.DateRange{
			{Column: "VIOLATION DATE", Min: &lo, Max: &hi, Count: 2},
			{Column: "LAST MODIFIED DATE"},
		},
		Numeric: []profiling.NumericSummary{
			{Column: "FINE", Count: 3, Mean: 150, StdDev: 50, Min: 100, Q25: 100, Median: 150, Q75: 200, Max: 200},
		},
		Frequency: &profiling.FrequencyTable{
			Column:  "VIOLATION ORDINANCE",
			Limit:   50,
			Counted: 3,
			Entries: []profiling.ValueCount{{Label: "Weeds", Count: 2}, {Label: "Trash", Count: 1}},
		},
		Points: &profiling.PointSet{
			Year:    2021,
			Points:  []profiling.Point{{Longitude: -87.6, Latitude: 41.8, Category: "Weeds"}},
			Groups:  []profiling.PointGroup{{Category: "Weeds", Points: []profiling.Point{{Longitude: -87.6, Latitude: 41.8}}}},
			Dropped: 1,
		},
	}
}

func sampleDocument() Document {
	return Document{
		RunID:       core.RunID("run-1"),
		GeneratedAt: time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
		Profiles:    []profiling.DatasetProfile{sampleProfile()},
	}
}

func TestRender_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatTable, sampleDocument()))

	out := buf.String()
	assert.Contains(t, out, "Run run-1")
	assert.Contains(t, out, "Ordinance Violations: 4 rows, 2 columns")
	assert.Contains(t, out, "Top 50 VIOLATION ORDINANCE")
	assert.Contains(t, out, "Weeds")
	assert.Contains(t, out, "2019-01-01")
	assert.Contains(t, out, "2021-06-15")
	assert.Contains(t, out, "25.00")
	assert.Contains(t, out, "Latest-year points (2021)")
}

func TestMarkdown_Sections(t *testing.T) {
	md := Markdown(sampleDocument())

	assert.True(t, strings.HasPrefix(md, "# Municipal dataset profile"))
	assert.Contains(t, md, "## Ordinance Violations")
	for _, title := range []string{"### Schema", "### Missing values", "### Date coverage",
		"### Numeric summary", "### Top 50 VIOLATION ORDINANCE", "### Latest-year points (2021)"} {
		assert.Contains(t, md, title)
	}
	assert.Contains(t, md, "| Weeds |")
	assert.Contains(t, md, "n/a")
}

func TestMarkdown_UndefinedMissing(t *testing.T) {
	p := profiling.DatasetProfile{
		Dataset: "empty",
		Missing: []profiling.MissingEntry{{Column: "A", Percent: profiling.Undefined()}},
	}
	md := Markdown(Document{Profiles: []profiling.DatasetProfile{p}})

	assert.Contains(t, md, "| A | n/a |")
	assert.NotContains(t, md, "Run `")
}

func TestHTML(t *testing.T) {
	out := string(HTML(sampleDocument()))

	assert.Contains(t, out, "<title>Municipal dataset profile</title>")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "Ordinance Violations")
	assert.Contains(t, out, "Weeds")
}

func TestHTML_DropsMarkupFromDatasetValues(t *testing.T) {
	p := sampleProfile()
	p.Title = `<img src=x onerror="alert(1)">Violations`
	p.Frequency.Entries = []profiling.ValueCount{
		{Label: "<script>alert(1)</script>", Count: 2},
		{Label: "Trash", Count: 1},
	}
	doc := Document{Profiles: []profiling.DatasetProfile{p}}

	out := string(HTML(doc))

	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "<img")
	assert.NotContains(t, out, `onerror="alert(1)"`)
	assert.Contains(t, out, "Trash")
	assert.Contains(t, Markdown(doc), "<script>alert(1)</script>")
}

func TestRender_JSON(t *testing.T) {
	doc := sampleDocument()
	doc.Profiles[0].Missing[1].Percent = profiling.Undefined()

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatJSON, doc))

	var decoded struct {
		RunID    string `json:"run_id"`
		Datasets []struct {
			Dataset string `json:"dataset"`
			Missing []struct {
				Column  string   `json:"column"`
				Percent *float64 `json:"percent"`
			} `json:"missing"`
		} `json:"datasets"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	require.Len(t, decoded.Datasets, 1)
	require.Len(t, decoded.Datasets[0].Missing, 2)
	require.NotNil(t, decoded.Datasets[0].Missing[0].Percent)
	assert.Equal(t, 25.0, *decoded.Datasets[0].Missing[0].Percent)
	assert.Nil(t, decoded.Datasets[0].Missing[1].Percent)
}

func TestRender_UnknownFormat(t *testing.T) {
	err := Render(&bytes.Buffer{}, "pdf", sampleDocument())
	require.Error(t, err)
	assert.True(t, core.IsInvalidInputError(err))
}

func TestRenderProfile_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderProfile(&buf, FormatJSON, sampleProfile()))
	assert.Contains(t, buf.String(), `"dataset": "ordinance_violations"`)
}

func TestExtensionAndContentType(t *testing.T) {
	assert.Equal(t, ".md", Extension(FormatMarkdown))
	assert.Equal(t, ".html", Extension(FormatHTML))
	assert.Equal(t, ".txt", Extension(FormatTable))
	assert.Equal(t, "application/json", ContentType(FormatJSON))
}
