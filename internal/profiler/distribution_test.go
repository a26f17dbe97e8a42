package profiler

import (
	"testing"

	"civicprofile/domain/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	da := NewDistributionAnalyzer()

	summary, err := da.Summarize([]float64{4, 1, 3, 2})
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Count)
	assert.InDelta(t, 2.5, summary.Mean, 1e-9)
	assert.InDelta(t, 2.5, summary.Median, 1e-9)
	assert.Equal(t, 1.0, summary.Min)
	assert.Equal(t, 4.0, summary.Max)
	assert.InDelta(t, 1.2910, summary.StdDev, 1e-4)
	assert.InDelta(t, 0.0, summary.Skewness, 1e-9)
	assert.LessOrEqual(t, summary.Q25, summary.Median)
	assert.GreaterOrEqual(t, summary.Q75, summary.Median)
}

func TestSummarizeSingleValue(t *testing.T) {
	summary, err := NewDistributionAnalyzer().Summarize([]float64{7})
	require.NoError(t, err)
	assert.Equal(t, 7.0, summary.Mean)
	assert.Equal(t, 0.0, summary.StdDev)
	assert.Equal(t, 0.0, summary.Skewness)
}

func TestSummarizeColumnSkipsNonNumeric(t *testing.T) {
	col := dataset.NewColumn("WARD", []dataset.Value{
		dataset.NewInteger(10), dataset.Missing(), dataset.NewFloat(20), dataset.NewText("n/a"),
	})

	summary, ok, err := NewDistributionAnalyzer().SummarizeColumn(col)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "WARD", summary.Column)
	assert.Equal(t, 2, summary.Count)
	assert.InDelta(t, 15.0, summary.Mean, 1e-9)

	_, ok, err = NewDistributionAnalyzer().SummarizeColumn(dataset.NewColumn("E", []dataset.Value{dataset.Missing()}))
	require.NoError(t, err)
	assert.False(t, ok)
}
