package profiler

import (
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"civicprofile/domain/dataset"
	"civicprofile/domain/profiling"
)

// DistributionAnalyzer summarizes numeric columns
type DistributionAnalyzer struct{}

// NewDistributionAnalyzer creates a new distribution analyzer
func NewDistributionAnalyzer() *DistributionAnalyzer {
	return &DistributionAnalyzer{}
}

// SummarizeColumn collects the numeric values of col and summarizes them.
// It returns false when the column holds no numeric values.
func (da *DistributionAnalyzer) SummarizeColumn(col dataset.Column) (profiling.NumericSummary, bool, error) {
	data := make([]float64, 0, col.Len())
	for i := 0; i < col.Len(); i++ {
		if f, ok := col.Value(i).AsFloat64(); ok {
			data = append(data, f)
		}
	}
	if len(data) == 0 {
		return profiling.NumericSummary{Column: col.Name()}, false, nil
	}

	summary, err := da.Summarize(data)
	if err != nil {
		return profiling.NumericSummary{Column: col.Name()}, false, err
	}
	summary.Column = col.Name()
	return summary, true, nil
}

// Summarize computes count, moments and quartiles for data
func (da *DistributionAnalyzer) Summarize(data []float64) (profiling.NumericSummary, error) {
	summary := profiling.NumericSummary{Count: len(data)}

	mean, err := stats.Mean(data)
	if err != nil {
		return summary, err
	}

	min, err := stats.Min(data)
	if err != nil {
		return summary, err
	}

	max, err := stats.Max(data)
	if err != nil {
		return summary, err
	}

	median, err := stats.Median(data)
	if err != nil {
		return summary, err
	}

	q25, err := stats.Percentile(data, 25)
	if err != nil {
		return summary, err
	}

	q75, err := stats.Percentile(data, 75)
	if err != nil {
		return summary, err
	}

	summary.Mean = mean
	summary.Min = min
	summary.Max = max
	summary.Median = median
	summary.Q25 = q25
	summary.Q75 = q75

	// Sample statistics need at least two observations
	if len(data) > 1 {
		stdDev, err := stats.StandardDeviationSample(data)
		if err != nil {
			return summary, err
		}
		summary.StdDev = stdDev
		if stdDev > 0 {
			summary.Skewness = stat.Skew(data, nil)
		}
	}

	return summary, nil
}
