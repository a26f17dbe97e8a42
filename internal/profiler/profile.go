package profiler

import (
	"log/slog"

	"civicprofile/domain/dataset"
	"civicprofile/domain/profiling"
	"civicprofile/internal/geo"
)

// DefaultTopN is the length of the frequency table in reports
const DefaultTopN = 50

// Options selects which summaries Profile computes beyond the schema and
// missing-value tables
type Options struct {
	DateColumns    []string
	CategoryColumn string
	TopN           int
	Exclude        profiling.RowPredicate
	Geo            *geo.Spec
}

// TabularProfiler computes every summary of a dataset. It holds no per-call
// state and may be shared between goroutines.
type TabularProfiler struct {
	logger       *slog.Logger
	distribution *DistributionAnalyzer
}

// NewTabularProfiler creates a profiler; a nil logger uses slog.Default
func NewTabularProfiler(logger *slog.Logger) *TabularProfiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TabularProfiler{
		logger:       logger,
		distribution: NewDistributionAnalyzer(),
	}
}

// Profile runs the schema, missing, date, numeric, frequency and geo
// summaries over ds. Any schema error aborts the whole profile.
func (p *TabularProfiler) Profile(ds *dataset.Dataset, opts Options) (profiling.DatasetProfile, error) {
	log := p.logger.With("dataset", ds.Name())
	if ds.RowCount() == 0 {
		log.Warn("[Profiler] dataset has no rows; ratios will be undefined")
	}

	result := profiling.DatasetProfile{
		Dataset: ds.Name(),
		Rows:    ds.RowCount(),
		Schema:  Schema(ds),
		Missing: MissingTable(ds),
	}

	dates, err := DateCoverage(ds, opts.DateColumns)
	if err != nil {
		return profiling.DatasetProfile{}, err
	}
	result.Dates = dates

	for i, col := range ds.Columns() {
		t := result.Schema[i].InferredType
		if t != profiling.TypeInteger && t != profiling.TypeFloat {
			continue
		}
		summary, ok, err := p.distribution.SummarizeColumn(col)
		if err != nil {
			log.Warn("[Profiler] numeric summary failed", "column", col.Name(), "error", err)
			continue
		}
		if ok {
			result.Numeric = append(result.Numeric, summary)
		}
	}

	if opts.CategoryColumn != "" {
		n := opts.TopN
		if n <= 0 {
			n = DefaultTopN
		}
		table, err := TopNFrequency(ds, opts.CategoryColumn, n, opts.Exclude)
		if err != nil {
			return profiling.DatasetProfile{}, err
		}
		result.Frequency = &table
	}

	if opts.Geo != nil {
		points, err := geo.LatestYearPoints(ds, *opts.Geo)
		if err != nil {
			return profiling.DatasetProfile{}, err
		}
		result.Points = &points
	}

	log.Debug("[Profiler] profile complete",
		"rows", result.Rows,
		"columns", len(result.Schema),
		"numeric_columns", len(result.Numeric))
	return result, nil
}
