package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"civicprofile/domain/core"
	"civicprofile/domain/dataset"
	"civicprofile/domain/profiling"
	"civicprofile/internal/config"
	"civicprofile/internal/errors"
	"civicprofile/internal/profiler"
	"civicprofile/internal/report"
	"civicprofile/ports"
)

// ReportService loads and profiles every dataset of a manifest
type ReportService struct {
	files    ports.DatasetLoader
	queries  ports.DatasetLoader // nil when no database is configured
	profiler *profiler.TabularProfiler
	settings ReportSettings
	logger   *slog.Logger
	now      func() time.Time
}

// ReportSettings are the run-wide knobs taken from the environment
type ReportSettings struct {
	MaxParallel int
	TopN        int
	RowLimit    int
}

// NewReportService creates a report service. queries may be nil when no
// manifest entry is query-backed.
func NewReportService(files, queries ports.DatasetLoader, prof *profiler.TabularProfiler, settings ReportSettings, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	if prof == nil {
		prof = profiler.NewTabularProfiler(logger)
	}
	if settings.MaxParallel <= 0 {
		settings.MaxParallel = 1
	}
	if settings.TopN <= 0 {
		settings.TopN = profiler.DefaultTopN
	}
	return &ReportService{
		files:    files,
		queries:  queries,
		profiler: prof,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// Run profiles every manifest entry concurrently, bounded by MaxParallel.
// Profiles come back in manifest order. The first failure cancels the
// remaining work and is returned with the dataset name attached.
func (s *ReportService) Run(ctx context.Context, manifest *config.Manifest) (*report.Document, error) {
	runID := core.NewRunID()
	start := s.now()
	s.logger.Info("[ReportService] run started",
		"run_id", runID.String(),
		"datasets", len(manifest.Datasets),
		"max_parallel", s.settings.MaxParallel)

	profiles := make([]profiling.DatasetProfile, len(manifest.Datasets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.settings.MaxParallel)

	for i, entry := range manifest.Datasets {
		i, entry := i, entry
		g.Go(func() error {
			p, err := s.ProfileEntry(gctx, entry)
			if err != nil {
				return err
			}
			profiles[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("[ReportService] run failed", "run_id", runID.String(), "error", err)
		return nil, err
	}

	s.logger.Info("[ReportService] run complete",
		"run_id", runID.String(),
		"duration_ms", s.now().Sub(start).Milliseconds())
	return &report.Document{
		RunID:       runID,
		GeneratedAt: start.UTC(),
		Profiles:    profiles,
	}, nil
}

// ProfileEntry loads one manifest entry and profiles it
func (s *ReportService) ProfileEntry(ctx context.Context, entry config.DatasetEntry) (profiling.DatasetProfile, error) {
	ds, err := s.load(ctx, entry)
	if err != nil {
		return profiling.DatasetProfile{}, err
	}
	return s.ProfileDataset(ds, entry)
}

// ProfileDataset profiles an already loaded dataset using the entry's column roles
func (s *ReportService) ProfileDataset(ds *dataset.Dataset, entry config.DatasetEntry) (profiling.DatasetProfile, error) {
	p, err := s.profiler.Profile(ds, ProfileOptions(entry, s.settings.TopN))
	if err != nil {
		return profiling.DatasetProfile{}, errors.Wrapf(err, "failed to profile dataset %s", entry.Name)
	}
	p.Title = entry.Title
	return p, nil
}

func (s *ReportService) load(ctx context.Context, entry config.DatasetEntry) (*dataset.Dataset, error) {
	req := LoadRequest(entry, s.settings.RowLimit)
	loader := s.files
	if req.IsQuery() {
		loader = s.queries
	}
	if loader == nil {
		return nil, errors.ConfigInvalid("dataset " + entry.Name + " needs a database connection (DATABASE_URL)")
	}

	ds, err := loader.Load(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.LoadError(entry.Name, err)
	}
	return ds, nil
}

// LoadRequest converts a manifest entry into a loader request. A per-entry
// row limit overrides the run-wide one.
func LoadRequest(entry config.DatasetEntry, rowLimit int) ports.LoadRequest {
	if entry.RowLimit > 0 {
		rowLimit = entry.RowLimit
	}
	return ports.LoadRequest{
		Name:        entry.Name,
		Path:        entry.Path,
		Query:       entry.Query,
		Sheet:       entry.Sheet,
		DateColumns: entry.DateColumns,
		TextColumns: entry.TextColumns,
		RowLimit:    rowLimit,
	}
}

// ProfileOptions derives profiler options from a manifest entry
func ProfileOptions(entry config.DatasetEntry, defaultTopN int) profiler.Options {
	topN := entry.TopN
	if topN <= 0 {
		topN = defaultTopN
	}

	var preds []profiling.RowPredicate
	if len(entry.ExcludeLabels) > 0 {
		preds = append(preds, profiler.ExcludeLabels(entry.CategoryColumn, entry.ExcludeLabels...))
	}
	if f := entry.Contains; f != nil {
		match := profiler.LabelContains(entry.CategoryColumn, f.Keyword, f.CaseSensitive)
		if f.Only {
			match = profiler.Not(match)
		}
		preds = append(preds, match)
	}

	return profiler.Options{
		DateColumns:    entry.DateColumns,
		CategoryColumn: entry.CategoryColumn,
		TopN:           topN,
		Exclude:        profiler.AnyOf(preds...),
		Geo:            entry.Geo,
	}
}
