package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"civicprofile/domain/core"
	"civicprofile/domain/profiling"
	"civicprofile/internal/api"
	"civicprofile/internal/config"
	"civicprofile/internal/errors"
	"civicprofile/internal/geo"
	"civicprofile/internal/report"
)

func newProfileCmd() *cobra.Command {
	var (
		entry                    config.DatasetEntry
		contains                 string
		caseSensitive, onlyMatch bool
		format                   string
		geoDate, lonCol, latCol  string
	)

	cmd := &cobra.Command{
		Use:   "profile [file]",
		Short: "Profile a single CSV or XLSX file",
		Long: `Profile one file: schema, missing values, date coverage, numeric summary
and (with --category-col) a top-N frequency table.

Column names may contain spaces and commas; repeat a flag once per column.

Example:
  civicprofile profile 311.csv --date-col CREATED_DATE --category-col SR_TYPE \
    --exclude "311 INFORMATION ONLY CALL" --top 50 --format markdown`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry.Path = args[0]
			if entry.Name == "" {
				entry.Name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			if contains != "" {
				entry.Contains = &config.KeywordFilter{Keyword: contains, CaseSensitive: caseSensitive, Only: onlyMatch}
			}
			if geoDate != "" || lonCol != "" || latCol != "" {
				entry.Geo = &geo.Spec{
					DateColumn:      geoDate,
					LongitudeColumn: lonCol,
					LatitudeColumn:  latCol,
					CategoryColumn:  entry.CategoryColumn,
				}
			}
			if err := entry.Validate(); err != nil {
				return err
			}

			env, err := newEnvironment(false)
			if err != nil {
				return err
			}
			defer env.Close()
			if format == "" {
				format = env.cfg.Report.Format
			}
			if !config.IsFormat(format) {
				return errors.InvalidInput("format must be one of " + strings.Join(config.Formats, ", "))
			}

			p, err := env.service.ProfileEntry(cmd.Context(), entry)
			if err != nil {
				return err
			}
			return report.Render(cmd.OutOrStdout(), format, report.Document{
				RunID:       core.NewRunID(),
				GeneratedAt: time.Now().UTC(),
				Profiles:    []profiling.DatasetProfile{p},
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&entry.Name, "name", "", "Dataset name (default: file name)")
	f.StringVar(&entry.Sheet, "sheet", "", "XLSX sheet (default: first sheet)")
	f.StringArrayVar(&entry.DateColumns, "date-col", nil, "Date column (repeatable)")
	f.StringArrayVar(&entry.TextColumns, "text-col", nil, "Column kept verbatim as text (repeatable)")
	f.StringVar(&entry.CategoryColumn, "category-col", "", "Column for the frequency table")
	f.StringArrayVar(&entry.ExcludeLabels, "exclude", nil, "Category label to exclude (repeatable)")
	f.StringVar(&contains, "contains", "", "Exclude category labels containing this keyword")
	f.BoolVar(&caseSensitive, "case-sensitive", false, "Match --contains case-sensitively")
	f.BoolVar(&onlyMatch, "only-matching", false, "Keep only labels matching --contains instead of excluding them")
	f.IntVar(&entry.TopN, "top", 0, "Frequency table length (default: TOP_N)")
	f.IntVar(&entry.RowLimit, "limit", 0, "Read at most this many rows")
	f.StringVar(&geoDate, "geo-date-col", "", "Date column for the latest-year point filter")
	f.StringVar(&lonCol, "lon-col", "", "Longitude column")
	f.StringVar(&latCol, "lat-col", "", "Latitude column")
	f.StringVar(&format, "format", "", "Output format: table|markdown|html|json (default: REPORT_FORMAT)")
	return cmd
}

func newReportCmd() *cobra.Command {
	var manifestPath, outDir, format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Profile every dataset in the manifest",
		Long: `Load and profile every manifest dataset in parallel (MAX_PARALLEL) and
render the combined report. Without --manifest the built-in manifest for
building violations, ordinance violations and 311 service requests is used.

With --out, one report file per dataset plus a combined report and a
GeoJSON file per geo-enabled dataset are written to the directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if manifestPath == "" {
				manifestPath = cfg.Report.ManifestPath
			}
			if outDir == "" {
				outDir = cfg.Report.OutputDir
			}
			if format == "" {
				format = cfg.Report.Format
			}
			if !config.IsFormat(format) {
				return errors.InvalidInput("format must be one of " + strings.Join(config.Formats, ", "))
			}

			manifest, err := config.LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			env, err := newEnvironment(manifest.HasQueries())
			if err != nil {
				return err
			}
			defer env.Close()

			doc, err := env.service.Run(cmd.Context(), manifest)
			if err != nil {
				return err
			}
			if outDir == "" {
				return report.Render(cmd.OutOrStdout(), format, *doc)
			}
			if err := writeReportFiles(outDir, format, doc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d dataset reports to %s (run %s)\n", len(doc.Profiles), outDir, doc.RunID)
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Dataset manifest YAML (default: PROFILE_MANIFEST or built-in)")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (default: OUTPUT_DIR or stdout)")
	cmd.Flags().StringVar(&format, "format", "", "Output format: table|markdown|html|json (default: REPORT_FORMAT)")
	return cmd
}

// writeReportFiles writes report.<ext>, <dataset>.<ext> and
// <dataset>_points.geojson into dir
func writeReportFiles(dir, format string, doc *report.Document) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	ext := report.Extension(format)

	if err := writeFile(filepath.Join(dir, "report"+ext), func(w io.Writer) error {
		return report.Render(w, format, *doc)
	}); err != nil {
		return err
	}

	for _, p := range doc.Profiles {
		p := p
		if err := writeFile(filepath.Join(dir, p.Dataset+ext), func(w io.Writer) error {
			return report.Render(w, format, report.Document{RunID: doc.RunID, GeneratedAt: doc.GeneratedAt, Profiles: []profiling.DatasetProfile{p}})
		}); err != nil {
			return err
		}
		if p.Points == nil {
			continue
		}
		if err := writeFile(filepath.Join(dir, p.Dataset+"_points.geojson"), func(w io.Writer) error {
			return geo.WriteGeoJSON(w, *p.Points)
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func newServeCmd() *cobra.Command {
	var manifestPath, port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve dataset profiles over HTTP",
		Long: `Serve read-only JSON, HTML/markdown reports and GeoJSON for every manifest
dataset. Profiles are built on first request and cached; add ?refresh=true
to rebuild one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if manifestPath == "" {
				manifestPath = cfg.Report.ManifestPath
			}
			if port == "" {
				port = cfg.Server.Port
			}

			manifest, err := config.LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			env, err := newEnvironment(manifest.HasQueries())
			if err != nil {
				return err
			}
			defer env.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := api.NewServer(manifest, env.service, env.logger)
			return srv.Start(ctx, ":"+port)
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Dataset manifest YAML (default: PROFILE_MANIFEST or built-in)")
	cmd.Flags().StringVar(&port, "port", "", "Listen port (default: PORT or 8080)")
	return cmd
}
