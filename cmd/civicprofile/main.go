package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"civicprofile/adapters/coercer"
	"civicprofile/adapters/postgres"
	"civicprofile/adapters/source"
	"civicprofile/app"
	"civicprofile/internal"
	"civicprofile/internal/config"
	"civicprofile/internal/errors"
	"civicprofile/internal/profiler"
	"civicprofile/ports"
)

func main() {
	// Load environment variables from .env file
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorMessage(err))
		os.Exit(1)
	}
}

// errorMessage prefixes coded failures with their error code
func errorMessage(err error) string {
	if errors.IsAppError(err) {
		return fmt.Sprintf("Error [%s]: %v", errors.GetCode(err), err)
	}
	return fmt.Sprintf("Error: %v", err)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "civicprofile",
		Short:         "Descriptive profiles of municipal violation and 311 datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newProfileCmd(),
		newReportCmd(),
		newServeCmd(),
	)
	return rootCmd
}

// environment is the wiring shared by every command
type environment struct {
	cfg     *config.Config
	logger  *slog.Logger
	service *app.ReportService
	db      *sqlx.DB
}

// newEnvironment loads configuration and builds the report service. A
// database connection is opened only when needsDB is set.
func newEnvironment(needsDB bool) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := internal.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	c := coercer.NewTypeCoercer(coercer.DefaultCoercionConfig())
	files := source.NewFileLoader(c, logger)

	env := &environment{cfg: cfg, logger: logger}
	var queries ports.DatasetLoader
	if needsDB {
		db, err := initDatabase(cfg)
		if err != nil {
			return nil, err
		}
		env.db = db
		queries = postgres.NewDatasetLoader(db, c, logger)
	}

	env.service = app.NewReportService(files, queries, profiler.NewTabularProfiler(logger), app.ReportSettings{
		MaxParallel: cfg.Report.MaxParallel,
		TopN:        cfg.Report.TopN,
		RowLimit:    cfg.Report.RowLimit,
	}, logger)
	return env, nil
}

func (e *environment) Close() {
	if e.db != nil {
		_ = e.db.Close()
	}
}

// initDatabase opens the PostgreSQL connection used by query-backed datasets
func initDatabase(cfg *config.Config) (*sqlx.DB, error) {
	if cfg.Database.URL == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required for query-backed datasets")
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, errors.WithCode(errors.CodeLoadError, fmt.Errorf("failed to connect to database: %w", err))
	}
	return db, nil
}
