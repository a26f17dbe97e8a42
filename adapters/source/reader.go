package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"civicprofile/adapters/coercer"
	"civicprofile/domain/dataset"
)

// ctxCheckInterval is how many rows are read between cancellation checks
const ctxCheckInterval = 1000

// typeSampleSize is how many raw cells per inferred column feed the type analysis
const typeSampleSize = 500

// Options controls how raw cells become typed values
type Options struct {
	DateColumns []string // parsed as dates; unparseable cells become missing
	TextColumns []string // kept verbatim as text
	Sheet       string   // xlsx only; defaults to the first sheet
	RowLimit    int      // 0 reads every row
}

// LoadStats reports what happened while reading a file. TypeAnalysis covers
// inferred columns only; declared date and text columns are skipped.
type LoadStats struct {
	Rows          int                             `json:"rows"`
	Columns       int                             `json:"columns"`
	UnparsedDates map[string]int                  `json:"unparsed_dates,omitempty"`
	TypeAnalysis  map[string]coercer.TypeAnalysis `json:"type_analysis,omitempty"`
	Duration      time.Duration                   `json:"duration"`
}

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	coercer  *coercer.TypeCoercer
	logger   *slog.Logger
}

// NewDataReader creates a reader for a .csv or .xlsx file
func NewDataReader(filePath string, c *coercer.TypeCoercer, logger *slog.Logger) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "csv"
	if ext == ".xlsx" || ext == ".xlsm" {
		fileType = "xlsx"
	}
	if c == nil {
		c = coercer.NewTypeCoercer(coercer.DefaultCoercionConfig())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DataReader{filePath: filePath, fileType: fileType, coercer: c, logger: logger}
}

// ReadDataset reads the file into an immutable Dataset named name
func (r *DataReader) ReadDataset(ctx context.Context, name string, opts Options) (*dataset.Dataset, LoadStats, error) {
	start := time.Now()
	r.logger.Info("[DataReader] reading file", "dataset", name, "type", r.fileType, "path", r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, LoadStats{}, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var (
		ds    *dataset.Dataset
		stats LoadStats
		err   error
	)
	switch r.fileType {
	case "csv":
		ds, stats, err = r.readCSV(ctx, name, opts)
	case "xlsx":
		ds, stats, err = r.readExcel(ctx, name, opts)
	default:
		err = fmt.Errorf("unsupported file type: %s", r.fileType)
	}
	if err != nil {
		return nil, LoadStats{}, err
	}

	stats.Duration = time.Since(start)
	r.logger.Info("[DataReader] file processed",
		"dataset", name,
		"columns", stats.Columns,
		"rows", stats.Rows,
		"duration_ms", stats.Duration.Milliseconds())
	for col, n := range stats.UnparsedDates {
		r.logger.Warn("[DataReader] unparseable dates stored as missing", "dataset", name, "column", col, "count", n)
	}
	for col, analysis := range stats.TypeAnalysis {
		r.logger.Debug("[DataReader] column type analysis", "dataset", name, "column", col, "analysis", analysis.String())
		if analysis.RecommendedKind == dataset.KindDate {
			r.logger.Info("[DataReader] column looks like dates but is not declared as a date column",
				"dataset", name, "column", col, "timestamp_ratio", analysis.TimestampRatio)
		}
	}
	return ds, stats, nil
}

// rowSource yields raw string rows; io.EOF ends the stream
type rowSource func() ([]string, error)

func (r *DataReader) readCSV(ctx context.Context, name string, opts Options) (*dataset.Dataset, LoadStats, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = false

	return r.build(ctx, name, opts, reader.Read)
}

func (r *DataReader) readExcel(ctx context.Context, name string, opts Options) (*dataset.Dataset, LoadStats, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, LoadStats{}, fmt.Errorf("Excel file has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	next := func() ([]string, error) {
		if !rows.Next() {
			if err := rows.Error(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		return rows.Columns()
	}
	return r.build(ctx, name, opts, next)
}

// build consumes the header row and every data row from next
func (r *DataReader) build(ctx context.Context, name string, opts Options, next rowSource) (*dataset.Dataset, LoadStats, error) {
	header, err := next()
	if errors.Is(err, io.EOF) {
		return nil, LoadStats{}, fmt.Errorf("%s file has no header row", strings.ToUpper(r.fileType))
	}
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("failed to read header: %w", err)
	}

	headers := normalizeHeaders(header)
	kinds := r.columnRoles(headers, opts)
	builder := dataset.NewBuilder(name, headers)
	stats := LoadStats{Columns: len(headers), UnparsedDates: make(map[string]int)}
	samples := make(map[int][]string)

	for {
		if opts.RowLimit > 0 && stats.Rows >= opts.RowLimit {
			break
		}
		if stats.Rows%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, LoadStats{}, err
			}
		}

		raw, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, LoadStats{}, fmt.Errorf("failed to read row %d: %w", stats.Rows+2, err)
		}

		row := make([]dataset.Value, len(headers))
		for j := range headers {
			cell := ""
			if j < len(raw) {
				cell = raw[j]
			}
			switch kinds[j] {
			case roleDate:
				v, failed := r.coercer.CoerceDate(cell)
				if failed {
					stats.UnparsedDates[headers[j]]++
				}
				row[j] = v
			case roleText:
				row[j] = r.coercer.CoerceText(cell)
			default:
				if stats.Rows < typeSampleSize {
					samples[j] = append(samples[j], cell)
				}
				row[j] = r.coercer.CoerceValue(cell)
			}
		}
		builder.AppendRow(row)
		stats.Rows++
	}

	ds, err := builder.Build()
	if err != nil {
		return nil, LoadStats{}, err
	}
	if len(stats.UnparsedDates) == 0 {
		stats.UnparsedDates = nil
	}
	if len(samples) > 0 {
		stats.TypeAnalysis = make(map[string]coercer.TypeAnalysis, len(samples))
		for j, cells := range samples {
			stats.TypeAnalysis[headers[j]] = r.coercer.AnalyzeTypeDistribution(cells)
		}
	}
	return ds, stats, nil
}

type columnRole int

const (
	roleInfer columnRole = iota
	roleDate
	roleText
)

func (r *DataReader) columnRoles(headers []string, opts Options) []columnRole {
	roles := make([]columnRole, len(headers))
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[h] = i
	}
	for _, name := range opts.TextColumns {
		if i, ok := index[name]; ok {
			roles[i] = roleText
		}
	}
	for _, name := range opts.DateColumns {
		i, ok := index[name]
		if !ok {
			r.logger.Warn("[DataReader] declared date column not in header", "column", name)
			continue
		}
		roles[i] = roleDate
	}
	return roles
}

// normalizeHeaders trims names, fills blanks and suffixes duplicates
// (".1", ".2", ...) so every column has a unique name
func normalizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	used := make(map[string]struct{}, len(raw))
	next := make(map[string]int, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		name := h
		for {
			if _, taken := used[name]; !taken {
				break
			}
			next[h]++
			name = fmt.Sprintf("%s.%d", h, next[h])
		}
		used[name] = struct{}{}
		headers[i] = name
	}
	return headers
}
