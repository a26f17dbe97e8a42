package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"civicprofile/adapters/coercer"
	"civicprofile/domain/dataset"
	"civicprofile/ports"
)

const ctxCheckInterval = 1000

// datasetLoader implements ports.DatasetLoader over a SQL query
type datasetLoader struct {
	db      *sqlx.DB
	coercer *coercer.TypeCoercer
	logger  *slog.Logger
}

// NewDatasetLoader creates a loader that materializes query results
func NewDatasetLoader(db *sqlx.DB, c *coercer.TypeCoercer, logger *slog.Logger) ports.DatasetLoader {
	if c == nil {
		c = coercer.NewTypeCoercer(coercer.DefaultCoercionConfig())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &datasetLoader{db: db, coercer: c, logger: logger}
}

// Load runs req.Query and builds one column per result column
func (l *datasetLoader) Load(ctx context.Context, req ports.LoadRequest) (*dataset.Dataset, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("dataset %s has no query", req.Name)
	}
	start := time.Now()

	rows, err := l.db.QueryxContext(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset %s: %w", req.Name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	roles := make(map[string]string, len(req.DateColumns)+len(req.TextColumns))
	for _, c := range req.TextColumns {
		roles[c] = "text"
	}
	for _, c := range req.DateColumns {
		roles[c] = "date"
	}

	builder := dataset.NewBuilder(req.Name, columns)
	unparsed := make(map[string]int)
	count := 0
	for rows.Next() {
		if req.RowLimit > 0 && count >= req.RowLimit {
			break
		}
		if count%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		cells, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", count+1, err)
		}

		row := make([]dataset.Value, len(columns))
		for j, cell := range cells {
			v, failed := l.convert(cell, roles[columns[j]])
			if failed {
				unparsed[columns[j]]++
			}
			row[j] = v
		}
		builder.AppendRow(row)
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	ds, err := builder.Build()
	if err != nil {
		return nil, err
	}

	for col, n := range unparsed {
		l.logger.Warn("[DatasetLoader] unparseable dates stored as missing", "dataset", req.Name, "column", col, "count", n)
	}
	l.logger.Info("[DatasetLoader] query materialized",
		"dataset", req.Name,
		"columns", len(columns),
		"rows", count,
		"duration_ms", time.Since(start).Milliseconds())
	return ds, nil
}

// convert maps a driver value onto a dataset value. Native types keep their
// kind; strings go through the coercer according to the column role.
func (l *datasetLoader) convert(cell interface{}, role string) (dataset.Value, bool) {
	switch v := cell.(type) {
	case nil:
		return dataset.Missing(), false
	case []byte:
		return l.coerceString(string(v), role)
	case string:
		return l.coerceString(v, role)
	case time.Time:
		if role == "text" {
			return dataset.NewText(dataset.FormatDate(v)), false
		}
		return dataset.NewDate(v), false
	}

	if role == "text" {
		return dataset.NewText(fmt.Sprint(cell)), false
	}
	switch v := cell.(type) {
	case int64:
		return dataset.NewInteger(v), false
	case int32:
		return dataset.NewInteger(int64(v)), false
	case int:
		return dataset.NewInteger(int64(v)), false
	case float64:
		return dataset.NewFloat(v), false
	case float32:
		return dataset.NewFloat(float64(v)), false
	case bool:
		return dataset.NewBoolean(v), false
	default:
		return l.coerceString(fmt.Sprint(v), role)
	}
}

func (l *datasetLoader) coerceString(s, role string) (dataset.Value, bool) {
	switch role {
	case "date":
		return l.coercer.CoerceDate(s)
	case "text":
		return l.coercer.CoerceText(s), false
	default:
		return l.coercer.CoerceValue(s), false
	}
}
