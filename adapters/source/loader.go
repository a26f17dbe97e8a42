package source

import (
	"context"
	"fmt"
	"log/slog"

	"civicprofile/adapters/coercer"
	"civicprofile/domain/dataset"
	"civicprofile/ports"
)

// FileLoader implements ports.DatasetLoader for file-backed requests
type FileLoader struct {
	coercer *coercer.TypeCoercer
	logger  *slog.Logger
}

// NewFileLoader creates a file loader sharing one coercer across reads
func NewFileLoader(c *coercer.TypeCoercer, logger *slog.Logger) *FileLoader {
	return &FileLoader{coercer: c, logger: logger}
}

// Load reads req.Path
func (l *FileLoader) Load(ctx context.Context, req ports.LoadRequest) (*dataset.Dataset, error) {
	if req.Path == "" {
		return nil, fmt.Errorf("dataset %s has no file path", req.Name)
	}
	reader := NewDataReader(req.Path, l.coercer, l.logger)
	ds, _, err := reader.ReadDataset(ctx, req.Name, Options{
		DateColumns: req.DateColumns,
		TextColumns: req.TextColumns,
		Sheet:       req.Sheet,
		RowLimit:    req.RowLimit,
	})
	return ds, err
}

var _ ports.DatasetLoader = (*FileLoader)(nil)
