package ports

import (
	"context"

	"civicprofile/domain/dataset"
)

// LoadRequest describes one dataset to materialize. Exactly one of Path or
// Query is set.
type LoadRequest struct {
	Name        string
	Path        string // .csv or .xlsx file
	Query       string // SQL run against the configured database
	Sheet       string
	DateColumns []string
	TextColumns []string
	RowLimit    int
}

// IsQuery reports whether the request targets the database
func (r LoadRequest) IsQuery() bool { return r.Query != "" }

// DatasetLoader turns a LoadRequest into an immutable Dataset
type DatasetLoader interface {
	Load(ctx context.Context, req LoadRequest) (*dataset.Dataset, error)
}
