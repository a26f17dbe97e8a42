// Package testkit generates synthetic municipal datasets for tests.
package testkit

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"time"

	"civicprofile/domain/dataset"
	"civicprofile/internal/geo"
)

// Column names produced by the generator
const (
	ColumnType      = "SR_TYPE"
	ColumnCreated   = "CREATED_DATE"
	ColumnStatus    = "STATUS"
	ColumnWard      = "WARD"
	ColumnLongitude = "LONGITUDE"
	ColumnLatitude  = "LATITUDE"
)

// InformationOnlyCall is the catch-all category reports usually exclude
const InformationOnlyCall = "311 INFORMATION ONLY CALL"

// ServiceRequestConfig configures the service request generator
type ServiceRequestConfig struct {
	Rows                  int        `json:"rows"`
	Categories            []string   `json:"categories"` // earlier entries are more frequent
	InfoCallRate          float64    `json:"info_call_rate"`
	MissingCategoryRate   float64    `json:"missing_category_rate"`
	MissingDateRate       float64    `json:"missing_date_rate"`
	MissingCoordinateRate float64    `json:"missing_coordinate_rate"`
	StartDate             time.Time  `json:"start_date"`
	EndDate               time.Time  `json:"end_date"`
	Bounds                geo.Bounds `json:"bounds"`
	Seed                  int64      `json:"seed"`
}

// DefaultServiceRequestConfig returns a small city-scale configuration
func DefaultServiceRequestConfig() ServiceRequestConfig {
	return ServiceRequestConfig{
		Rows: 500,
		Categories: []string{
			"Pothole in Street",
			"Graffiti Removal",
			"Street Light Out",
			"Rodent Baiting",
			"Abandoned Vehicle",
			"Tree Trim",
		},
		InfoCallRate:          0.2,
		MissingCategoryRate:   0.02,
		MissingDateRate:       0.01,
		MissingCoordinateRate: 0.05,
		StartDate:             time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:               time.Date(2023, 6, 30, 23, 59, 59, 0, time.UTC),
		Bounds: geo.Bounds{
			MinLongitude: -87.94, MaxLongitude: -87.52,
			MinLatitude: 41.64, MaxLatitude: 42.02,
		},
		Seed: 42,
	}
}

// ServiceRequestGenerator produces reproducible 311-style datasets
type ServiceRequestGenerator struct {
	config ServiceRequestConfig
	rng    *rand.Rand
}

// NewServiceRequestGenerator creates a generator; equal seeds give equal data
func NewServiceRequestGenerator(config ServiceRequestConfig) *ServiceRequestGenerator {
	return &ServiceRequestGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Headers lists the generated columns in order
func Headers() []string {
	return []string{ColumnType, ColumnCreated, ColumnStatus, ColumnWard, ColumnLongitude, ColumnLatitude}
}

// Generate builds a dataset with config.Rows rows
func (g *ServiceRequestGenerator) Generate(name string) (*dataset.Dataset, error) {
	b := dataset.NewBuilder(name, Headers())
	for i := 0; i < g.config.Rows; i++ {
		b.AppendRow(g.row())
	}
	return b.Build()
}

func (g *ServiceRequestGenerator) row() []dataset.Value {
	category := dataset.Missing()
	switch r := g.rng.Float64(); {
	case r < g.config.MissingCategoryRate:
	case r < g.config.MissingCategoryRate+g.config.InfoCallRate:
		category = dataset.NewText(InformationOnlyCall)
	default:
		category = dataset.NewText(g.weightedCategory())
	}

	created := dataset.Missing()
	if g.rng.Float64() >= g.config.MissingDateRate {
		created = dataset.NewDate(g.randomTime())
	}

	status := dataset.NewText("Completed")
	if g.rng.Float64() < 0.3 {
		status = dataset.NewText("Open")
	}

	lon, lat := dataset.Missing(), dataset.Missing()
	if g.rng.Float64() >= g.config.MissingCoordinateRate {
		b := g.config.Bounds
		lon = dataset.NewFloat(b.MinLongitude + g.rng.Float64()*(b.MaxLongitude-b.MinLongitude))
		lat = dataset.NewFloat(b.MinLatitude + g.rng.Float64()*(b.MaxLatitude-b.MinLatitude))
	}

	return []dataset.Value{
		category,
		created,
		status,
		dataset.NewInteger(int64(g.rng.Intn(50) + 1)),
		lon,
		lat,
	}
}

// weightedCategory draws category i with weight 1/(i+1)
func (g *ServiceRequestGenerator) weightedCategory() string {
	cats := g.config.Categories
	if len(cats) == 0 {
		return "Other"
	}
	total := 0.0
	for i := range cats {
		total += 1 / float64(i+1)
	}
	r := g.rng.Float64() * total
	for i, c := range cats {
		r -= 1 / float64(i+1)
		if r <= 0 {
			return c
		}
	}
	return cats[len(cats)-1]
}

func (g *ServiceRequestGenerator) randomTime() time.Time {
	span := g.config.EndDate.Sub(g.config.StartDate)
	if span <= 0 {
		return g.config.StartDate
	}
	offset := time.Duration(g.rng.Int63n(int64(span / time.Second)))
	return g.config.StartDate.Add(offset * time.Second)
}

// WriteCSV writes ds with a header row. Missing values become empty cells
// and dates use the "01/02/2006 03:04:05 PM" export layout.
func WriteCSV(w io.Writer, ds *dataset.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.ColumnNames()); err != nil {
		return err
	}
	cols := ds.Columns()
	record := make([]string, len(cols))
	for i := 0; i < ds.RowCount(); i++ {
		for j, col := range cols {
			v := col.Value(i)
			switch {
			case v.IsMissing():
				record[j] = ""
			case v.Kind() == dataset.KindDate:
				t, _ := v.AsDate()
				record[j] = t.Format("01/02/2006 03:04:05 PM")
			default:
				record[j] = v.Label()
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
