package profiling

import (
	"encoding/json"
	"strconv"
	"time"

	"civicprofile/domain/dataset"
)

// InferredType represents the detected data type of a column
type InferredType string

const (
	TypeInteger InferredType = "integer"
	TypeFloat   InferredType = "float"
	TypeText    InferredType = "text"
	TypeDate    InferredType = "date"
	TypeBoolean InferredType = "boolean"
)

// ColumnProfile is the schema summary of one column
type ColumnProfile struct {
	Name         string         `json:"name"`
	InferredType InferredType   `json:"inferred_type"`
	NonMissing   int            `json:"non_missing"`
	Distinct     int            `json:"distinct"`
	MissingRatio MissingPercent `json:"missing_ratio"` // 0-1, undefined for zero rows
}

// MissingPercent is a nullable ratio. The zero value is the undefined
// sentinel used when a dataset has no rows.
type MissingPercent struct {
	Value float64
	Valid bool
}

// Defined wraps a computed value
func Defined(v float64) MissingPercent { return MissingPercent{Value: v, Valid: true} }

// Undefined returns the "not applicable" sentinel
func Undefined() MissingPercent { return MissingPercent{} }

// String renders the value with two decimals, or "n/a"
func (p MissingPercent) String() string {
	if !p.Valid {
		return "n/a"
	}
	return strconv.FormatFloat(p.Value, 'f', 2, 64)
}

// MarshalJSON encodes the undefined sentinel as null
func (p MissingPercent) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(p.Value)
}

// UnmarshalJSON accepts a number or null
func (p *MissingPercent) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = Undefined()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Defined(v)
	return nil
}

// MissingEntry pairs a column with its missing percentage (0-100)
type MissingEntry struct {
	Column  string         `json:"column"`
	Percent MissingPercent `json:"percent"`
}

// DateRange is the coverage of one date-like column. Min and Max are nil when
// the column holds no date values.
type DateRange struct {
	Column string     `json:"column"`
	Min    *time.Time `json:"min"`
	Max    *time.Time `json:"max"`
	Count  int        `json:"count"`
}

// HasValues reports whether both bounds are present
func (r DateRange) HasValues() bool {
	return r.Min != nil && r.Max != nil
}

// ValueCount represents a category label and its frequency
type ValueCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// FrequencyTable is a ranked list of category counts
type FrequencyTable struct {
	Column  string       `json:"column"`
	Limit   int          `json:"limit"`
	Counted int          `json:"counted"` // rows that survived exclusion with a non-missing label
	Entries []ValueCount `json:"entries"`
}

// Total sums the counts of the retained entries
func (t FrequencyTable) Total() int {
	sum := 0
	for _, e := range t.Entries {
		sum += e.Count
	}
	return sum
}

// RowPredicate selects rows; a true result excludes the row from counting
type RowPredicate func(row dataset.Row) bool

// NumericSummary describes the distribution of a numeric column
type NumericSummary struct {
	Column   string  `json:"column"`
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Q25      float64 `json:"q25"`
	Median   float64 `json:"median"`
	Q75      float64 `json:"q75"`
	Max      float64 `json:"max"`
	Skewness float64 `json:"skewness"`
}

// Point is one geocoded row
type Point struct {
	Longitude float64   `json:"longitude"`
	Latitude  float64   `json:"latitude"`
	Category  string    `json:"category,omitempty"`
	Date      time.Time `json:"date"`
}

// PointGroup collects the points sharing a category label
type PointGroup struct {
	Category string  `json:"category"`
	Points   []Point `json:"points"`
}

// PointSet is the coordinate subset for the latest year present in a dataset
type PointSet struct {
	Year    int          `json:"year"`
	Points  []Point      `json:"points"`
	Groups  []PointGroup `json:"groups,omitempty"`
	Dropped int          `json:"dropped"` // latest-year rows without usable coordinates
}

// IsEmpty reports whether no year or no points were found
func (s PointSet) IsEmpty() bool {
	return s.Year == 0 || len(s.Points) == 0
}

// DatasetProfile bundles every summary computed for one dataset
type DatasetProfile struct {
	Dataset   string           `json:"dataset"`
	Title     string           `json:"title,omitempty"`
	Rows      int              `json:"rows"`
	Schema    []ColumnProfile  `json:"schema"`
	Missing   []MissingEntry   `json:"missing"`
	Dates     []DateRange      `json:"dates"`
	Numeric   []NumericSummary `json:"numeric,omitempty"`
	Frequency *FrequencyTable  `json:"frequency,omitempty"`
	Points    *PointSet        `json:"points,omitempty"`
}
