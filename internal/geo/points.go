// Package geo extracts the coordinate subset handed to map renderers.
package geo

import (
	"civicprofile/domain/dataset"
	"civicprofile/domain/profiling"
)

// Bounds is an inclusive longitude/latitude box
type Bounds struct {
	MinLongitude float64 `yaml:"min_longitude" json:"min_longitude"`
	MaxLongitude float64 `yaml:"max_longitude" json:"max_longitude"`
	MinLatitude  float64 `yaml:"min_latitude" json:"min_latitude"`
	MaxLatitude  float64 `yaml:"max_latitude" json:"max_latitude"`
}

// Contains reports whether the coordinate lies inside the box
func (b Bounds) Contains(lon, lat float64) bool {
	return lon >= b.MinLongitude && lon <= b.MaxLongitude &&
		lat >= b.MinLatitude && lat <= b.MaxLatitude
}

// Spec names the columns used for the latest-year point filter
type Spec struct {
	DateColumn      string  `yaml:"date_column" json:"date_column"`
	LongitudeColumn string  `yaml:"longitude_column" json:"longitude_column"`
	LatitudeColumn  string  `yaml:"latitude_column" json:"latitude_column"`
	CategoryColumn  string  `yaml:"category_column,omitempty" json:"category_column,omitempty"`
	Bounds          *Bounds `yaml:"bounds,omitempty" json:"bounds,omitempty"`
}

// LatestYearPoints keeps the rows dated in the most recent year present in
// spec.DateColumn that carry numeric longitude and latitude. Points are
// grouped by the optional category label in first-encountered order. A
// dataset without any date value yields an empty set, not an error.
func LatestYearPoints(ds *dataset.Dataset, spec Spec) (profiling.PointSet, error) {
	dates, err := ds.Column(spec.DateColumn)
	if err != nil {
		return profiling.PointSet{}, err
	}
	lons, err := ds.Column(spec.LongitudeColumn)
	if err != nil {
		return profiling.PointSet{}, err
	}
	lats, err := ds.Column(spec.LatitudeColumn)
	if err != nil {
		return profiling.PointSet{}, err
	}
	var categories *dataset.Column
	if spec.CategoryColumn != "" {
		col, err := ds.Column(spec.CategoryColumn)
		if err != nil {
			return profiling.PointSet{}, err
		}
		categories = &col
	}

	set := profiling.PointSet{Points: []profiling.Point{}}
	set.Year = latestYear(dates)
	if set.Year == 0 {
		return set, nil
	}

	groupIndex := make(map[string]int)
	for i := 0; i < ds.RowCount(); i++ {
		t, ok := dates.Value(i).AsDate()
		if !ok || t.Year() != set.Year {
			continue
		}

		lon, okLon := lons.Value(i).AsFloat64()
		lat, okLat := lats.Value(i).AsFloat64()
		if !okLon || !okLat || (spec.Bounds != nil && !spec.Bounds.Contains(lon, lat)) {
			set.Dropped++
			continue
		}

		p := profiling.Point{Longitude: lon, Latitude: lat, Date: t}
		if categories != nil {
			p.Category = categories.Value(i).Label()
			idx, seen := groupIndex[p.Category]
			if !seen {
				idx = len(set.Groups)
				groupIndex[p.Category] = idx
				set.Groups = append(set.Groups, profiling.PointGroup{Category: p.Category})
			}
			set.Groups[idx].Points = append(set.Groups[idx].Points, p)
		}
		set.Points = append(set.Points, p)
	}

	return set, nil
}

func latestYear(col dataset.Column) int {
	year := 0
	for i := 0; i < col.Len(); i++ {
		if t, ok := col.Value(i).AsDate(); ok && t.Year() > year {
			year = t.Year()
		}
	}
	return year
}
