package geo

import (
	"encoding/json"
	"io"

	"civicprofile/domain/dataset"
	"civicprofile/domain/profiling"
)

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string         `json:"type"`
	Geometry   geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// WriteGeoJSON encodes the point set as a GeoJSON FeatureCollection
func WriteGeoJSON(w io.Writer, set profiling.PointSet) error {
	fc := featureCollection{
		Type:     "FeatureCollection",
		Features: make([]feature, 0, len(set.Points)),
	}
	for _, p := range set.Points {
		props := map[string]any{
			"date": dataset.FormatDate(p.Date),
			"year": set.Year,
		}
		if p.Category != "" {
			props["category"] = p.Category
		}
		fc.Features = append(fc.Features, feature{
			Type:       "Feature",
			Geometry:   geometry{Type: "Point", Coordinates: [2]float64{p.Longitude, p.Latitude}},
			Properties: props,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(fc)
}
