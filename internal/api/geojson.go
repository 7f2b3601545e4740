package api

import (
	"fmt"
	"strings"

	"github.com/mr1hm/go-pager-losses/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func toGeoJSON(merged []models.Merged) FeatureCollection {
	features := make([]Feature, 0, len(merged))

	for _, m := range merged {
		e := m.Exposure
		props := map[string]any{
			"id":               e.EventID,
			"time":             e.Time,
			"magnitude":        m.Impact.Magnitude,
			"depth":            e.Depth,
			"observed_deaths":  m.Impact.Passport.LossValue,
			"predicted_deaths": e.PredictedDeaths,
			"observed_alert":   strings.ToLower(string(m.ObservedLevel)),
			"predicted_alert":  strings.ToLower(string(m.PredictedLevel)),
			"location":         m.Impact.Passport.Location,
		}
		for _, level := range models.MMILevels {
			props[fmt.Sprintf("mmi%d", level)] = e.MMI(level)
		}

		f := Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{e.Longitude, e.Latitude, e.Depth},
			},
			Properties: props,
		}
		features = append(features, f)
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
