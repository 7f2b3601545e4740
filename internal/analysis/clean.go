// Package analysis holds the in-memory transformation stages of the pipeline:
// cleaning, decoding, filtering, deduplication, joining and the derived
// series behind the charts.
package analysis

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/mr1hm/go-pager-losses/internal/models"
	"github.com/mr1hm/go-pager-losses/internal/passport"
)

// RoundMagnitude rounds to one decimal place, half away from zero.
func RoundMagnitude(m float64) float64 {
	return math.Round(m*10) / 10
}

// Clean trims the command tag and rounds magnitudes. The input is not modified.
func Clean(impacts []models.Impact) []models.Impact {
	out := make([]models.Impact, len(impacts))
	for i, imp := range impacts {
		imp.Command = strings.TrimSpace(imp.Command)
		imp.Magnitude = RoundMagnitude(imp.Magnitude)
		out[i] = imp
	}
	return out
}

type DecodeStats struct {
	Decoded   int
	Truncated int // entries with tokens past the comment field
}

// DecodePassports fills Passport on every impact. The first entry whose
// LossValue does not parse stops the stage.
func DecodePassports(impacts []models.Impact) ([]models.Impact, DecodeStats, error) {
	var stats DecodeStats
	out := make([]models.Impact, len(impacts))
	for i, imp := range impacts {
		p, overflow, err := passport.Parse(imp.PassportEntry)
		if err != nil {
			return nil, stats, fmt.Errorf("error while decoding passport for %s on line %d: %w", imp.HydraID, imp.Line, err)
		}
		if overflow > 0 {
			stats.Truncated++
			slog.Debug("passport entry truncated", "id", imp.HydraID, "line", imp.Line, "dropped_tokens", overflow)
		}
		imp.Passport = p
		out[i] = imp
		stats.Decoded++
	}
	return out, stats, nil
}
