package analysis

import "github.com/mr1hm/go-pager-losses/internal/models"

// LogSentinel stands in for zero counts on log axes.
const LogSentinel = 0.01

// LogSafe maps exactly zero to LogSentinel and leaves every other value alone.
func LogSafe(v float64) float64 {
	if v == 0 {
		return LogSentinel
	}
	return v
}

// FatalityPoint is one observed-vs-predicted pair, already log-safe.
type FatalityPoint struct {
	EventID   string  `json:"event_id"`
	Magnitude float64 `json:"magnitude"`
	Observed  float64 `json:"observed"`
	Predicted float64 `json:"predicted"`
}

func FatalityPoints(merged []models.Merged) []FatalityPoint {
	points := make([]FatalityPoint, len(merged))
	for i, m := range merged {
		points[i] = FatalityPoint{
			EventID:   m.Impact.HydraID,
			Magnitude: m.Impact.Magnitude,
			Observed:  LogSafe(float64(m.Impact.Passport.LossValue)),
			Predicted: LogSafe(float64(m.Exposure.PredictedDeaths)),
		}
	}
	return points
}
