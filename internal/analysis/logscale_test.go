package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mr1hm/go-pager-losses/internal/models"
)

func TestLogSafe(t *testing.T) {
	assert.Equal(t, 0.01, LogSafe(0))
	for _, v := range []float64{0.5, 1, 2, 99, 100, 12345, 0.01, -1} {
		assert.Equal(t, v, LogSafe(v))
	}
	assert.False(t, math.IsInf(math.Log10(LogSafe(0)), 0))
}

func TestFatalityPoints_SentinelBothAxes(t *testing.T) {
	merged := []models.Merged{
		models.NewMerged(
			models.Impact{HydraID: "zero-both", Passport: models.PassportEntry{LossValue: 0}},
			models.Exposure{EventID: "zero-both", PredictedDeaths: 0},
		),
		models.NewMerged(
			models.Impact{HydraID: "nonzero", Passport: models.PassportEntry{LossValue: 35}},
			models.Exposure{EventID: "nonzero", PredictedDeaths: 120},
		),
	}

	points := FatalityPoints(merged)

	assert.Equal(t, 0.01, points[0].Observed)
	assert.Equal(t, 0.01, points[0].Predicted)
	assert.Equal(t, 35.0, points[1].Observed)
	assert.Equal(t, 120.0, points[1].Predicted)
}

func TestSummarizeAlerts(t *testing.T) {
	mk := func(obs int32, pred int64) models.Merged {
		return models.NewMerged(
			models.Impact{Passport: models.PassportEntry{LossValue: obs}},
			models.Exposure{PredictedDeaths: pred},
		)
	}
	merged := []models.Merged{
		mk(0, 0),       // green / green
		mk(50, 50),     // yellow / yellow
		mk(500, 5),     // orange / yellow, under
		mk(5000, 5000), // red / red
		mk(3, 3000),    // yellow / red, over
	}

	s := SummarizeAlerts(merged)

	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 3, s.Agree)
	assert.Equal(t, 1, s.Under)
	assert.Equal(t, 1, s.Over)
	assert.Equal(t, 1, s.Matrix[models.AlertLevelOrange][models.AlertLevelYellow])
	assert.Equal(t, 1, s.Matrix[models.AlertLevelGreen][models.AlertLevelGreen])
}
