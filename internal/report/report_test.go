package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	xlsx "github.com/360EntSecGroup-Skylar/excelize/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-pager-losses/internal/analysis"
	"github.com/mr1hm/go-pager-losses/internal/models"
)

func testData() Data {
	at := time.Date(2015, 4, 25, 6, 11, 25, 0, time.UTC)
	observed := []models.Impact{
		{HydraID: "us20002926", HydraTime: at, Magnitude: 7.8, Passport: models.PassportEntry{LossExtent: "Deaths", EffectType: "Shaking", LossValue: 8964}},
		{HydraID: "us10004u1y", HydraTime: at.Add(time.Hour), Magnitude: 6.2, Passport: models.PassportEntry{LossExtent: "Deaths", EffectType: "Shaking", LossValue: 0}},
	}
	merged := []models.Merged{
		models.NewMerged(observed[0], models.Exposure{EventID: "us20002926", Time: at, PredictedDeaths: 456, MMI8: 900000}),
		models.NewMerged(observed[1], models.Exposure{EventID: "us10004u1y", Time: at, PredictedDeaths: 0}),
	}
	return Data{
		RunID:     "run-1",
		Observed:  observed,
		Merged:    merged,
		Histogram: histogram(analysis.Magnitudes(observed), 0.5),
		Alerts:    analysis.SummarizeAlerts(merged),
		Stages: []StageCount{
			{Stage: "read", Records: 12345},
			{Stage: "merged", Records: 2},
		},
	}
}

func histogram(values []float64, w float64) []analysis.Bin {
	bins, err := analysis.Histogram(values, w)
	if err != nil {
		panic(err)
	}
	return bins
}

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestHistogramChart_PNG(t *testing.T) {
	p, err := HistogramChart(testData().Histogram)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteChart(&buf, p, "png"))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestHistogramChart_Unbinned(t *testing.T) {
	p, err := HistogramChart(histogram([]float64{6.1, 6.1, 7.0}, 0))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteChart(&buf, p, "png"))
	assert.NotZero(t, buf.Len())
}

func TestHistogramChart_Empty(t *testing.T) {
	_, err := HistogramChart(nil)
	assert.Error(t, err)
}

func TestFatalityChart_SVG(t *testing.T) {
	points := analysis.FatalityPoints(testData().Merged)
	p, err := FatalityChart(points)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteChart(&buf, p, "svg"))
	assert.Contains(t, buf.String(), "<svg")
}

func TestFatalityChart_SaveChart(t *testing.T) {
	p, err := FatalityChart(analysis.FatalityPoints(testData().Merged))
	require.NoError(t, err)

	path, err := SaveChart(p, t.TempDir(), "fatalities_loglog", "png")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "fatalities_loglog.png"))
}

func TestAlertSquares(t *testing.T) {
	squares := alertSquares(50)
	require.Len(t, squares, 2)

	assert.Equal(t, models.AlertLevelGreen, squares[0].level)
	assert.Equal(t, analysis.LogSentinel, squares[0].corners[0].X)
	assert.Equal(t, 1.0, squares[0].corners[2].Y)

	assert.Equal(t, models.AlertLevelYellow, squares[1].level)
	assert.Equal(t, 50.0, squares[1].corners[2].X, "top band is capped at the chart bound")

	all := alertSquares(89640)
	require.Len(t, all, 4)
	assert.Equal(t, 89640.0, all[3].corners[2].X)
}

func TestWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, testData()))

	f, err := xlsx.OpenReader(&buf)
	require.NoError(t, err)

	assert.Equal(t, []string{SheetObserved, SheetMerged, SheetAlerts, SheetHistogram, SheetStages}, f.GetSheetList())

	rows, err := f.GetRows(SheetObserved)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "hydra_id", rows[0][0])
	assert.Equal(t, "us20002926", rows[1][0])

	merged, err := f.GetRows(SheetMerged)
	require.NoError(t, err)
	require.Len(t, merged, 3)
	assert.Equal(t, "RED", merged[1][8])
	assert.Equal(t, "ORANGE", merged[1][9])
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, testData()))

	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "12,345")
	assert.Contains(t, out, "8,964")
	assert.Contains(t, out, "agree 1, under-predicted 1, over-predicted 0 of 2")
}
