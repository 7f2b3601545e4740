package report

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/mr1hm/go-pager-losses/internal/analysis"
	"github.com/mr1hm/go-pager-losses/internal/models"
)

const (
	chartWidth  = 8 * vg.Inch
	chartHeight = 6 * vg.Inch
	// half-width of a bar when every distinct value gets its own bin
	pointBarHalfWidth = 0.04
)

var levelColors = map[models.AlertLevel]color.NRGBA{
	models.AlertLevelGreen:  {R: 0, G: 200, B: 0, A: 60},
	models.AlertLevelYellow: {R: 255, G: 220, B: 0, A: 60},
	models.AlertLevelOrange: {R: 255, G: 140, B: 0, A: 60},
	models.AlertLevelRed:    {R: 220, G: 0, B: 0, A: 60},
}

// HistogramChart draws magnitude counts as bars.
func HistogramChart(bins []analysis.Bin) (*plot.Plot, error) {
	if len(bins) == 0 {
		return nil, fmt.Errorf("no histogram bins to plot")
	}

	p := plot.New()
	p.Title.Text = "Earthquake magnitudes"
	p.X.Label.Text = "Magnitude"
	p.Y.Label.Text = "Count"

	h := &plotter.Histogram{
		Bins:      make([]plotter.HistogramBin, len(bins)),
		FillColor: color.NRGBA{R: 70, G: 110, B: 180, A: 255},
		LineStyle: plotter.DefaultLineStyle,
	}
	for i, b := range bins {
		lo, hi := b.Min, b.Max
		if lo == hi {
			lo, hi = lo-pointBarHalfWidth, hi+pointBarHalfWidth
		}
		h.Bins[i] = plotter.HistogramBin{Min: lo, Max: hi, Weight: float64(b.Count)}
	}
	h.Width = h.Bins[0].Max - h.Bins[0].Min
	p.Add(h)
	p.Y.Min = 0

	return p, nil
}

// FatalityChart plots observed against predicted deaths on log-log axes,
// over one translucent square per alert level along the diagonal.
func FatalityChart(points []analysis.FatalityPoint) (*plot.Plot, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("no merged events to plot")
	}

	xys := make(plotter.XYs, len(points))
	largest := analysis.LogSentinel
	for i, pt := range points {
		xys[i].X = pt.Observed
		xys[i].Y = pt.Predicted
		largest = math.Max(largest, math.Max(pt.Observed, pt.Predicted))
	}
	upper := 10 * largest

	p := plot.New()
	p.Title.Text = "Observed vs PAGER predicted fatalities"
	p.X.Label.Text = "Observed deaths"
	p.Y.Label.Text = "Predicted deaths"
	p.X.Scale = plot.LogScale{}
	p.Y.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Legend.Top = false
	p.Legend.Left = true

	for _, sq := range alertSquares(upper) {
		poly, err := plotter.NewPolygon(sq.corners)
		if err != nil {
			return nil, fmt.Errorf("error while building %s square: %w", sq.level, err)
		}
		poly.Color = levelColors[sq.level]
		poly.LineStyle.Width = 0
		p.Add(poly)
		p.Legend.Add(string(sq.level), poly)
	}

	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, fmt.Errorf("error while building scatter: %w", err)
	}
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(3)
	scatter.GlyphStyle.Color = color.Black
	p.Add(scatter)

	p.X.Min, p.X.Max = analysis.LogSentinel/2, upper
	p.Y.Min, p.Y.Max = analysis.LogSentinel/2, upper

	return p, nil
}

type alertSquare struct {
	level   models.AlertLevel
	corners plotter.XYs
}

// alertSquares returns one square per band on the diagonal. The GREEN floor
// is the log sentinel and RED is capped at upper; bands starting at or above
// upper are left out.
func alertSquares(upper float64) []alertSquare {
	var squares []alertSquare
	for _, b := range models.AlertBands {
		lo := math.Max(b.Min, analysis.LogSentinel)
		hi := math.Min(b.Max, upper)
		if lo >= hi {
			continue
		}
		squares = append(squares, alertSquare{
			level: b.Level,
			corners: plotter.XYs{
				{X: lo, Y: lo},
				{X: hi, Y: lo},
				{X: hi, Y: hi},
				{X: lo, Y: hi},
			},
		})
	}
	return squares
}

// WriteChart renders p to w in format ("png" or "svg").
func WriteChart(w io.Writer, p *plot.Plot, format string) error {
	wt, err := p.WriterTo(chartWidth, chartHeight, strings.ToLower(format))
	if err != nil {
		return fmt.Errorf("error while rendering chart: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("error while writing chart: %w", err)
	}
	return nil
}

// SaveChart writes p to dir/name.format and returns the path.
func SaveChart(p *plot.Plot, dir, name, format string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error while creating output directory: %w", err)
	}
	path := filepath.Join(dir, name+"."+strings.ToLower(format))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("error while creating %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteChart(f, p, format); err != nil {
		return "", err
	}
	return path, f.Close()
}
