package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/mr1hm/go-pager-losses/internal/models"
)

// Bin is one histogram bar covering [Min, Max). Unbinned histograms use
// Min == Max == the counted value.
type Bin struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

const (
	binEpsilon = 1e-9

	// MaxBins caps the number of bars a binned histogram may span.
	MaxBins = 10_000
	// MinBinWidth is the smallest positive width accepted.
	MinBinWidth = 0.001
)

var ErrInvalidBinWidth = errors.New("invalid histogram bin width")

// CheckBinWidth accepts 0 (one bar per value) or a finite width of at least
// MinBinWidth.
func CheckBinWidth(w float64) error {
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 || (w > 0 && w < MinBinWidth) {
		return fmt.Errorf("%w: %v", ErrInvalidBinWidth, w)
	}
	return nil
}

// Histogram counts values. With binWidth 0 each distinct value (rounded to
// one decimal) gets its own bar; otherwise values fall into [k*w, (k+1)*w)
// bins spanning the data, empty bins included.
func Histogram(values []float64, binWidth float64) ([]Bin, error) {
	if err := CheckBinWidth(binWidth); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	if binWidth == 0 {
		return valueCounts(values), nil
	}

	vmin, vmax := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("cannot bin non-finite value %v", v)
		}
		vmin = min(vmin, v)
		vmax = max(vmax, v)
	}
	if (vmax-vmin)/binWidth >= MaxBins {
		return nil, fmt.Errorf("%w: %v over [%v, %v] needs more than %d bins", ErrInvalidBinWidth, binWidth, vmin, vmax, MaxBins)
	}

	lo, hi := math.MaxInt, math.MinInt
	counts := make(map[int]int)
	for _, v := range values {
		k := int(math.Floor(v/binWidth + binEpsilon))
		counts[k]++
		lo = min(lo, k)
		hi = max(hi, k)
	}

	bins := make([]Bin, 0, hi-lo+1)
	for k := lo; k <= hi; k++ {
		bins = append(bins, Bin{
			Min:   roundTo(float64(k)*binWidth, 9),
			Max:   roundTo(float64(k+1)*binWidth, 9),
			Count: counts[k],
		})
	}
	return bins, nil
}

func valueCounts(values []float64) []Bin {
	counts := make(map[float64]int)
	for _, v := range values {
		counts[RoundMagnitude(v)]++
	}
	keys := make([]float64, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Float64s(keys)

	bins := make([]Bin, len(keys))
	for i, k := range keys {
		bins[i] = Bin{Min: k, Max: k, Count: counts[k]}
	}
	return bins
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// Magnitudes extracts the magnitude column.
func Magnitudes(impacts []models.Impact) []float64 {
	out := make([]float64, len(impacts))
	for i, imp := range impacts {
		out[i] = imp.Magnitude
	}
	return out
}
