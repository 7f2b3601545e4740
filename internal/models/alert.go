package models

import "math"

type AlertLevel string

const (
	AlertLevelGreen  AlertLevel = "GREEN"
	AlertLevelYellow AlertLevel = "YELLOW"
	AlertLevelOrange AlertLevel = "ORANGE"
	AlertLevelRed    AlertLevel = "RED"
)

// AlertBand is a half-open fatality range [Min, Max) mapped to a PAGER alert level.
type AlertBand struct {
	Level AlertLevel
	Min   float64
	Max   float64 // +Inf for RED
}

// AlertBands lists the fixed PAGER fatality thresholds in ascending order.
var AlertBands = []AlertBand{
	{Level: AlertLevelGreen, Min: 0, Max: 1},
	{Level: AlertLevelYellow, Min: 1, Max: 100},
	{Level: AlertLevelOrange, Min: 100, Max: 1000},
	{Level: AlertLevelRed, Min: 1000, Max: math.Inf(1)},
}

// AlertLevelFor returns the level whose band contains v. Negative values are
// treated as GREEN.
func AlertLevelFor(v float64) AlertLevel {
	for _, b := range AlertBands {
		if v < b.Max {
			return b.Level
		}
	}
	return AlertLevelRed
}

func (l AlertLevel) Rank() int {
	switch l {
	case AlertLevelGreen:
		return 0
	case AlertLevelYellow:
		return 1
	case AlertLevelOrange:
		return 2
	case AlertLevelRed:
		return 3
	default:
		return -1
	}
}
