package models

import "time"

// MMILevels are the intensity thresholds carried on an exposure record.
var MMILevels = []int{5, 6, 7, 8, 9, 10}

// Exposure is a PAGER prediction for one event: estimated fatalities and
// population exposed at or above each MMI threshold.
type Exposure struct {
	EventID         string    `db:"eventid" json:"eventid"`
	Time            time.Time `db:"time" json:"time"`
	Latitude        float64   `db:"latitude" json:"latitude"`
	Longitude       float64   `db:"longitude" json:"longitude"`
	Depth           float64   `db:"depth" json:"depth"`
	Magnitude       float64   `db:"magnitude" json:"magnitude"`
	PredictedDeaths int64     `db:"predicted_deaths" json:"predicted_deaths"`
	MMI5            int64     `db:"mmi5" json:"mmi5"`
	MMI6            int64     `db:"mmi6" json:"mmi6"`
	MMI7            int64     `db:"mmi7" json:"mmi7"`
	MMI8            int64     `db:"mmi8" json:"mmi8"`
	MMI9            int64     `db:"mmi9" json:"mmi9"`
	MMI10           int64     `db:"mmi10" json:"mmi10"`
}

// MMI returns the exposure count for level, or 0 for levels outside 5..10.
func (e *Exposure) MMI(level int) int64 {
	switch level {
	case 5:
		return e.MMI5
	case 6:
		return e.MMI6
	case 7:
		return e.MMI7
	case 8:
		return e.MMI8
	case 9:
		return e.MMI9
	case 10:
		return e.MMI10
	default:
		return 0
	}
}

// SetMMI stores count for level; levels outside 5..10 are ignored.
func (e *Exposure) SetMMI(level int, count int64) {
	switch level {
	case 5:
		e.MMI5 = count
	case 6:
		e.MMI6 = count
	case 7:
		e.MMI7 = count
	case 8:
		e.MMI8 = count
	case 9:
		e.MMI9 = count
	case 10:
		e.MMI10 = count
	}
}

// Event is the authoritative catalog metadata for an earthquake.
type Event struct {
	ID        string
	Time      time.Time
	Latitude  float64
	Longitude float64
	Depth     float64
	Magnitude float64
	Title     string
}

// Merged pairs an observed impact with its PAGER prediction.
type Merged struct {
	Impact         Impact
	Exposure       Exposure
	ObservedLevel  AlertLevel
	PredictedLevel AlertLevel
}

func NewMerged(i Impact, e Exposure) Merged {
	return Merged{
		Impact:         i,
		Exposure:       e,
		ObservedLevel:  AlertLevelFor(float64(i.Passport.LossValue)),
		PredictedLevel: AlertLevelFor(float64(e.PredictedDeaths)),
	}
}
