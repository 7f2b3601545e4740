package analysis

import "github.com/mr1hm/go-pager-losses/internal/models"

// AlertSummary compares the alert level implied by observed deaths with the
// level PAGER predicted.
type AlertSummary struct {
	Total  int                                             `json:"total"`
	Matrix map[models.AlertLevel]map[models.AlertLevel]int `json:"matrix"` // [observed][predicted]
	Agree  int                                             `json:"agree"`
	Under  int                                             `json:"under"` // predicted below observed
	Over   int                                             `json:"over"`
}

func SummarizeAlerts(merged []models.Merged) AlertSummary {
	s := AlertSummary{
		Total:  len(merged),
		Matrix: make(map[models.AlertLevel]map[models.AlertLevel]int, len(models.AlertBands)),
	}
	for _, b := range models.AlertBands {
		s.Matrix[b.Level] = make(map[models.AlertLevel]int, len(models.AlertBands))
	}

	for _, m := range merged {
		row, ok := s.Matrix[m.ObservedLevel]
		if !ok {
			row = make(map[models.AlertLevel]int)
			s.Matrix[m.ObservedLevel] = row
		}
		row[m.PredictedLevel]++
		switch obs, pred := m.ObservedLevel.Rank(), m.PredictedLevel.Rank(); {
		case pred == obs:
			s.Agree++
		case pred < obs:
			s.Under++
		default:
			s.Over++
		}
	}
	return s
}
