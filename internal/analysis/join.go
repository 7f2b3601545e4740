package analysis

import "github.com/mr1hm/go-pager-losses/internal/models"

// InnerJoin pairs observed impacts with exposures on hydra_id == eventid.
// Rows without a partner on the other side are dropped. Output follows the
// observed order; if an event id repeats among exposures the first one wins.
func InnerJoin(observed []models.Impact, exposures []models.Exposure) []models.Merged {
	byID := make(map[string]models.Exposure, len(exposures))
	for _, e := range exposures {
		if _, ok := byID[e.EventID]; !ok {
			byID[e.EventID] = e
		}
	}

	merged := make([]models.Merged, 0, len(observed))
	for _, imp := range observed {
		e, ok := byID[imp.HydraID]
		if !ok {
			continue
		}
		merged = append(merged, models.NewMerged(imp, e))
	}
	return merged
}

// EventIDs returns the distinct event ids of impacts in order of first appearance.
func EventIDs(impacts []models.Impact) []string {
	seen := make(map[string]bool, len(impacts))
	ids := make([]string, 0, len(impacts))
	for _, imp := range impacts {
		if seen[imp.HydraID] {
			continue
		}
		seen[imp.HydraID] = true
		ids = append(ids, imp.HydraID)
	}
	return ids
}

// MissingIDs lists ids with no exposure record.
func MissingIDs(ids []string, exposures []models.Exposure) []string {
	have := make(map[string]bool, len(exposures))
	for _, e := range exposures {
		have[e.EventID] = true
	}
	var missing []string
	for _, id := range ids {
		if !have[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
