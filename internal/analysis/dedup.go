package analysis

import (
	"sort"

	"github.com/mr1hm/go-pager-losses/internal/models"
)

type KeyFunc func(models.Impact) string

func ByEvent(i models.Impact) string {
	return i.HydraID
}

// ByEventLoss keys on (hydra_id, LossExtent, EffectType).
func ByEventLoss(i models.Impact) string {
	return i.HydraID + "\x00" + i.Passport.LossExtent + "\x00" + i.Passport.EffectType
}

// DedupMaxLoss keeps one record per event id: the one with the largest
// LossValue, earliest in input order on ties. The result is ordered by
// HydraTime ascending.
func DedupMaxLoss(records []models.Impact) []models.Impact {
	return DedupMaxLossBy(records, ByEvent)
}

func DedupMaxLossBy(records []models.Impact, key KeyFunc) []models.Impact {
	sorted := make([]models.Impact, len(records))
	copy(sorted, records)

	// Stable keeps input order among equal LossValues, so first-wins below
	// picks the earliest of the tied rows.
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].Passport.LossValue > sorted[b].Passport.LossValue
	})

	seen := make(map[string]bool, len(sorted))
	out := make([]models.Impact, 0, len(sorted))
	for _, r := range sorted {
		k := key(r)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].HydraTime.Before(out[b].HydraTime)
	})
	return out
}
