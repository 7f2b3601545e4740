package analysis

import "github.com/mr1hm/go-pager-losses/internal/models"

// Criteria selects impact rows. Empty fields match anything.
type Criteria struct {
	Command    string
	LossExtent string
	EffectType string
}

// FilterCommand keeps rows whose cleaned command equals command.
func FilterCommand(impacts []models.Impact, command string) []models.Impact {
	if command == "" {
		return impacts
	}
	out := make([]models.Impact, 0, len(impacts))
	for _, imp := range impacts {
		if imp.Command == command {
			out = append(out, imp)
		}
	}
	return out
}

// FilterLoss keeps decoded rows matching the loss extent and effect type.
func FilterLoss(impacts []models.Impact, c Criteria) []models.Impact {
	out := make([]models.Impact, 0, len(impacts))
	for _, imp := range impacts {
		if c.LossExtent != "" && imp.Passport.LossExtent != c.LossExtent {
			continue
		}
		if c.EffectType != "" && imp.Passport.EffectType != c.EffectType {
			continue
		}
		out = append(out, imp)
	}
	return out
}
