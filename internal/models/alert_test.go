package models

import "testing"

func TestAlertLevelFor(t *testing.T) {
	tests := []struct {
		value float64
		want  AlertLevel
	}{
		{0, AlertLevelGreen},
		{0.01, AlertLevelGreen},
		{0.99, AlertLevelGreen},
		{1, AlertLevelYellow},
		{50, AlertLevelYellow},
		{99, AlertLevelYellow},
		{100, AlertLevelOrange},
		{500, AlertLevelOrange},
		{999, AlertLevelOrange},
		{1000, AlertLevelRed},
		{5000, AlertLevelRed},
		{-3, AlertLevelGreen},
	}

	for _, tt := range tests {
		if got := AlertLevelFor(tt.value); got != tt.want {
			t.Errorf("AlertLevelFor(%v) = %s, want %s", tt.value, got, tt.want)
		}
	}
}

func TestAlertBands_Contiguous(t *testing.T) {
	for i := 1; i < len(AlertBands); i++ {
		if AlertBands[i].Min != AlertBands[i-1].Max {
			t.Errorf("band %s starts at %v, previous ends at %v", AlertBands[i].Level, AlertBands[i].Min, AlertBands[i-1].Max)
		}
		if AlertBands[i].Level.Rank() <= AlertBands[i-1].Level.Rank() {
			t.Errorf("band %s is not ranked above %s", AlertBands[i].Level, AlertBands[i-1].Level)
		}
	}
}

func TestNewMerged_Levels(t *testing.T) {
	m := NewMerged(
		Impact{HydraID: "us1", Passport: PassportEntry{LossValue: 500}},
		Exposure{EventID: "us1", PredictedDeaths: 5000},
	)
	if m.ObservedLevel != AlertLevelOrange {
		t.Errorf("expected observed ORANGE, got %s", m.ObservedLevel)
	}
	if m.PredictedLevel != AlertLevelRed {
		t.Errorf("expected predicted RED, got %s", m.PredictedLevel)
	}
}
