// Package report renders a pipeline run as charts, an XLSX workbook and a
// plain-text summary.
package report

import (
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mr1hm/go-pager-losses/internal/analysis"
	"github.com/mr1hm/go-pager-losses/internal/models"
)

type StageCount struct {
	Stage   string `json:"stage"`
	Records int    `json:"records"`
}

// Data is everything a report needs from one run.
type Data struct {
	RunID     string
	Observed  []models.Impact
	Merged    []models.Merged
	Histogram []analysis.Bin
	Alerts    analysis.AlertSummary
	Stages    []StageCount
}

// WriteSummary prints stage counts, the alert matrix and the largest
// observed losses with English number grouping.
func WriteSummary(w io.Writer, d Data) error {
	p := message.NewPrinter(language.English)

	p.Fprintf(w, "PAGER loss comparison (run %s)\n\n", d.RunID)
	for _, s := range d.Stages {
		p.Fprintf(w, "  %-12s %10d\n", s.Stage, s.Records)
	}

	p.Fprintf(w, "\nAlert levels, observed (rows) vs predicted (columns):\n")
	p.Fprintf(w, "  %-8s", "")
	for _, b := range models.AlertBands {
		p.Fprintf(w, " %8s", b.Level)
	}
	p.Fprintln(w)
	for _, obs := range models.AlertBands {
		p.Fprintf(w, "  %-8s", obs.Level)
		for _, pred := range models.AlertBands {
			p.Fprintf(w, " %8d", d.Alerts.Matrix[obs.Level][pred.Level])
		}
		p.Fprintln(w)
	}
	p.Fprintf(w, "\n  agree %d, under-predicted %d, over-predicted %d of %d\n",
		d.Alerts.Agree, d.Alerts.Under, d.Alerts.Over, d.Alerts.Total)

	if len(d.Merged) > 0 {
		p.Fprintf(w, "\nEvents:\n")
		for _, m := range d.Merged {
			p.Fprintf(w, "  %-12s M%.1f  observed %8d  predicted %8d\n",
				m.Impact.HydraID, m.Impact.Magnitude, m.Impact.Passport.LossValue, m.Exposure.PredictedDeaths)
		}
	}

	_, err := p.Fprintln(w)
	return err
}
