package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	xlsx "github.com/360EntSecGroup-Skylar/excelize/v2"

	"github.com/mr1hm/go-pager-losses/internal/models"
)

const (
	SheetObserved  = "Observed"
	SheetMerged    = "Merged"
	SheetAlerts    = "Alerts"
	SheetHistogram = "Histogram"
	SheetStages    = "Stages"
)

// Workbook builds the XLSX export of a run.
func Workbook(d Data) (*xlsx.File, error) {
	f := xlsx.NewFile()

	sheets := []struct {
		name string
		rows [][]interface{}
	}{
		{SheetObserved, observedRows(d.Observed)},
		{SheetMerged, mergedRows(d.Merged)},
		{SheetAlerts, alertRows(d)},
		{SheetHistogram, histogramRows(d)},
		{SheetStages, stageRows(d)},
	}

	for _, s := range sheets {
		f.NewSheet(s.name)
		for r, row := range s.rows {
			cell, err := xlsx.CoordinatesToCellName(1, r+1)
			if err != nil {
				return nil, err
			}
			row := row
			if err := f.SetSheetRow(s.name, cell, &row); err != nil {
				return nil, fmt.Errorf("error while writing %s row %d: %w", s.name, r+1, err)
			}
		}
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(f.GetSheetIndex(SheetObserved))

	return f, nil
}

func WriteWorkbook(w io.Writer, d Data) error {
	f, err := Workbook(d)
	if err != nil {
		return err
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error while writing workbook: %w", err)
	}
	return nil
}

// SaveWorkbook writes dir/pager_losses.xlsx and returns the path.
func SaveWorkbook(dir string, d Data) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error while creating output directory: %w", err)
	}
	f, err := Workbook(d)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "pager_losses.xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error while saving %s: %w", path, err)
	}
	return path, nil
}

func observedRows(impacts []models.Impact) [][]interface{} {
	rows := [][]interface{}{{
		"hydra_id", "hydra_time", "magnitude", "LossExtent", "EffectType",
		"LossQuantifier", "LossValue", "Location", "CollectionSource", "database_id", "comment",
	}}
	for _, imp := range impacts {
		p := imp.Passport
		rows = append(rows, []interface{}{
			imp.HydraID, imp.HydraTime, imp.Magnitude, p.LossExtent, p.EffectType,
			p.LossQuantifier, p.LossValue, p.Location, p.CollectionSource, p.DatabaseID, p.Comment,
		})
	}
	return rows
}

func mergedRows(merged []models.Merged) [][]interface{} {
	header := []interface{}{
		"eventid", "time", "latitude", "longitude", "depth", "magnitude",
		"observed_deaths", "predicted_deaths", "observed_alert", "predicted_alert",
	}
	for _, level := range models.MMILevels {
		header = append(header, fmt.Sprintf("mmi%d", level))
	}

	rows := [][]interface{}{header}
	for _, m := range merged {
		e := m.Exposure
		row := []interface{}{
			e.EventID, e.Time, e.Latitude, e.Longitude, e.Depth, m.Impact.Magnitude,
			m.Impact.Passport.LossValue, e.PredictedDeaths, string(m.ObservedLevel), string(m.PredictedLevel),
		}
		for _, level := range models.MMILevels {
			row = append(row, e.MMI(level))
		}
		rows = append(rows, row)
	}
	return rows
}

func alertRows(d Data) [][]interface{} {
	header := []interface{}{"observed \\ predicted"}
	for _, b := range models.AlertBands {
		header = append(header, string(b.Level))
	}

	rows := [][]interface{}{header}
	for _, obs := range models.AlertBands {
		row := []interface{}{string(obs.Level)}
		for _, pred := range models.AlertBands {
			row = append(row, d.Alerts.Matrix[obs.Level][pred.Level])
		}
		rows = append(rows, row)
	}
	rows = append(rows,
		[]interface{}{},
		[]interface{}{"agree", d.Alerts.Agree},
		[]interface{}{"under", d.Alerts.Under},
		[]interface{}{"over", d.Alerts.Over},
	)
	return rows
}

func histogramRows(d Data) [][]interface{} {
	rows := [][]interface{}{{"min", "max", "count"}}
	for _, b := range d.Histogram {
		rows = append(rows, []interface{}{b.Min, b.Max, b.Count})
	}
	return rows
}

func stageRows(d Data) [][]interface{} {
	rows := [][]interface{}{{"stage", "records"}}
	for _, s := range d.Stages {
		rows = append(rows, []interface{}{s.Stage, s.Records})
	}
	return rows
}
