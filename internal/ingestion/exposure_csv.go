package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mr1hm/go-pager-losses/internal/models"
)

// ExposureColumns is the column order of the exposure cache CSV.
var ExposureColumns = []string{
	"eventid", "time", "latitude", "longitude", "depth", "magnitude",
	"predicted_deaths", "mmi5", "mmi6", "mmi7", "mmi8", "mmi9", "mmi10",
}

func ReadExposureCSV(r io.Reader) ([]models.Exposure, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading exposure header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range ExposureColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("exposure CSV missing column %q", col)
		}
	}

	var exposures []models.Exposure
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading exposure row: %w", err)
		}
		line, _ := cr.FieldPos(0)

		e, err := exposureFromRow(row, index)
		if err != nil {
			return nil, &RowError{Line: line, Err: err}
		}
		exposures = append(exposures, e)
	}

	return exposures, nil
}

func exposureFromRow(row []string, index map[string]int) (models.Exposure, error) {
	get := func(col string) string {
		return strings.TrimSpace(row[index[col]])
	}

	var (
		e   models.Exposure
		err error
	)
	e.EventID = get("eventid")
	if e.EventID == "" {
		return e, fmt.Errorf("empty eventid")
	}
	if e.Time, err = parseTime(get("time")); err != nil {
		return e, err
	}
	if e.Latitude, err = parseFloat(get("latitude")); err != nil {
		return e, fmt.Errorf("latitude: %w", err)
	}
	if e.Longitude, err = parseFloat(get("longitude")); err != nil {
		return e, fmt.Errorf("longitude: %w", err)
	}
	if e.Depth, err = parseFloat(get("depth")); err != nil {
		return e, fmt.Errorf("depth: %w", err)
	}
	if e.Magnitude, err = parseFloat(get("magnitude")); err != nil {
		return e, fmt.Errorf("magnitude: %w", err)
	}
	if e.PredictedDeaths, err = parseCount(get("predicted_deaths")); err != nil {
		return e, fmt.Errorf("predicted_deaths: %w", err)
	}
	for _, level := range models.MMILevels {
		col := "mmi" + strconv.Itoa(level)
		v, err := parseCount(get(col))
		if err != nil {
			return e, fmt.Errorf("%s: %w", col, err)
		}
		e.SetMMI(level, v)
	}
	return e, nil
}

func WriteExposureCSV(w io.Writer, exposures []models.Exposure) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExposureColumns); err != nil {
		return fmt.Errorf("error writing exposure header: %w", err)
	}

	for _, e := range exposures {
		row := []string{
			e.EventID,
			e.Time.UTC().Format(time.RFC3339Nano),
			strconv.FormatFloat(e.Latitude, 'f', -1, 64),
			strconv.FormatFloat(e.Longitude, 'f', -1, 64),
			strconv.FormatFloat(e.Depth, 'f', -1, 64),
			strconv.FormatFloat(e.Magnitude, 'f', -1, 64),
			strconv.FormatInt(e.PredictedDeaths, 10),
		}
		for _, level := range models.MMILevels {
			row = append(row, strconv.FormatInt(e.MMI(level), 10))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("error writing exposure %s: %w", e.EventID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// parseCount reads integer counts that may have been written as floats
// ("1234.0") by spreadsheet tools. Empty and NaN read as 0.
func parseCount(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) {
		return 0, nil
	}
	if math.IsInf(f, 0) || math.Abs(f) >= math.MaxInt64 {
		return 0, fmt.Errorf("count %q out of range", s)
	}
	return int64(math.Round(f)), nil
}
