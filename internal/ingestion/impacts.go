package ingestion

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/mr1hm/go-pager-losses/internal/models"
)

const impactColumns = 5

type ReadOptions struct {
	HeaderLines int
	FooterLines int
}

// ReadStats counts what the reader did with each line of the file.
type ReadStats struct {
	TotalLines    int
	HeaderSkipped int
	FooterSkipped int
	BlankSkipped  int
	Records       int

	// FooterLikeData counts skipped footer lines that parse as data rows.
	FooterLikeData int
}

// RowError reports a data line that could not be split or typed.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

func ReadImpactsFile(path string, opts ReadOptions) ([]models.Impact, *ReadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening impacts file: %w", err)
	}
	defer f.Close()

	return ReadImpacts(f, opts)
}

// ReadImpacts parses a pipe-delimited impact report. The first
// opts.HeaderLines lines and the last opts.FooterLines non-blank lines are
// skipped by position. Passport entries are returned raw; decoding happens
// in a later stage.
func ReadImpacts(r io.Reader, opts ReadOptions) ([]models.Impact, *ReadStats, error) {
	type line struct {
		num  int
		text string
	}

	var lines []line
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		lines = append(lines, line{num: n, text: strings.TrimRight(scanner.Text(), "\r")})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("error reading impacts: %w", err)
	}

	stats := &ReadStats{TotalLines: n}

	// Trailing blank lines are not part of the footer.
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1].text) == "" {
		lines = lines[:len(lines)-1]
		stats.BlankSkipped++
	}

	header := min(opts.HeaderLines, len(lines))
	stats.HeaderSkipped = header
	lines = lines[header:]

	footer := min(opts.FooterLines, len(lines))
	stats.FooterSkipped = footer
	for _, l := range lines[len(lines)-footer:] {
		if _, err := parseImpactRow(l.text); err == nil {
			stats.FooterLikeData++
			slog.Warn("skipped footer line looks like a data row", "line", l.num)
		}
	}
	lines = lines[:len(lines)-footer]

	impacts := make([]models.Impact, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l.text) == "" {
			stats.BlankSkipped++
			continue
		}
		imp, err := parseImpactRow(l.text)
		if err != nil {
			return nil, stats, &RowError{Line: l.num, Err: err}
		}
		imp.Line = l.num
		impacts = append(impacts, imp)
	}
	stats.Records = len(impacts)

	return impacts, stats, nil
}

// parseImpactRow splits id|time|magnitude|command|passport.
func parseImpactRow(text string) (models.Impact, error) {
	parts := strings.SplitN(text, "|", impactColumns)
	if len(parts) != impactColumns {
		return models.Impact{}, fmt.Errorf("expected %d fields, got %d", impactColumns, len(parts))
	}

	id := strings.TrimSpace(parts[0])
	if id == "" {
		return models.Impact{}, fmt.Errorf("empty event id")
	}

	ts, err := parseTime(parts[1])
	if err != nil {
		return models.Impact{}, err
	}

	mag, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return models.Impact{}, fmt.Errorf("invalid magnitude: %w", err)
	}

	return models.Impact{
		HydraID:       id,
		HydraTime:     ts,
		Magnitude:     mag,
		Command:       parts[3],
		PassportEntry: parts[4],
	}, nil
}
