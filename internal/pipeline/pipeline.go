// Package pipeline runs the impact stages end to end: read, clean, filter by
// command, decode passports, filter losses, deduplicate, gather exposures,
// join and summarize.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mr1hm/go-pager-losses/internal/analysis"
	"github.com/mr1hm/go-pager-losses/internal/ingestion"
	"github.com/mr1hm/go-pager-losses/internal/metrics"
	"github.com/mr1hm/go-pager-losses/internal/models"
	"github.com/mr1hm/go-pager-losses/internal/report"
	"github.com/mr1hm/go-pager-losses/internal/repository"
)

const (
	StageRead         = "read"
	StageCommand      = "command"
	StageDecoded      = "decoded"
	StageObserved     = "observed"
	StageDeduplicated = "deduplicated"
	StageExposures    = "exposures"
	StageMerged       = "merged"
)

type Options struct {
	ImpactsFile  string
	Read         ingestion.ReadOptions
	Command      string
	Criteria     analysis.Criteria
	HistBinWidth float64
}

// Deps are the collaborators of a run. Any of them may be nil: without a
// Store nothing is cached, without a Fetcher only cached exposures are
// joined.
type Deps struct {
	Store   repository.ExposureStore
	Fetcher *ingestion.Fetcher
	Metrics *metrics.Collector
}

type Result struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration

	Read   ingestion.ReadStats
	Decode analysis.DecodeStats
	Fetch  *ingestion.FetchStats // nil when nothing was fetched

	Observed  []models.Impact
	Exposures []models.Exposure
	Merged    []models.Merged
	Histogram []analysis.Bin
	Points    []analysis.FatalityPoint
	Alerts    analysis.AlertSummary
	Stages    []report.StageCount
}

// ReportData adapts the result for the report package.
func (r *Result) ReportData() report.Data {
	return report.Data{
		RunID:     r.RunID,
		Observed:  r.Observed,
		Merged:    r.Merged,
		Histogram: r.Histogram,
		Alerts:    r.Alerts,
		Stages:    r.Stages,
	}
}

func (r *Result) stage(m *metrics.Collector, name string, n int) {
	r.Stages = append(r.Stages, report.StageCount{Stage: name, Records: n})
	m.SetStage(name, n)
}

// Run executes one pass over the impacts file.
func Run(ctx context.Context, opts Options, deps Deps) (*Result, error) {
	res := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	log := slog.With("run_id", res.RunID)
	log.Info("pipeline started", "file", opts.ImpactsFile)

	res, err := run(ctx, res, log, opts, deps)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	deps.Metrics.RecordRun(outcome, time.Since(res.StartedAt))
	if err != nil {
		log.Error("pipeline failed", "error", err)
		return nil, err
	}

	res.Duration = time.Since(res.StartedAt)
	log.Info("pipeline finished", "merged", len(res.Merged), "duration", res.Duration)
	return res, nil
}

func run(ctx context.Context, res *Result, log *slog.Logger, opts Options, deps Deps) (*Result, error) {
	m := deps.Metrics

	if err := observe(res, log, opts, m); err != nil {
		return res, err
	}

	var err error
	res.Exposures, res.Fetch, err = gatherExposures(ctx, res.RunID, log, analysis.EventIDs(res.Observed), deps)
	if err != nil {
		return res, err
	}
	res.stage(m, StageExposures, len(res.Exposures))

	res.Merged = analysis.InnerJoin(res.Observed, res.Exposures)
	res.stage(m, StageMerged, len(res.Merged))
	if dropped := len(res.Observed) - len(res.Merged); dropped > 0 {
		log.Info("observed events without a PAGER prediction dropped from join", "count", dropped)
	}

	res.Histogram, err = analysis.Histogram(analysis.Magnitudes(res.Observed), opts.HistBinWidth)
	if err != nil {
		return res, fmt.Errorf("error while binning magnitudes: %w", err)
	}
	res.Points = analysis.FatalityPoints(res.Merged)
	res.Alerts = analysis.SummarizeAlerts(res.Merged)

	return res, nil
}

// observe runs the file stages up to and including deduplication.
func observe(res *Result, log *slog.Logger, opts Options, m *metrics.Collector) error {
	impacts, readStats, err := ingestion.ReadImpactsFile(opts.ImpactsFile, opts.Read)
	if err != nil {
		return err
	}
	res.Read = *readStats
	m.AddRecordsRead(len(impacts))
	res.stage(m, StageRead, len(impacts))

	impacts = analysis.Clean(impacts)
	impacts = analysis.FilterCommand(impacts, opts.Command)
	res.stage(m, StageCommand, len(impacts))

	impacts, res.Decode, err = analysis.DecodePassports(impacts)
	if err != nil {
		m.RecordDecodeError()
		return err
	}
	for i := 0; i < res.Decode.Truncated; i++ {
		m.RecordTruncated()
	}
	res.stage(m, StageDecoded, len(impacts))

	impacts = analysis.FilterLoss(impacts, opts.Criteria)
	res.stage(m, StageObserved, len(impacts))

	key := analysis.ByEvent
	if opts.Criteria.LossExtent == "" || opts.Criteria.EffectType == "" {
		key = analysis.ByEventLoss
	}
	res.Observed = analysis.DedupMaxLossBy(impacts, key)
	res.stage(m, StageDeduplicated, len(res.Observed))
	log.Debug("observed losses deduplicated", "before", len(impacts), "after", len(res.Observed))

	return nil
}

// ObservedEventIDs reads the impacts file through deduplication and returns
// the distinct event ids in time order.
func ObservedEventIDs(opts Options) ([]string, error) {
	res := &Result{}
	if err := observe(res, slog.Default(), opts, nil); err != nil {
		return nil, err
	}
	return analysis.EventIDs(res.Observed), nil
}

// gatherExposures loads cached exposures and fetches the ids the cache lacks.
// Newly fetched rows are written back to the store.
func gatherExposures(ctx context.Context, runID string, log *slog.Logger, ids []string, deps Deps) ([]models.Exposure, *ingestion.FetchStats, error) {
	var cached []models.Exposure
	if deps.Store != nil {
		var err error
		cached, err = deps.Store.Load(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("error while loading exposure cache: %w", err)
		}
		log.Info("exposure cache loaded", "count", len(cached))
	}

	missing := analysis.MissingIDs(ids, cached)
	if len(missing) == 0 || deps.Fetcher == nil {
		if len(missing) > 0 {
			log.Warn("exposures missing and fetching disabled", "count", len(missing))
		}
		return cached, nil, nil
	}

	fetched, stats, err := deps.Fetcher.WithRunID(runID).FetchAll(ctx, missing)
	if err != nil {
		return nil, stats, fmt.Errorf("error while fetching PAGER exposures: %w", err)
	}

	if deps.Store != nil && len(fetched) > 0 {
		if err := deps.Store.Save(ctx, fetched); err != nil {
			return nil, stats, fmt.Errorf("error while saving exposure cache: %w", err)
		}
		log.Info("exposure cache updated", "added", len(fetched))
	}

	return append(cached, fetched...), stats, nil
}
