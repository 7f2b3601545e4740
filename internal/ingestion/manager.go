package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mr1hm/go-pager-losses/internal/metrics"
	"github.com/mr1hm/go-pager-losses/internal/models"
	"github.com/mr1hm/go-pager-losses/internal/progress"
	"github.com/mr1hm/go-pager-losses/internal/worker"
)

type FetcherConfig struct {
	Workers    int
	BufferSize int
	RunID      string
}

// FetchStats counts outcomes of a FetchAll batch.
type FetchStats struct {
	Requested int
	Fetched   int
	NotFound  int
	NoData    int
	Skipped   []string // ids with no row produced
}

type fetchJob struct {
	index int
	id    string
}

// Fetcher looks up PAGER exposures one event at a time.
type Fetcher struct {
	cfg      FetcherConfig
	catalog  EventCatalog
	pager    PagerSource
	progress *progress.Broadcaster
	metrics  *metrics.Collector
}

func NewFetcher(cfg FetcherConfig, catalog EventCatalog, pager PagerSource, b *progress.Broadcaster, m *metrics.Collector) *Fetcher {
	return &Fetcher{
		cfg:      cfg,
		catalog:  catalog,
		pager:    pager,
		progress: b,
		metrics:  m,
	}
}

// FetchAll returns exposures for ids in input order. Events unknown to the
// catalog or never scored by PAGER are skipped with a warning. Any other
// error stops the batch and is returned.
func (f *Fetcher) FetchAll(ctx context.Context, ids []string) ([]models.Exposure, *FetchStats, error) {
	stats := &FetchStats{Requested: len(ids)}
	if len(ids) == 0 {
		return nil, stats, nil
	}

	parent := ctx
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var (
		mu       sync.Mutex
		results  = make([]*models.Exposure, len(ids))
		firstErr error
	)

	processor := func(ctx context.Context, job worker.Job) error {
		j := job.(fetchJob)
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()

		exp, err := f.fetchOne(ctx, j.id)
		status := statusFor(err)
		f.metrics.RecordFetch(string(status), time.Since(start))

		ev := progress.Event{
			RunID:   f.cfg.RunID,
			EventID: j.id,
			Index:   j.index + 1,
			Total:   len(ids),
			Status:  status,
		}
		if err != nil {
			ev.Error = err.Error()
		}
		f.progress.Publish(ev)

		mu.Lock()
		defer mu.Unlock()
		switch status {
		case progress.StatusFetched:
			results[j.index] = exp
			stats.Fetched++
			return nil
		case progress.StatusNotFound:
			stats.NotFound++
			stats.Skipped = append(stats.Skipped, j.id)
			slog.Warn("event not found in catalog, skipping", "id", j.id)
			return nil
		case progress.StatusNoData:
			stats.NoData++
			stats.Skipped = append(stats.Skipped, j.id)
			slog.Warn("no PAGER data for event, skipping", "id", j.id)
			return nil
		default:
			return fmt.Errorf("event %s: %w", j.id, err)
		}
	}

	pool := worker.NewWorkerPool(f.cfg.Workers, f.cfg.BufferSize, processor)
	pool.OnError(func(job worker.Job, err error) {
		mu.Lock()
		if firstErr == nil && !errors.Is(err, context.Canceled) {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	})
	pool.Start(ctx)

	slog.Info("fetching PAGER exposures", "count", len(ids), "workers", f.cfg.Workers)
	f.progress.Publish(progress.Event{RunID: f.cfg.RunID, Total: len(ids), Status: progress.StatusStarted})
	for i, id := range ids {
		if err := pool.Submit(ctx, fetchJob{index: i, id: id}); err != nil {
			break
		}
	}
	pool.Stop()

	if firstErr != nil {
		return nil, stats, firstErr
	}
	if err := parent.Err(); err != nil {
		return nil, stats, err
	}

	exposures := make([]models.Exposure, 0, stats.Fetched)
	for _, e := range results {
		if e != nil {
			exposures = append(exposures, *e)
		}
	}

	f.progress.Publish(progress.Event{RunID: f.cfg.RunID, Index: len(ids), Total: len(ids), Status: progress.StatusDone})
	slog.Info("PAGER fetch complete",
		"requested", stats.Requested,
		"fetched", stats.Fetched,
		"not_found", stats.NotFound,
		"no_data", stats.NoData,
	)
	return exposures, stats, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, id string) (*models.Exposure, error) {
	ev, err := f.catalog.EventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return f.pager.PagerExposure(ctx, ev)
}

func statusFor(err error) progress.Status {
	switch {
	case err == nil:
		return progress.StatusFetched
	case errors.Is(err, ErrEventNotFound):
		return progress.StatusNotFound
	case errors.Is(err, ErrNoPagerData):
		return progress.StatusNoData
	default:
		return progress.StatusFailed
	}
}

// WithRunID returns a copy of f that tags progress events with id.
func (f *Fetcher) WithRunID(id string) *Fetcher {
	c := *f
	c.cfg.RunID = id
	return &c
}
