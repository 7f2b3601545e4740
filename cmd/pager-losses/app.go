package main

import (
	"context"
	"log/slog"

	"github.com/mr1hm/go-pager-losses/internal/analysis"
	"github.com/mr1hm/go-pager-losses/internal/config"
	"github.com/mr1hm/go-pager-losses/internal/ingestion"
	"github.com/mr1hm/go-pager-losses/internal/metrics"
	"github.com/mr1hm/go-pager-losses/internal/pipeline"
	"github.com/mr1hm/go-pager-losses/internal/progress"
	"github.com/mr1hm/go-pager-losses/internal/repository"
)

// app wires the collaborators shared by every subcommand.
type app struct {
	cfg         *config.Config
	store       repository.ExposureStore
	fetcher     *ingestion.Fetcher
	metrics     *metrics.Collector
	broadcaster *progress.Broadcaster
}

func newApp(c *config.Config) (*app, error) {
	store, err := repository.Open(c.Exposure.Store, c.ExposurePath())
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:         c,
		store:       store,
		metrics:     metrics.NewCollector("pager_losses"),
		broadcaster: progress.NewBroadcaster(),
	}

	if c.USGS.Enabled {
		client := ingestion.NewUSGSClient(c.USGS.DetailURL, c.USGS.Timeout, c.USGS.RateLimit)
		a.fetcher = ingestion.NewFetcher(ingestion.FetcherConfig{
			Workers:    c.Worker.Count,
			BufferSize: c.Worker.BufferSize,
		}, client, client, a.broadcaster, a.metrics)
	} else {
		slog.Info("USGS lookups disabled, using cached exposures only")
	}

	return a, nil
}

func (a *app) close() {
	a.broadcaster.Close()
	if err := a.store.Close(); err != nil {
		slog.Error("error closing exposure store", "error", err)
	}
}

func (a *app) options() pipeline.Options {
	return pipeline.Options{
		ImpactsFile: a.cfg.Impacts.File,
		Read: ingestion.ReadOptions{
			HeaderLines: a.cfg.Impacts.HeaderLines,
			FooterLines: a.cfg.Impacts.FooterLines,
		},
		Command: a.cfg.Impacts.Command,
		Criteria: analysis.Criteria{
			LossExtent: a.cfg.Impacts.LossExtent,
			EffectType: a.cfg.Impacts.EffectType,
		},
		HistBinWidth: a.cfg.Output.HistBinWidth,
	}
}

func (a *app) run(ctx context.Context) (*pipeline.Result, error) {
	return pipeline.Run(ctx, a.options(), pipeline.Deps{
		Store:   a.store,
		Fetcher: a.fetcher,
		Metrics: a.metrics,
	})
}

// logProgress writes fetch progress to the log until the broadcaster closes.
func (a *app) logProgress() {
	_, events := a.broadcaster.Subscribe()
	go func() {
		for ev := range events {
			attrs := []any{"run_id", ev.RunID, "status", ev.Status, "index", ev.Index, "total", ev.Total}
			if ev.EventID != "" {
				attrs = append(attrs, "id", ev.EventID)
			}
			slog.Debug("fetch progress", attrs...)
		}
	}()
}
