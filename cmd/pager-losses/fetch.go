package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mr1hm/go-pager-losses/internal/analysis"
	"github.com/mr1hm/go-pager-losses/internal/models"
	"github.com/mr1hm/go-pager-losses/internal/pipeline"
	"github.com/mr1hm/go-pager-losses/internal/repository"
)

var refetch bool

var fetchCmd = &cobra.Command{
	Use:   "fetch [event-id...]",
	Short: "Fill the exposure cache from the USGS catalog",
	Long: `Looks up PAGER predictions for the given event ids, or for every observed
event in the impact file when no ids are given, and saves them to the
exposure cache. Ids already cached are skipped unless --refetch is set.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&refetch, "refetch", false, "fetch ids even if already cached")
}

func runFetch(cmd *cobra.Command, args []string) error {
	if !cfg.USGS.Enabled {
		return fmt.Errorf("fetch needs USGS lookups enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()
	a.logProgress()

	ids := args
	if len(ids) == 0 {
		ids, err = pipeline.ObservedEventIDs(a.options())
		if err != nil {
			return err
		}
	}

	if !refetch {
		cached, err := a.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("error while loading exposure cache: %w", err)
		}
		ids = analysis.MissingIDs(ids, cached)
	}

	out := cmd.OutOrStdout()
	if len(ids) == 0 {
		fmt.Fprintln(out, "exposure cache is up to date")
		return nil
	}

	exposures, stats, err := a.fetcher.FetchAll(ctx, ids)
	if err != nil {
		return err
	}
	changes, err := predictionChanges(ctx, a.store, exposures)
	if err != nil {
		return err
	}
	if err := a.store.Save(ctx, exposures); err != nil {
		return fmt.Errorf("error while saving exposure cache: %w", err)
	}

	fmt.Fprintf(out, "requested %d, fetched %d, not in catalog %d, no PAGER data %d\n",
		stats.Requested, stats.Fetched, stats.NotFound, stats.NoData)
	for _, id := range stats.Skipped {
		fmt.Fprintf(out, "  skipped %s\n", id)
	}
	for _, ch := range changes {
		fmt.Fprintf(out, "  updated %s: predicted deaths %d -> %d\n", ch.id, ch.before, ch.after)
	}
	return nil
}

type predictionChange struct {
	id            string
	before, after int64
}

// predictionChanges compares fetched rows with what the store already holds.
// Ids not yet cached are not changes.
func predictionChanges(ctx context.Context, store repository.ExposureStore, fetched []models.Exposure) ([]predictionChange, error) {
	var changes []predictionChange
	for _, e := range fetched {
		old, err := store.Get(ctx, e.EventID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error while reading cached exposure: %w", err)
		}
		if old.PredictedDeaths != e.PredictedDeaths {
			changes = append(changes, predictionChange{id: e.EventID, before: old.PredictedDeaths, after: e.PredictedDeaths})
		}
	}
	return changes, nil
}
