package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mr1hm/go-pager-losses/internal/models"
	"github.com/mr1hm/go-pager-losses/internal/repository"
)

// setupEnv points every path setting at testdata or a temp dir.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	cache := filepath.Join(dir, "exposures.csv")
	data, err := os.ReadFile(filepath.Join("testdata", "exposures.csv"))
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}
	if err := os.WriteFile(cache, data, 0o644); err != nil {
		t.Fatalf("failed to write cache: %v", err)
	}

	t.Setenv("CONFIG_FILE", "")
	t.Setenv("IMPACTS_FILE", filepath.Join("testdata", "impacts.txt"))
	t.Setenv("EXPOSURE_STORE", "csv")
	t.Setenv("EXPOSURE_CACHE", cache)
	t.Setenv("OUTPUT_DIR", filepath.Join(dir, "out"))
	t.Setenv("USGS_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v failed: %v", args, err)
	}
	return out.String()
}

func TestRunCmd(t *testing.T) {
	dir := setupEnv(t)

	out := execute(t, "run")

	if !strings.Contains(out, "PAGER loss comparison") {
		t.Errorf("expected summary on stdout, got %q", out)
	}
	if !strings.Contains(out, "us20002926") || !strings.Contains(out, "us10004u1y") {
		t.Errorf("expected both merged events in summary, got %q", out)
	}
	for _, name := range []string{"magnitude_hist.png", "fatalities_loglog.png", "pager_losses.xlsx"} {
		if _, err := os.Stat(filepath.Join(dir, "out", name)); err != nil {
			t.Errorf("expected %s to be written: %v", name, err)
		}
	}
}

func TestInspectCmd(t *testing.T) {
	setupEnv(t)

	out := execute(t, "inspect", "--limit", "2")

	if !strings.Contains(out, "records 7") {
		t.Errorf("expected line accounting, got %q", out)
	}
	if !strings.Contains(out, "LossValue        8500") {
		t.Errorf("expected decoded passport fields, got %q", out)
	}
	if strings.Contains(out, "us10004u1y") {
		t.Errorf("limit not applied: %q", out)
	}
}

func TestFetchCmd_RequiresUSGS(t *testing.T) {
	setupEnv(t)

	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"fetch"})
	if err := rootCmd.Execute(); err == nil {
		t.Error("expected fetch to fail with USGS disabled")
	}
}

func TestPredictionChanges(t *testing.T) {
	store := repository.NewCSVStore(filepath.Join("testdata", "exposures.csv"))

	fetched := []models.Exposure{
		{EventID: "us20002926", PredictedDeaths: 1000},
		{EventID: "us10004u1y", PredictedDeaths: 3},
		{EventID: "us1000731j", PredictedDeaths: 50},
	}
	changes, err := predictionChanges(context.Background(), store, fetched)
	if err != nil {
		t.Fatalf("predictionChanges failed: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %+v", changes)
	}
	want := predictionChange{id: "us10004u1y", before: 0, after: 3}
	if changes[0] != want {
		t.Errorf("expected %+v, got %+v", want, changes[0])
	}
}
