package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mr1hm/go-pager-losses/internal/pipeline"
	"github.com/mr1hm/go-pager-losses/internal/report"
)

var binWidth float64

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline and write charts, workbook and summary",
	Long: `Reads the impact file, joins observed deaths with PAGER predictions and
writes magnitude_hist and fatalities_loglog charts plus pager_losses.xlsx to
the output directory. A text summary is printed to stdout.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().Float64Var(&binWidth, "bin-width", 0, "histogram bin width; 0 counts each magnitude (HIST_BIN_WIDTH)")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("bin-width") {
		cfg.Output.HistBinWidth = binWidth
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()
	a.logProgress()

	res, err := a.run(ctx)
	if err != nil {
		return err
	}

	if err := writeReports(res, cfg.Output.Dir, cfg.Output.ChartFormat); err != nil {
		return err
	}
	return report.WriteSummary(cmd.OutOrStdout(), res.ReportData())
}

func writeReports(res *pipeline.Result, dir, format string) error {
	if len(res.Histogram) > 0 {
		p, err := report.HistogramChart(res.Histogram)
		if err != nil {
			return err
		}
		path, err := report.SaveChart(p, dir, "magnitude_hist", format)
		if err != nil {
			return err
		}
		slog.Info("chart written", "path", path)
	}

	if len(res.Points) > 0 {
		p, err := report.FatalityChart(res.Points)
		if err != nil {
			return err
		}
		path, err := report.SaveChart(p, dir, "fatalities_loglog", format)
		if err != nil {
			return err
		}
		slog.Info("chart written", "path", path)
	} else {
		slog.Warn("no merged events, skipping fatality chart")
	}

	path, err := report.SaveWorkbook(dir, res.ReportData())
	if err != nil {
		return fmt.Errorf("error while writing workbook: %w", err)
	}
	slog.Info("workbook written", "path", path)
	return nil
}
