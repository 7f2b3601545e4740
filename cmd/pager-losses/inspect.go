package main

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/mr1hm/go-pager-losses/internal/analysis"
	"github.com/mr1hm/go-pager-losses/internal/ingestion"
	"github.com/mr1hm/go-pager-losses/internal/models"
	"github.com/mr1hm/go-pager-losses/internal/passport"
)

var (
	inspectLimit int
	inspectDump  bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show how the impact file is read and decoded",
	Long: `Reads the impact file without contacting any service and prints the line
accounting, then the first records with their passport fields. With --dump
each record is printed in full.`,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().IntVarP(&inspectLimit, "limit", "n", 10, "records to show")
	inspectCmd.Flags().BoolVar(&inspectDump, "dump", false, "dump full records")
}

func runInspect(cmd *cobra.Command, args []string) error {
	impacts, stats, err := ingestion.ReadImpactsFile(cfg.Impacts.File, ingestion.ReadOptions{
		HeaderLines: cfg.Impacts.HeaderLines,
		FooterLines: cfg.Impacts.FooterLines,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", cfg.Impacts.File)
	fmt.Fprintf(out, "  lines %d, header %d, footer %d, blank %d, records %d\n",
		stats.TotalLines, stats.HeaderSkipped, stats.FooterSkipped, stats.BlankSkipped, stats.Records)
	if stats.FooterLikeData > 0 {
		fmt.Fprintf(out, "  warning: %d skipped footer lines parse as data rows\n", stats.FooterLikeData)
	}

	impacts = analysis.Clean(impacts)
	commands := make(map[string]int)
	for _, imp := range impacts {
		commands[imp.Command]++
	}
	fmt.Fprintf(out, "  commands %v\n\n", commands)

	if inspectLimit >= 0 && inspectLimit < len(impacts) {
		impacts = impacts[:inspectLimit]
	}
	for _, imp := range impacts {
		showImpact(out, imp)
	}
	return nil
}

func showImpact(w io.Writer, imp models.Impact) {
	p, overflow, err := passport.Parse(imp.PassportEntry)
	if err != nil {
		fmt.Fprintf(w, "line %d %s: %v\n", imp.Line, imp.HydraID, err)
		return
	}
	imp.Passport = p

	if inspectDump {
		spew.Fdump(w, imp)
		return
	}

	fmt.Fprintf(w, "line %d %s %s M%.1f %s\n", imp.Line, imp.HydraID,
		imp.HydraTime.Format("2006-01-02T15:04:05Z"), imp.Magnitude, imp.Command)
	fields, _ := passport.Decode(imp.PassportEntry)
	for _, name := range passport.FieldNames {
		if v, ok := fields[name]; ok {
			fmt.Fprintf(w, "    %-16s %s\n", name, v)
		}
	}
	if overflow > 0 {
		fmt.Fprintf(w, "    (%d tokens past comment dropped)\n", overflow)
	}
}
