package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mr1hm/go-pager-losses/internal/config"
	"github.com/mr1hm/go-pager-losses/internal/logging"
)

var (
	cfg *config.Config

	impactsFile string
	storeKind   string
	storePath   string
	outputDir   string
	workers     int
	logLevel    string
	noFetch     bool
)

var rootCmd = &cobra.Command{
	Use:   "pager-losses",
	Short: "Compare observed earthquake fatalities with PAGER predictions",
	Long: `pager-losses reads an impact report export, decodes the passport entries,
keeps one observed fatality count per event and joins it with the PAGER
loss prediction for that event, from a local cache or the USGS catalog.

Settings come from the environment (and .env), an optional YAML file named
by CONFIG_FILE, and the flags below, in increasing order of precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("error while loading config: %w", err)
		}
		applyFlags(cmd, c)
		if err := c.Validate(); err != nil {
			return err
		}

		logging.Setup(c.Logging.Level, c.Logging.Format)
		cfg = c
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&impactsFile, "impacts", "i", "", "impact report file (IMPACTS_FILE)")
	pf.StringVar(&storeKind, "store", "", "exposure cache backend: csv or sqlite (EXPOSURE_STORE)")
	pf.StringVar(&storePath, "cache", "", "exposure cache path for the selected backend")
	pf.StringVarP(&outputDir, "output", "o", "", "report output directory (OUTPUT_DIR)")
	pf.IntVarP(&workers, "workers", "w", 0, "concurrent PAGER lookups (WORKER_COUNT)")
	pf.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (LOG_LEVEL)")
	pf.BoolVar(&noFetch, "no-fetch", false, "never call the USGS catalog; use cached exposures only")

	rootCmd.AddCommand(runCmd, fetchCmd, serveCmd, inspectCmd)
}

// applyFlags copies explicitly set flags over the loaded config.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("impacts") {
		c.Impacts.File = impactsFile
	}
	if flags.Changed("store") {
		c.Exposure.Store = storeKind
	}
	if flags.Changed("cache") {
		if c.Exposure.Store == "sqlite" {
			c.Exposure.DBPath = storePath
		} else {
			c.Exposure.Cache = storePath
		}
	}
	if flags.Changed("output") {
		c.Output.Dir = outputDir
	}
	if flags.Changed("workers") {
		c.Worker.Count = workers
	}
	if flags.Changed("log-level") {
		c.Logging.Level = logLevel
	}
	if noFetch {
		c.USGS.Enabled = false
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.Fatalf("Fatal: %v", err)
	}
}
