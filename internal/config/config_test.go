package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Impacts.HeaderLines)
	assert.Equal(t, 3, cfg.Impacts.FooterLines)
	assert.Equal(t, "PubFlagsAddImpact", cfg.Impacts.Command)
	assert.Equal(t, "Deaths", cfg.Impacts.LossExtent)
	assert.Equal(t, "Shaking", cfg.Impacts.EffectType)
	assert.Equal(t, 1, cfg.Worker.Count)
	assert.Equal(t, "csv", cfg.Exposure.Store)
	assert.Equal(t, cfg.Exposure.Cache, cfg.ExposurePath())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("IMPACTS_FOOTER_LINES", "5")
	t.Setenv("WORKER_COUNT", "4")
	t.Setenv("USGS_TIMEOUT", "5s")
	t.Setenv("USGS_RATE_LIMIT", "0.5")
	t.Setenv("HIST_BIN_WIDTH", "0.25")
	t.Setenv("USGS_ENABLED", "false")
	t.Setenv("EXPOSURE_STORE", "sqlite")
	t.Setenv("DB_PATH", "/tmp/x.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Impacts.FooterLines)
	assert.Equal(t, 4, cfg.Worker.Count)
	assert.Equal(t, 5*time.Second, cfg.USGS.Timeout)
	assert.Equal(t, 0.5, cfg.USGS.RateLimit)
	assert.Equal(t, 0.25, cfg.Output.HistBinWidth)
	assert.False(t, cfg.USGS.Enabled)
	assert.Equal(t, "/tmp/x.db", cfg.ExposurePath())
}

func TestLoad_BadEnvFallsBack(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SERVER_PORT", "not-a-port")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_YAMLOverlayThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
impacts:
  file: /data/impacts.txt
  footer_lines: 2
output:
  chart_format: svg
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/impacts.txt", cfg.Impacts.File)
	assert.Equal(t, 2, cfg.Impacts.FooterLines)
	assert.Equal(t, 1, cfg.Impacts.HeaderLines, "keys absent from the file keep defaults")
	assert.Equal(t, "svg", cfg.Output.ChartFormat)
	assert.Equal(t, "warn", cfg.Logging.Level, "env wins over the file")
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"footer", func(c *Config) { c.Impacts.FooterLines = -1 }},
		{"store", func(c *Config) { c.Exposure.Store = "postgres" }},
		{"workers", func(c *Config) { c.Worker.Count = 0 }},
		{"timeout", func(c *Config) { c.USGS.Timeout = 0 }},
		{"chart format", func(c *Config) { c.Output.ChartFormat = "gif" }},
		{"bin width", func(c *Config) { c.Output.HistBinWidth = -0.1 }},
		{"tiny bin width", func(c *Config) { c.Output.HistBinWidth = 1e-12 }},
		{"NaN bin width", func(c *Config) { c.Output.HistBinWidth = math.NaN() }},
		{"infinite bin width", func(c *Config) { c.Output.HistBinWidth = math.Inf(1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}

	if err := defaults().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}
