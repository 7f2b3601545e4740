package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mr1hm/go-pager-losses/internal/analysis"
)

type Config struct {
	Impacts  ImpactsConfig  `yaml:"impacts"`
	Exposure ExposureConfig `yaml:"exposure"`
	USGS     USGSConfig     `yaml:"usgs"`
	Worker   WorkerConfig   `yaml:"worker"`
	Output   OutputConfig   `yaml:"output"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ImpactsConfig struct {
	File        string `yaml:"file"`
	HeaderLines int    `yaml:"header_lines"`
	FooterLines int    `yaml:"footer_lines"`
	Command     string `yaml:"command"`
	LossExtent  string `yaml:"loss_extent"`
	EffectType  string `yaml:"effect_type"`
}

// ExposureConfig points at the cache of PAGER exposures. Cache is the CSV
// path; DBPath is used when Store is "sqlite".
type ExposureConfig struct {
	Cache  string `yaml:"cache"`
	Store  string `yaml:"store"`
	DBPath string `yaml:"db_path"`
}

type USGSConfig struct {
	Enabled   bool          `yaml:"enabled"`
	DetailURL string        `yaml:"detail_url"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"` // requests per second
}

type WorkerConfig struct {
	Count      int `yaml:"count"`
	BufferSize int `yaml:"buffer_size"`
}

type OutputConfig struct {
	Dir          string  `yaml:"dir"`
	ChartFormat  string  `yaml:"chart_format"`
	HistBinWidth float64 `yaml:"hist_bin_width"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaults() *Config {
	return &Config{
		Impacts: ImpactsConfig{
			File:        "./data/pager_impacts.txt",
			HeaderLines: 1,
			FooterLines: 3,
			Command:     "PubFlagsAddImpact",
			LossExtent:  "Deaths",
			EffectType:  "Shaking",
		},
		Exposure: ExposureConfig{
			Cache:  "./data/pager_exposures.csv",
			Store:  "csv",
			DBPath: "./data/pager-losses.db",
		},
		USGS: USGSConfig{
			Enabled:   true,
			DetailURL: "https://earthquake.usgs.gov/fdsnws/event/1/query",
			Timeout:   30 * time.Second,
			RateLimit: 2,
		},
		Worker: WorkerConfig{
			Count:      1,
			BufferSize: 20,
		},
		Output: OutputConfig{
			Dir:          "./output",
			ChartFormat:  "png",
			HistBinWidth: 0,
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the config from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("error while parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Impacts.File = getEnv("IMPACTS_FILE", c.Impacts.File)
	c.Impacts.HeaderLines = getEnvInt("IMPACTS_HEADER_LINES", c.Impacts.HeaderLines)
	c.Impacts.FooterLines = getEnvInt("IMPACTS_FOOTER_LINES", c.Impacts.FooterLines)
	c.Impacts.Command = getEnv("IMPACT_COMMAND", c.Impacts.Command)
	c.Impacts.LossExtent = getEnv("LOSS_EXTENT", c.Impacts.LossExtent)
	c.Impacts.EffectType = getEnv("EFFECT_TYPE", c.Impacts.EffectType)

	c.Exposure.Cache = getEnv("EXPOSURE_CACHE", c.Exposure.Cache)
	c.Exposure.Store = getEnv("EXPOSURE_STORE", c.Exposure.Store)
	c.Exposure.DBPath = getEnv("DB_PATH", c.Exposure.DBPath)

	c.USGS.Enabled = getEnvBool("USGS_ENABLED", c.USGS.Enabled)
	c.USGS.DetailURL = getEnv("USGS_DETAIL_URL", c.USGS.DetailURL)
	c.USGS.Timeout = getEnvDuration("USGS_TIMEOUT", c.USGS.Timeout)
	c.USGS.RateLimit = getEnvFloat("USGS_RATE_LIMIT", c.USGS.RateLimit)

	c.Worker.Count = getEnvInt("WORKER_COUNT", c.Worker.Count)
	c.Worker.BufferSize = getEnvInt("WORKER_BUFFER_SIZE", c.Worker.BufferSize)

	c.Output.Dir = getEnv("OUTPUT_DIR", c.Output.Dir)
	c.Output.ChartFormat = getEnv("CHART_FORMAT", c.Output.ChartFormat)
	c.Output.HistBinWidth = getEnvFloat("HIST_BIN_WIDTH", c.Output.HistBinWidth)

	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvInt("SERVER_PORT", c.Server.Port)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
}

// Validate checks the config after every source, flags included, is applied.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Impacts.HeaderLines < 0 || c.Impacts.FooterLines < 0 {
		return fmt.Errorf("header and footer line counts must not be negative")
	}
	if c.Exposure.Store != "csv" && c.Exposure.Store != "sqlite" {
		return fmt.Errorf("invalid exposure store: %s", c.Exposure.Store)
	}
	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	if c.USGS.Enabled {
		if c.USGS.DetailURL == "" {
			return fmt.Errorf("USGS detail URL is required when USGS is enabled")
		}
		if c.USGS.Timeout <= 0 {
			return fmt.Errorf("USGS timeout must be positive")
		}
		if c.USGS.RateLimit < 0 {
			return fmt.Errorf("USGS rate limit must not be negative")
		}
	}
	if c.Output.ChartFormat != "png" && c.Output.ChartFormat != "svg" {
		return fmt.Errorf("invalid chart format: %s", c.Output.ChartFormat)
	}
	if err := analysis.CheckBinWidth(c.Output.HistBinWidth); err != nil {
		return err
	}

	return nil
}

// ExposurePath is the location of the configured exposure store.
func (c *Config) ExposurePath() string {
	if c.Exposure.Store == "sqlite" {
		return c.Exposure.DBPath
	}
	return c.Exposure.Cache
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
