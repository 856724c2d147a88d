// Package config loads the scraper's runtime knobs from an optional TOML file, then
// overlays CLI flag values on top. It deliberately carries none of the dynamic
// reload/KV-injection machinery the reference configuration service has — this tool reads
// its configuration once at startup and runs to completion.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// LoggingConfig controls the arbor logger setup in internal/logging.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Output     []string `toml:"output"`
	TimeFormat string   `toml:"time_format"`
}

// WorkerPoolConfig controls capacity planning and timeouts for the worker pool.
type WorkerPoolConfig struct {
	MinWorkers          int           `toml:"min_workers"`
	MaxWorkers          int           `toml:"max_workers"`
	SpawnTimeout        time.Duration `toml:"spawn_timeout"`
	AllocationTimeout   time.Duration `toml:"allocation_timeout"`
	TerminateGrace      time.Duration `toml:"terminate_grace"`
}

// CrawlConfig controls navigation behaviour and phase timeouts.
type CrawlConfig struct {
	RootURL           string        `toml:"root_url"`
	OutputDir         string        `toml:"output_dir"`
	MaxDepth          int           `toml:"max_depth"`
	DryRun            bool          `toml:"dry_run"`
	PageLoadTimeout   time.Duration `toml:"page_load_timeout"`
	NavigationTimeout time.Duration `toml:"navigation_timeout"`
	PostCookieWait    time.Duration `toml:"post_cookie_wait"`
	DiscoveryTimeout  time.Duration `toml:"discovery_timeout"`
	AssetRateLimit    float64       `toml:"asset_rate_limit"` // tokens/sec, golang.org/x/time/rate
}

// Config is the full set of effective knobs named in SPEC_FULL.md §6.
type Config struct {
	Crawl      CrawlConfig      `toml:"crawl"`
	WorkerPool WorkerPoolConfig `toml:"worker_pool"`
	Logging    LoggingConfig    `toml:"logging"`
}

// NewDefaultConfig returns a Config populated with the defaults named throughout the spec:
// worker spawn timeout 30s, allocation timeout 60s, discovery phase timeout 30m, max
// depth unlimited (0 means "no limit" — see the depth check in internal/phases' dispatchPending), min=1/max=8 worker bounds.
func NewDefaultConfig() *Config {
	return &Config{
		Crawl: CrawlConfig{
			OutputDir:         "./output",
			MaxDepth:          0,
			PageLoadTimeout:   30 * time.Second,
			NavigationTimeout: 30 * time.Second,
			PostCookieWait:    500 * time.Millisecond,
			DiscoveryTimeout:  30 * time.Minute,
			AssetRateLimit:    4,
		},
		WorkerPool: WorkerPoolConfig{
			MinWorkers:        1,
			MaxWorkers:        8,
			SpawnTimeout:      30 * time.Second,
			AllocationTimeout: 60 * time.Second,
			TerminateGrace:    5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"console"},
			TimeFormat: "15:04:05.000",
		},
	}
}

// LoadFromFile reads and merges a TOML config file on top of the defaults. A missing
// file is not an error — the caller may be relying entirely on CLI flags.
func LoadFromFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// FlagOverrides carries the CLI flag values that, when non-zero/non-empty, take
// precedence over whatever was loaded from the TOML file.
type FlagOverrides struct {
	RootURL  string
	OutputDir string
	MaxDepth  int
	DryRun    bool
	HasDryRun bool
}

// ApplyFlagOverrides mutates cfg in place with any flag values the caller provided.
func ApplyFlagOverrides(cfg *Config, overrides FlagOverrides) {
	if overrides.RootURL != "" {
		cfg.Crawl.RootURL = overrides.RootURL
	}
	if overrides.OutputDir != "" {
		cfg.Crawl.OutputDir = overrides.OutputDir
	}
	if overrides.MaxDepth != 0 {
		cfg.Crawl.MaxDepth = overrides.MaxDepth
	}
	if overrides.HasDryRun {
		cfg.Crawl.DryRun = overrides.DryRun
	}
}

// Validate checks the minimum knobs needed to start a run.
func (c *Config) Validate() error {
	if c.Crawl.RootURL == "" {
		return fmt.Errorf("root URL is required (set crawl.root_url or pass --url)")
	}
	if c.WorkerPool.MinWorkers < 1 {
		return fmt.Errorf("worker_pool.min_workers must be >= 1")
	}
	if c.WorkerPool.MaxWorkers < c.WorkerPool.MinWorkers {
		return fmt.Errorf("worker_pool.max_workers must be >= min_workers")
	}
	return nil
}
