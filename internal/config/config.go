package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"dirsweep/internal/sweep"
)

type LogCfg struct {
	Path       string `yaml:"path" json:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`   // Size at which the sweep log rotates
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`   // Rotated files to keep
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"` // Days to keep rotated logs
}

type PrometheusCfg struct {
	Port int `yaml:"port" json:"port"` // 0 disables the metrics server
}

type ResourceLimits struct {
	MaxCPUPercent float64 `yaml:"max_cpu_percent" json:"max_cpu_percent"` // Maximum CPU usage (e.g., 10.0)
}

type Config struct {
	Root            string         `yaml:"root" json:"root"`
	MaxAgeDays      int            `yaml:"max_age_days" json:"max_age_days"`
	Excluded        []string       `yaml:"excluded" json:"excluded"`                 // Relative to root
	ExcludePatterns []string       `yaml:"exclude_patterns" json:"exclude_patterns"` // Wildcards on base names
	DirAgeCheck     bool           `yaml:"dir_age_check" json:"dir_age_check"`
	DryRun          bool           `yaml:"dry_run" json:"dry_run"`
	Verbose         bool           `yaml:"verbose" json:"verbose"`
	IntervalMinutes int            `yaml:"interval_minutes" json:"interval_minutes"`
	Log             LogCfg         `yaml:"log" json:"log"`
	Prometheus      PrometheusCfg  `yaml:"prometheus" json:"prometheus"`
	ResourceLimits  ResourceLimits `yaml:"resource_limits" json:"resource_limits"`
	DatabasePath    string         `yaml:"database_path" json:"database_path"` // Path to SQLite sweep history, "" disables
}

var (
	errNoRoot          = errors.New("configuration must specify root")
	errInvalidRoot     = errors.New("root must be absolute")
	errNegativeAge     = errors.New("max_age_days cannot be negative")
	errAbsoluteExclude = errors.New("excluded entries must be relative to root")
)

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read decodes a config file without validating it, letting callers
// merge flag overrides before validation
func Read(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return decode(f)
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

// ValidateAndDefault checks required fields and fills defaults. Exported
// so a flag-built Config goes through the same gate as a file-loaded one.
func (c *Config) ValidateAndDefault() error {
	if strings.TrimSpace(c.Root) == "" {
		return errNoRoot
	}
	cp := filepath.Clean(c.Root)
	if !filepath.IsAbs(cp) {
		return fmt.Errorf("%w: %s", errInvalidRoot, c.Root)
	}
	c.Root = cp

	if c.MaxAgeDays < 0 {
		return errNegativeAge
	}

	for i, e := range c.Excluded {
		if filepath.IsAbs(e) {
			return fmt.Errorf("%w: %s", errAbsoluteExclude, e)
		}
		c.Excluded[i] = filepath.Clean(e)
	}

	if c.IntervalMinutes <= 0 {
		c.IntervalMinutes = 60
	}

	if c.Log.Path == "" {
		c.Log.Path = "/var/log/dirsweep/sweep.log"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 5
	}
	if c.Log.MaxAgeDays <= 0 {
		c.Log.MaxAgeDays = 30 // Default: keep rotated logs for 30 days
	}

	// Prometheus.Port stays 0 unless explicitly set; the metrics
	// server is opt-in.

	if c.ResourceLimits.MaxCPUPercent < 0 {
		c.ResourceLimits.MaxCPUPercent = 0
	}

	return nil
}

func (c *Config) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeDays) * 24 * time.Hour
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

func (c *Config) PrometheusAddress() string {
	return fmt.Sprintf(":%d", c.Prometheus.Port)
}

// SweepConfig translates the loaded configuration into the sweeper's
// input form
func (c *Config) SweepConfig() sweep.Config {
	return sweep.Config{
		Root:            c.Root,
		MaxAge:          c.MaxAge(),
		Excluded:        c.Excluded,
		ExcludePatterns: c.ExcludePatterns,
		DryRun:          c.DryRun,
		Verbose:         c.Verbose,
		DirAgeCheck:     c.DirAgeCheck,
	}
}
