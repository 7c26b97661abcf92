package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the optional per-project config file, found at the project root.
const FileName = ".sessiontap.yaml"

// Config represents the application configuration.
type Config struct {
	History HistoryConfig `yaml:"history"`
	Watch   WatchConfig   `yaml:"watch"`
	Tool    ToolConfig    `yaml:"tool"`
	Index   IndexConfig   `yaml:"index"`
	Logging LoggingConfig `yaml:"logging"`

	// Root is the resolved project root; set by Load, never serialized.
	Root string `yaml:"-"`
}

type HistoryConfig struct {
	Dir string `yaml:"dir"` // history directory, relative to the project root
	Ext string `yaml:"ext"` // history file extension
}

type WatchConfig struct {
	PollInterval  string `yaml:"poll_interval"`  // tick interval (default "100ms")
	TargetTimeout string `yaml:"target_timeout"` // give up on target discovery after this ("0" waits forever)
	GracePeriod   string `yaml:"grace_period"`   // wait between SIGTERM and the liveness probe
	HandoffWait   string `yaml:"handoff_wait"`   // bounded wait for the handoff record to populate
}

type ToolConfig struct {
	Name string `yaml:"name"` // wrapped binary name
	Real string `yaml:"real"` // explicit path to the real binary, skips discovery
}

type IndexConfig struct {
	Disabled bool   `yaml:"disabled"` // skip the session index entirely
	Path     string `yaml:"path"`     // defaults to <base dir>/sessions.db
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		History: HistoryConfig{
			Dir: filepath.Join(".specstory", "history"),
			Ext: ".md",
		},
		Watch: WatchConfig{
			PollInterval:  "100ms",
			TargetTimeout: "10m",
			GracePeriod:   "200ms",
			HandoffWait:   "2s",
		},
		Tool: ToolConfig{
			Name: "specstory",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load resolves the project root, reads the config file if present, applies
// environment overrides, and validates. A missing config file is not an
// error; defaults apply.
func Load() (*Config, error) {
	root, err := GetProjectDir()
	if err != nil {
		return nil, fmt.Errorf("resolve project dir: %w", err)
	}
	return LoadFrom(root)
}

// LoadFrom is Load with an explicit project root, for tests and for the
// detached watcher which receives its root on the command line.
func LoadFrom(root string) (*Config, error) {
	cfg := Default()
	cfg.Root = root

	data, err := os.ReadFile(filepath.Join(root, FileName))
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", FileName, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", FileName, err)
	}

	// Override with environment variables if present
	if level := os.Getenv("SESSIONTAP_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if file := os.Getenv("SESSIONTAP_LOG_FILE"); file != "" {
		cfg.Logging.File = file
	}
	if real := os.Getenv("SESSIONTAP_REAL"); real != "" {
		cfg.Tool.Real = real
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.History.Dir == "" {
		return fmt.Errorf("history.dir is required")
	}
	if c.History.Ext == "" {
		return fmt.Errorf("history.ext is required")
	}
	if c.Tool.Name == "" {
		return fmt.Errorf("tool.name is required")
	}
	for _, d := range []struct{ name, val string }{
		{"watch.poll_interval", c.Watch.PollInterval},
		{"watch.target_timeout", c.Watch.TargetTimeout},
		{"watch.grace_period", c.Watch.GracePeriod},
		{"watch.handoff_wait", c.Watch.HandoffWait},
	} {
		if d.val == "" || d.val == "0" {
			continue
		}
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}
	return nil
}

// HistoryDir returns the absolute history directory.
func (c *Config) HistoryDir() string {
	if filepath.IsAbs(c.History.Dir) {
		return c.History.Dir
	}
	return filepath.Join(c.Root, c.History.Dir)
}

// BaseDir returns the directory holding history, ledgers, and our own state:
// the parent of the history directory.
func (c *Config) BaseDir() string {
	return filepath.Dir(c.HistoryDir())
}

// LedgerDir returns the ledger directory, a sibling of the history directory.
func (c *Config) LedgerDir() string {
	return filepath.Join(c.BaseDir(), "timestamps")
}

// WatcherLog returns the detached watcher's log file path.
func (c *Config) WatcherLog() string {
	if c.Logging.File != "" {
		return c.Logging.File
	}
	return filepath.Join(c.BaseDir(), "watcher.log")
}

// IndexPath returns the session index database path.
func (c *Config) IndexPath() string {
	if c.Index.Path != "" {
		return c.Index.Path
	}
	return filepath.Join(c.BaseDir(), "sessions.db")
}

// Poll returns the watcher tick interval.
func (c *Config) Poll() time.Duration {
	return parseDuration(c.Watch.PollInterval, 100*time.Millisecond)
}

// TargetTimeout returns the target-discovery deadline; zero means no deadline.
func (c *Config) TargetTimeout() time.Duration {
	return parseDuration(c.Watch.TargetTimeout, 10*time.Minute)
}

// Grace returns the wait between graceful signal and liveness probe.
func (c *Config) Grace() time.Duration {
	return parseDuration(c.Watch.GracePeriod, 200*time.Millisecond)
}

// HandoffWait returns the bounded wait for the handoff record.
func (c *Config) HandoffWait() time.Duration {
	return parseDuration(c.Watch.HandoffWait, 2*time.Second)
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if s == "0" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}
