package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Backend connection
	Server    string `mapstructure:"server"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"token_file"`

	// Global settings
	Format  string `mapstructure:"format"`
	Quiet   bool   `mapstructure:"quiet"`
	Verbose bool   `mapstructure:"verbose"`

	// Default values for commands
	Defaults DefaultsConfig `mapstructure:"defaults"`
}

// DefaultsConfig holds default values for various commands
type DefaultsConfig struct {
	Namespace       string `mapstructure:"namespace"`
	TailLines       uint   `mapstructure:"tail_lines"`
	SnapshotTimeout string `mapstructure:"snapshot_timeout"`
	ExportDir       string `mapstructure:"export_dir"`
	PollInterval    string `mapstructure:"poll_interval"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Server:  "http://127.0.0.1:8080/api",
		Format:  "ndjson",
		Quiet:   false,
		Verbose: false,
		Defaults: DefaultsConfig{
			Namespace:       "default",
			TailLines:       100,
			SnapshotTimeout: "30s",
			ExportDir:       ".",
			PollInterval:    "250ms",
		},
	}
}

// SnapshotTimeoutDuration parses defaults.snapshot_timeout
func (c *Config) SnapshotTimeoutDuration() (time.Duration, error) {
	return parsePositiveDuration("defaults.snapshot_timeout", c.Defaults.SnapshotTimeout)
}

// PollIntervalDuration parses defaults.poll_interval
func (c *Config) PollIntervalDuration() (time.Duration, error) {
	return parsePositiveDuration("defaults.poll_interval", c.Defaults.PollInterval)
}

func parsePositiveDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, raw)
	}
	return d, nil
}

// Load loads configuration from files and environment
// Config file search order (highest precedence first):
// 1. ./.podtail.yaml or ./.podtail.yml
// 2. ~/.podtail.yaml or ~/.podtail.yml
// 3. $XDG_CONFIG_HOME/podtail/config.yaml (or ~/.config/podtail/config.yaml)
// 4. /etc/podtail/config.yaml
func Load() (*Config, error) {
	cfg := Default()

	configFile := findConfigFile()
	if configFile != "" {
		loaded, err := LoadFromFile(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// findConfigFile searches for config file in standard locations
func findConfigFile() string {
	names := []string{".podtail.yaml", ".podtail.yml", "podtail.yaml", "podtail.yml"}

	var searchPaths []string
	if cwd, err := os.Getwd(); err == nil {
		searchPaths = append(searchPaths, cwd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, home)
	}
	if configDir, err := os.UserConfigDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(configDir, "podtail"))
	}
	searchPaths = append(searchPaths, "/etc/podtail")

	for i, dir := range searchPaths {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
		// config.yaml only counts inside podtail's own directories
		if i >= len(searchPaths)-2 {
			path := filepath.Join(dir, "config.yaml")
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}

	return ""
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PODTAIL_SERVER"); v != "" {
		cfg.Server = v
	}
	if v := os.Getenv("PODTAIL_TOKEN_FILE"); v != "" {
		cfg.TokenFile = v
	}
	if v := os.Getenv("PODTAIL_NAMESPACE"); v != "" {
		cfg.Defaults.Namespace = v
	}
	if v := os.Getenv("PODTAIL_TAIL_LINES"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid PODTAIL_TAIL_LINES %q: %w", v, err)
		}
		cfg.Defaults.TailLines = uint(n)
	}
	if v := os.Getenv("PODTAIL_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("PODTAIL_QUIET"); v == "true" || v == "1" {
		cfg.Quiet = true
	}
	if v := os.Getenv("PODTAIL_VERBOSE"); v == "true" || v == "1" {
		cfg.Verbose = true
	}
	return nil
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConfigFile returns the path to the config file that would be loaded
func ConfigFile() string {
	return findConfigFile()
}
