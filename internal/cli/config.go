package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/vburojevic/podtail/internal/config"
)

// ConfigCmd shows or manages configuration
type ConfigCmd struct {
	Show     ConfigShowCmd     `cmd:"" default:"withargs" help:"Show current configuration"`
	Path     ConfigPathCmd     `cmd:"" help:"Show configuration file path"`
	Generate ConfigGenerateCmd `cmd:"" help:"Generate sample configuration file"`
}

// ConfigShowCmd shows current configuration
type ConfigShowCmd struct{}

// Run executes the config show command. The credential itself is never
// printed, only whether one is available.
func (c *ConfigShowCmd) Run(globals *Globals) error {
	cfg := globals.Config
	if cfg == nil {
		cfg = config.Default()
	}
	server := globals.Server
	if server == "" {
		server = cfg.Server
	}
	token, tokenErr := config.NewTokenSource(cfg, globals.Token).Token()
	tokenSet := tokenErr == nil && token != ""

	if globals.Format == "ndjson" {
		output := map[string]interface{}{
			"type":       "config",
			"server":     server,
			"token_set":  tokenSet,
			"token_file": cfg.TokenFile,
			"format":     cfg.Format,
			"quiet":      cfg.Quiet,
			"verbose":    cfg.Verbose,
			"defaults": map[string]interface{}{
				"namespace":        cfg.Defaults.Namespace,
				"tail_lines":       cfg.Defaults.TailLines,
				"snapshot_timeout": cfg.Defaults.SnapshotTimeout,
				"export_dir":       cfg.Defaults.ExportDir,
				"poll_interval":    cfg.Defaults.PollInterval,
			},
			"file": config.ConfigFile(),
		}
		encoder := json.NewEncoder(globals.Stdout)
		return encoder.Encode(output)
	}

	table := tablewriter.NewWriter(globals.Stdout)
	table.Header("Key", "Value")
	rows := [][]string{
		{"server", server},
		{"token", tokenState(tokenSet, tokenErr)},
		{"token_file", cfg.TokenFile},
		{"format", cfg.Format},
		{"quiet", strconv.FormatBool(cfg.Quiet)},
		{"verbose", strconv.FormatBool(cfg.Verbose)},
		{"defaults.namespace", cfg.Defaults.Namespace},
		{"defaults.tail_lines", strconv.FormatUint(uint64(cfg.Defaults.TailLines), 10)},
		{"defaults.snapshot_timeout", cfg.Defaults.SnapshotTimeout},
		{"defaults.export_dir", cfg.Defaults.ExportDir},
		{"defaults.poll_interval", cfg.Defaults.PollInterval},
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	if path := config.ConfigFile(); path != "" {
		fmt.Fprintf(globals.Stdout, "\nLoaded from: %s\n", path)
	}
	return nil
}

func tokenState(set bool, err error) string {
	switch {
	case err != nil:
		return "unreadable: " + err.Error()
	case set:
		return "set"
	default:
		return "not set"
	}
}

// ConfigPathCmd shows config file path
type ConfigPathCmd struct{}

// Run executes the config path command
func (c *ConfigPathCmd) Run(globals *Globals) error {
	path := config.ConfigFile()

	if globals.Format == "ndjson" {
		output := map[string]interface{}{
			"type": "config_path",
			"path": path,
		}
		encoder := json.NewEncoder(globals.Stdout)
		return encoder.Encode(output)
	}

	if path == "" {
		fmt.Fprintln(globals.Stdout, "No configuration file found")
		fmt.Fprintln(globals.Stdout, "")
		fmt.Fprintln(globals.Stdout, "Create one at:")
		fmt.Fprintln(globals.Stdout, "  ./.podtail.yaml")
		fmt.Fprintln(globals.Stdout, "  ~/.podtail.yaml")
		fmt.Fprintln(globals.Stdout, "  ~/.config/podtail/config.yaml")
	} else {
		fmt.Fprintf(globals.Stdout, "Config file: %s\n", path)
	}

	return nil
}

// ConfigGenerateCmd generates a sample configuration file
type ConfigGenerateCmd struct{}

const sampleConfig = `# podtail configuration file
# Place this file at ./.podtail.yaml, ~/.podtail.yaml,
# or ~/.config/podtail/config.yaml

# Dashboard API base URL
server: http://127.0.0.1:8080/api

# Bearer credential. Prefer token_file or the PODTAIL_TOKEN variable.
# token: ""
# token_file: ~/.config/podtail/token

# Output format: "ndjson" (default) or "text"
format: ndjson

# Suppress non-log output (info messages, warnings)
quiet: false

# Enable verbose/debug output
verbose: false

# Default values for commands
defaults:
  # Namespace used when -n is not given
  namespace: default

  # Recent lines to fetch; 0 means 100
  tail_lines: 100

  # Upper bound for one snapshot request
  snapshot_timeout: 30s

  # Where export writes its files
  export_dir: .

  # How often follow output is flushed
  poll_interval: 250ms
`

// Run executes the config generate command
func (c *ConfigGenerateCmd) Run(globals *Globals) error {
	_, err := fmt.Fprint(globals.Stdout, sampleConfig)
	return err
}
