package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/alecthomas/kong"

	"github.com/vburojevic/podtail/internal/cli"
	"github.com/vburojevic/podtail/internal/config"
)

const quickStart = `podtail - tail pod logs through the dashboard API

START HERE:
  podtail tail <pod> -n <namespace> --follow

Flags:
  -n    Namespace of the pod
  -t    Number of recent lines (default 100)
  -F    Keep streaming new lines

Other useful commands:
  podtail ui <pod> -n <namespace>       Interactive log panel
  podtail export <pod> -d ./logs        Save the recent log to a file
  podtail config show                   Show the effective configuration
`

func main() {
	// Show quick start if no args provided
	if len(os.Args) == 1 {
		fmt.Print(quickStart)
		return
	}

	// Load configuration from files/environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	var c cli.CLI

	// Config values become flag defaults; explicit flags still win
	vars := kong.Vars{
		"config_format":     cfg.Format,
		"config_server":     cfg.Server,
		"config_namespace":  cfg.Defaults.Namespace,
		"config_tail_lines": strconv.FormatUint(uint64(cfg.Defaults.TailLines), 10),
		"config_export_dir": cfg.Defaults.ExportDir,
	}

	ctx := kong.Parse(&c,
		kong.Name("podtail"),
		kong.Description("podtail: recent and live pod logs from the dashboard API\n\nSTART HERE: podtail tail <pod> -n <namespace> --follow"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		vars,
	)

	globals := cli.NewGlobalsWithConfig(&c, cfg)
	err = ctx.Run(globals)
	if globals.Logger != nil {
		_ = globals.Logger.Sync()
	}
	if err != nil {
		os.Exit(1)
	}
}
